package value

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvFixture = `Week,Date,Time,Away Team,Home Team,Predicted Away Score,Predicted Home Score,Confidence,Market Spread (Home),Total
3,2025-09-21,1:00,JAX,HOU,27.4,20.6,0.48,+3.5,47.5
3,2025-09-21,4:25,KC,NYG,20.6,27.4,0.48,-7.0,45.0
3,2025-09-21,8:20,DET,BAL,24.0,24.0,0.00,0.0,45.0
`

func TestReadGames(t *testing.T) {
	games, err := ReadGames(strings.NewReader(csvFixture))
	require.NoError(t, err)
	require.Len(t, games, 3)

	first := games[0]
	assert.Equal(t, 3, first.Week)
	assert.Equal(t, "JAX", first.AwayTeam)
	assert.Equal(t, "HOU", first.HomeTeam)
	assert.Equal(t, 27.4, first.PredictedAway)
	assert.Equal(t, 20.6, first.PredictedHome)
	assert.Equal(t, 0.48, first.Confidence)
	assert.Equal(t, 3.5, first.MarketSpread)

	// Optional columns absent, so analysis defaults apply
	assert.Equal(t, DefaultHomeMoneyline, first.HomeMoneyline)
	assert.Equal(t, DefaultCommunityPercent, first.CommunityPercent)

	assert.Equal(t, -7.0, games[1].MarketSpread)
	assert.Equal(t, 0.0, games[2].MarketSpread)
}

func TestReadGamesOptionalColumns(t *testing.T) {
	content := `Week,Date,Time,Away Team,Home Team,Predicted Away Score,Predicted Home Score,Confidence,Market Spread (Home),Total,Home Moneyline,Community Probability
3,2025-09-21,1:00,JAX,HOU,27.4,20.6,0.48,+3.5,47.5,-150,62.5%
`
	games, err := ReadGames(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, games, 1)

	assert.Equal(t, -150.0, games[0].HomeMoneyline)
	assert.Equal(t, 62.5, games[0].CommunityPercent)
}

func TestReadGamesMissingRequiredColumn(t *testing.T) {
	content := "Week,Away Team,Home Team\n3,JAX,HOU\n"
	_, err := ReadGames(strings.NewReader(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestReadGamesBadSpread(t *testing.T) {
	content := `Week,Date,Time,Away Team,Home Team,Predicted Away Score,Predicted Home Score,Confidence,Market Spread (Home),Total
3,2025-09-21,1:00,JAX,HOU,27.4,20.6,0.48,PK,47.5
`
	_, err := ReadGames(strings.NewReader(content))
	assert.Error(t, err)
}
