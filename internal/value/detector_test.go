package value

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuakim/valuefinder/internal/models"
)

func TestDetectSpread(t *testing.T) {
	// Model has the away team winning by 6.72; market only by 3.5
	g := GameData{
		Week: 3, AwayTeam: "JAX", HomeTeam: "HOU",
		PredictedAway: 27.36, PredictedHome: 20.64,
		Confidence: 0.48, MarketSpread: 3.5,
	}

	opp := DetectSpread(g, 2.0)
	require.NotNil(t, opp)
	assert.Equal(t, "JAX @ HOU", opp.Game)
	assert.InDelta(t, -6.72, opp.PredictedSpread, 0.001)
	assert.InDelta(t, -10.22, opp.SpreadDiff, 0.001)
	assert.Equal(t, "JAX", opp.ValueTeam)
	assert.Equal(t, SideAway, opp.Side)

	// Positive market spread favors the away team, so JAX is the favorite
	assert.Equal(t, "JAX", opp.MarketFavorite)
	assert.Equal(t, RoleFavorite, opp.FavOrDog)
}

func TestDetectSpreadHomeSide(t *testing.T) {
	// Model likes the home team more than the market does
	g := GameData{
		AwayTeam: "KC", HomeTeam: "NYG",
		PredictedAway: 20.64, PredictedHome: 27.36,
		MarketSpread: -2.5,
	}

	opp := DetectSpread(g, 2.0)
	require.NotNil(t, opp)
	assert.Equal(t, "NYG", opp.ValueTeam)
	assert.Equal(t, SideHome, opp.Side)
	assert.Equal(t, RoleFavorite, opp.FavOrDog)
}

func TestDetectSpreadExactThreshold(t *testing.T) {
	// Diff of exactly +2.0 is an opportunity on the home side
	g := GameData{
		AwayTeam: "KC", HomeTeam: "NYG",
		PredictedAway: 21.0, PredictedHome: 26.5,
		MarketSpread: 3.5,
	}

	opp := DetectSpread(g, 2.0)
	require.NotNil(t, opp)
	assert.Equal(t, 2.0, opp.SpreadDiff)
	assert.Equal(t, "NYG", opp.ValueTeam)
	assert.Equal(t, SideHome, opp.Side)
	assert.Equal(t, RoleUnderdog, opp.FavOrDog)

	// Exactly -2.0 lands on the away side
	g = GameData{
		AwayTeam: "DET", HomeTeam: "BAL",
		PredictedAway: 26.0, PredictedHome: 24.0,
	}
	opp = DetectSpread(g, 2.0)
	require.NotNil(t, opp)
	assert.Equal(t, -2.0, opp.SpreadDiff)
	assert.Equal(t, "DET", opp.ValueTeam)
	assert.Equal(t, SideAway, opp.Side)
	assert.Equal(t, RoleEven, opp.FavOrDog)
}

func TestDetectSpreadWithinThreshold(t *testing.T) {
	g := GameData{
		AwayTeam: "DET", HomeTeam: "BAL",
		PredictedAway: 24, PredictedHome: 24,
		MarketSpread: -1.5,
	}
	assert.Nil(t, DetectSpread(g, 2.0))
}

func TestDetectSpreadUnderdogAttribution(t *testing.T) {
	// Home favored by the market, model likes the away underdog
	g := GameData{
		AwayTeam: "CHI", HomeTeam: "GB",
		PredictedAway: 24, PredictedHome: 24,
		MarketSpread: -7.0,
	}

	opp := DetectSpread(g, 2.0)
	require.NotNil(t, opp)
	assert.Equal(t, "CHI", opp.ValueTeam)
	assert.Equal(t, "GB", opp.MarketFavorite)
	assert.Equal(t, RoleUnderdog, opp.FavOrDog)
}

func TestDetectSpreadOpportunities(t *testing.T) {
	games := []GameData{
		{AwayTeam: "JAX", HomeTeam: "HOU", PredictedAway: 27.36, PredictedHome: 20.64, MarketSpread: 3.5},
		{AwayTeam: "DET", HomeTeam: "BAL", PredictedAway: 24, PredictedHome: 24, MarketSpread: -1.5},
		{AwayTeam: "CHI", HomeTeam: "GB", PredictedAway: 24, PredictedHome: 24, MarketSpread: -7.0},
	}

	opps := DetectSpreadOpportunities(games, 2.0)
	require.Len(t, opps, 2)
	assert.Equal(t, "JAX @ HOU", opps[0].Game)
	assert.Equal(t, "CHI @ GB", opps[1].Game)
}

func TestDetectProbabilityHomeSide(t *testing.T) {
	// Pick'em line implies 50% but the community has the home team at 60%
	g := GameData{
		AwayTeam: "DET", HomeTeam: "BAL",
		MarketSpread: 0, CommunityPercent: 60.0,
	}

	opp := DetectProbability(g, 0.05)
	require.NotNil(t, opp)
	assert.Equal(t, "BAL", opp.ValueTeam)
	assert.Equal(t, "BAL EVEN", opp.BetLine)
	assert.InDelta(t, 0.10, opp.Value, 0.001)
	assert.InDelta(t, 0.60, opp.CommunityProb, 0.001)
	assert.InDelta(t, 0.50, opp.BettingProb, 0.001)
	assert.Equal(t, RoleEven, opp.FavOrDog)
}

func TestDetectProbabilityAwaySide(t *testing.T) {
	// Home favored by the line, but the community has the away team at 60%
	g := GameData{
		AwayTeam: "JAX", HomeTeam: "HOU",
		MarketSpread: -3.5, CommunityPercent: 40.0,
	}

	opp := DetectProbability(g, 0.05)
	require.NotNil(t, opp)
	assert.Equal(t, "JAX", opp.ValueTeam)
	assert.Equal(t, "JAX +3.5", opp.BetLine)
	assert.Equal(t, RoleUnderdog, opp.FavOrDog)
	assert.Greater(t, opp.Value, 0.05)
}

func TestDetectProbabilityNoEdge(t *testing.T) {
	g := GameData{
		AwayTeam: "KC", HomeTeam: "NYG",
		MarketSpread: 0, CommunityPercent: 51.0,
	}
	assert.Nil(t, DetectProbability(g, 0.05))
}

func TestDetectProbabilityOpportunitiesSorted(t *testing.T) {
	games := []GameData{
		{AwayTeam: "A", HomeTeam: "B", MarketSpread: 0, CommunityPercent: 57.0},
		{AwayTeam: "C", HomeTeam: "D", MarketSpread: 0, CommunityPercent: 70.0},
		{AwayTeam: "E", HomeTeam: "F", MarketSpread: 0, CommunityPercent: 62.0},
	}

	opps := DetectProbabilityOpportunities(games, 0.05)
	require.Len(t, opps, 3)
	assert.Equal(t, "D", opps[0].ValueTeam)
	assert.Equal(t, "F", opps[1].ValueTeam)
	assert.Equal(t, "B", opps[2].ValueTeam)
}

func TestGetConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, GetConfidence(4.0, 2.0))
	assert.Equal(t, ConfidenceMedium, GetConfidence(3.0, 2.0))
	assert.Equal(t, ConfidenceLow, GetConfidence(2.0, 2.0))
	assert.Equal(t, ConfidenceLow, GetConfidence(2.9, 2.0))
}

func gameRows() []models.OutputRow {
	return []models.OutputRow{
		{
			Week: 3, AwayTeam: "JAX", HomeTeam: "HOU",
			PredictedAwayScore: 27.36, PredictedHomeScore: 20.64,
			Confidence: 0.48, MarketSpread: 3.5, LineMatched: true,
		},
		{
			Week: 3, AwayTeam: "DET", HomeTeam: "BAL",
			PredictedAwayScore: 24, PredictedHomeScore: 24,
			MarketSpread: -1.5, LineMatched: true,
		},
	}
}

func TestDetectorWithoutDatabase(t *testing.T) {
	d := NewDetector(nil, 2.0)

	rows := gameRows()
	alerts := d.DetectAlerts(rows)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "JAX_HOU", a.GameKey)
	assert.Equal(t, MethodSpread, a.Method)
	assert.Equal(t, SideAway, a.Side)
	assert.Equal(t, ConfidenceHigh, a.Confidence)
	assert.Equal(t, "JAX_HOU-spread-AWAY", a.ID)
	assert.False(t, a.DetectedAt.IsZero())
}

func TestWriteSpreadReport(t *testing.T) {
	opps := []SpreadOpportunity{
		{
			Game: "JAX @ HOU", ValueTeam: "JAX", FavOrDog: RoleFavorite,
			PredictedSpread: -6.72, MarketSpread: 3.5, SpreadDiff: -10.22,
			Confidence: 0.48,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSpreadReport(&buf, opps, 2.0))

	out := buf.String()
	assert.Contains(t, out, "1. JAX @ HOU")
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Total opportunities: 1")
	assert.Contains(t, out, "On favorites: 1")
	assert.Contains(t, out, "favor market favorites")
}

func TestWriteSpreadReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpreadReport(&buf, nil, 2.0))
	assert.Contains(t, buf.String(), "No opportunities found")
}

func TestWriteProbabilityReport(t *testing.T) {
	opps := []ProbabilityOpportunity{
		{
			Game: "DET @ BAL", BetLine: "BAL EVEN", ValueTeam: "BAL",
			Value: 0.10, CommunityProb: 0.60, BettingProb: 0.50,
			FavOrDog: RoleUnderdog,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProbabilityReport(&buf, opps, 0.05))

	out := buf.String()
	assert.Contains(t, out, "BAL EVEN")
	assert.Contains(t, out, "On underdogs: 1")
	assert.Contains(t, out, "favor market underdogs")
}
