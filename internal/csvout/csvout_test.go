package csvout

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuakim/valuefinder/internal/models"
)

func samplePredictions() []models.PredictionRecord {
	return []models.PredictionRecord{
		{
			Week: 3, Date: "9/21", Time: "1:00",
			AwayTeam: "JAX", HomeTeam: "HOU",
			PredictedAwayScore: 27.36, PredictedHomeScore: 20.64,
			Confidence: 0.48,
		},
		{
			Week: 3, Date: "9/22", Time: "8:15",
			AwayTeam: "KC", HomeTeam: "NYG",
			PredictedAwayScore: 20.64, PredictedHomeScore: 27.36,
			Confidence: 0.48,
		},
	}
}

func TestJoin(t *testing.T) {
	lines := map[string]models.BettingLine{
		"JAX_HOU": {AwayTeam: "JAX", HomeTeam: "HOU", HomeSpread: 3.5, Total: 47.5},
	}

	rows := Join(samplePredictions(), lines, "")
	require.Len(t, rows, 2)

	assert.Equal(t, 3.5, rows[0].MarketSpread)
	assert.Equal(t, 47.5, rows[0].Total)
	assert.True(t, rows[0].LineMatched)

	// Unmatched prediction still yields a row, with defaults
	assert.Equal(t, "KC", rows[1].AwayTeam)
	assert.Equal(t, 0.0, rows[1].MarketSpread)
	assert.Equal(t, models.DefaultTotal, rows[1].Total)
	assert.False(t, rows[1].LineMatched)
}

func TestJoinSeasonDate(t *testing.T) {
	rows := Join(samplePredictions(), nil, "2025-09-21")
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-09-21", rows[0].Date)
	assert.Equal(t, "2025-09-21", rows[1].Date)

	rows = Join(samplePredictions(), nil, "")
	assert.Equal(t, "9/21", rows[0].Date)
}

func TestJoinPreservesOrder(t *testing.T) {
	rows := Join(samplePredictions(), nil, "")
	require.Len(t, rows, 2)
	assert.Equal(t, "JAX_HOU", rows[0].Key())
	assert.Equal(t, "KC_NYG", rows[1].Key())
}

func TestWrite(t *testing.T) {
	rows := Join(samplePredictions(), map[string]models.BettingLine{
		"JAX_HOU": {AwayTeam: "JAX", HomeTeam: "HOU", HomeSpread: 3.5, Total: 47.5},
	}, "2025-09-21")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{
		"3", "2025-09-21", "1:00", "JAX", "HOU",
		"27.4", "20.6", "0.48", "+3.5", "47.5",
	}, records[1])
	assert.Equal(t, "0.0", records[2][8])
	assert.Equal(t, "45.0", records[2][9])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	rows := Join(samplePredictions(), nil, "")
	require.NoError(t, WriteFile(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Market Spread (Home)")

	// No stray temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFormatSpread(t *testing.T) {
	tests := []struct {
		spread float64
		want   string
	}{
		{3.5, "+3.5"},
		{-7.0, "-7.0"},
		{0.0, "0.0"},
		{0.5, "+0.5"},
		{-0.5, "-0.5"},
		{10.0, "+10.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSpread(tt.spread), "spread %g", tt.spread)
	}
}

func TestParseSpreadRoundTrip(t *testing.T) {
	for s := -20.0; s <= 20.0; s += 0.5 {
		got, err := ParseSpread(FormatSpread(s))
		require.NoError(t, err, "spread %g", s)
		assert.InDelta(t, s, got, 0.001, "spread %g", s)
	}
}

func TestParseSpreadInvalid(t *testing.T) {
	_, err := ParseSpread("PK")
	assert.Error(t, err)
}

func TestColumnsContract(t *testing.T) {
	want := []string{
		"Week", "Date", "Time", "Away Team", "Home Team",
		"Predicted Away Score", "Predicted Home Score",
		"Confidence", "Market Spread (Home)", "Total",
	}
	assert.Equal(t, want, Columns)
}
