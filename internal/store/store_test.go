package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuakim/valuefinder/internal/models"
)

func sampleRows() []models.OutputRow {
	return []models.OutputRow{
		{Week: 3, AwayTeam: "JAX", HomeTeam: "HOU"},
		{Week: 3, AwayTeam: "KC", HomeTeam: "NYG"},
		{Week: 4, AwayTeam: "DET", HomeTeam: "BAL"},
	}
}

func TestReplaceAndRows(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.LastUpdated().IsZero())

	s.Replace(sampleRows())
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.LastUpdated().IsZero())

	rows := s.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "JAX_HOU", rows[0].Key())
	assert.Equal(t, "KC_NYG", rows[1].Key())
	assert.Equal(t, "DET_BAL", rows[2].Key())

	// Returned slice is a copy
	rows[0].AwayTeam = "XXX"
	assert.Equal(t, "JAX", s.Rows()[0].AwayTeam)
}

func TestRowsByWeek(t *testing.T) {
	s := New()
	s.Replace(sampleRows())

	week3 := s.RowsByWeek(3)
	require.Len(t, week3, 2)
	assert.Equal(t, "JAX", week3[0].AwayTeam)

	assert.Len(t, s.RowsByWeek(4), 1)
	assert.Empty(t, s.RowsByWeek(9))
}

func TestGet(t *testing.T) {
	s := New()
	s.Replace(sampleRows())

	row, ok := s.Get("KC_NYG")
	require.True(t, ok)
	assert.Equal(t, "NYG", row.HomeTeam)

	_, ok = s.Get("NO_SUCH")
	assert.False(t, ok)
}

func TestReplaceDropsOldRows(t *testing.T) {
	s := New()
	s.Replace(sampleRows())
	s.Replace([]models.OutputRow{{Week: 5, AwayTeam: "GB", HomeTeam: "CHI"}})

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("JAX_HOU")
	assert.False(t, ok)
}
