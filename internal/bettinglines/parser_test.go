package bettinglines

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuakim/valuefinder/internal/teams"
)

const bettingFixture = `
<html><body><table>
<tr>
  <td><div class="best-odds__game-info">
    <span>Jaguars</span><span>Texans</span>
  </div></td>
  <td><div class="best-odds__odds-container">
    <div class="css-rppihz"><span class="css-1jlt5rt">-3.5</span></div>
    <div class="css-rppihz"><span class="css-1jlt5rt">+3.5</span></div>
  </div></td>
</tr>
<tr>
  <td><div class="best-odds__game-info">
    <span>Chiefs</span><span>Giants</span>
  </div></td>
  <td><div class="best-odds__odds-container">
    <div class="css-rppihz"><span class="css-1jlt5rt">+7.0</span></div>
    <div class="css-rppihz"><span class="css-1jlt5rt">-7.0</span></div>
  </div></td>
</tr>
<tr>
  <td><div class="best-odds__game-info">
    <span>Wombats</span><span>Texans</span>
  </div></td>
  <td><div class="best-odds__odds-container">
    <div class="css-rppihz"><span class="css-1jlt5rt">-1.0</span></div>
    <div class="css-rppihz"><span class="css-1jlt5rt">+1.0</span></div>
  </div></td>
</tr>
<tr>
  <td><div class="best-odds__game-info">
    <span>Lions</span><span>Ravens</span>
  </div></td>
  <td><div class="best-odds__odds-container">
    <div class="css-rppihz"><span class="css-1jlt5rt">PK</span></div>
    <div class="css-rppihz"><span class="css-1jlt5rt">PK</span></div>
  </div></td>
</tr>
</table></body></html>`

func TestParse(t *testing.T) {
	lines, err := Parse(strings.NewReader(bettingFixture), teams.Default())
	require.NoError(t, err)

	// Row with one recognized team and row with unparsable spread are skipped
	require.Len(t, lines, 2)

	jax, ok := lines["JAX_HOU"]
	require.True(t, ok)
	assert.Equal(t, "JAX", jax.AwayTeam)
	assert.Equal(t, "HOU", jax.HomeTeam)
	assert.Equal(t, 3.5, jax.HomeSpread)
	assert.Equal(t, 45.0, jax.Total)

	kc, ok := lines["KC_NYG"]
	require.True(t, ok)
	assert.Equal(t, -7.0, kc.HomeSpread)
}

func TestParseEmptyDocument(t *testing.T) {
	lines, err := Parse(strings.NewReader("<html><body></body></html>"), teams.Default())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestParseSpreadText(t *testing.T) {
	tests := []struct {
		text    string
		want    float64
		wantErr bool
	}{
		{"+3.5", 3.5, false},
		{"-7.0", -7.0, false},
		{"0.0", 0.0, false},
		{"2.5", 2.5, false},
		{"PK", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSpreadText(tt.text)
		if tt.wantErr {
			assert.Error(t, err, "text %q", tt.text)
			continue
		}
		require.NoError(t, err, "text %q", tt.text)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}
