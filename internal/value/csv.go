package value

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joshuakim/valuefinder/internal/csvout"
)

// Analysis-column defaults applied when the optional columns are absent
const (
	DefaultHomeMoneyline    = -110.0
	DefaultCommunityPercent = 50.0
)

// LoadCSV reads an emitted predictions CSV back into GameData for analysis.
// The required columns are the emitter's contract; "Home Moneyline" and
// "Community Probability" are optional and defaulted per game when missing.
func LoadCSV(path string) ([]GameData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadGames(f)
}

// ReadGames parses CSV content with a header row into GameData
func ReadGames(r io.Reader) ([]GameData, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	for _, required := range []string{"Away Team", "Home Team", "Predicted Away Score", "Predicted Home Score", "Market Spread (Home)", "Confidence"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var games []GameData
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		g := GameData{
			AwayTeam:         field(record, col, "Away Team"),
			HomeTeam:         field(record, col, "Home Team"),
			HomeMoneyline:    DefaultHomeMoneyline,
			CommunityPercent: DefaultCommunityPercent,
		}

		if v, err := strconv.Atoi(field(record, col, "Week")); err == nil {
			g.Week = v
		}
		if g.PredictedAway, err = strconv.ParseFloat(field(record, col, "Predicted Away Score"), 64); err != nil {
			return nil, fmt.Errorf("game %s: bad predicted away score: %w", g.Matchup(), err)
		}
		if g.PredictedHome, err = strconv.ParseFloat(field(record, col, "Predicted Home Score"), 64); err != nil {
			return nil, fmt.Errorf("game %s: bad predicted home score: %w", g.Matchup(), err)
		}
		if g.Confidence, err = strconv.ParseFloat(field(record, col, "Confidence"), 64); err != nil {
			return nil, fmt.Errorf("game %s: bad confidence: %w", g.Matchup(), err)
		}
		if g.MarketSpread, err = csvout.ParseSpread(field(record, col, "Market Spread (Home)")); err != nil {
			return nil, fmt.Errorf("game %s: %w", g.Matchup(), err)
		}

		if raw := field(record, col, "Home Moneyline"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				g.HomeMoneyline = v
			}
		}
		if raw := field(record, col, "Community Probability"); raw != "" {
			if v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64); err == nil {
				g.CommunityPercent = v
			}
		}

		games = append(games, g)
	}

	return games, nil
}

// field returns the named column's value, or "" when the column or cell is
// absent from this file.
func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
