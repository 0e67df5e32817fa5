// Package csvout joins prediction records with betting lines and emits the
// fixed 10-column CSV consumed by the report tools. Column order, header
// names, and the spread string format are part of the contract; changing any
// of them breaks downstream consumers.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joshuakim/valuefinder/internal/models"
)

// Columns is the output schema, in contract order
var Columns = []string{
	"Week",
	"Date",
	"Time",
	"Away Team",
	"Home Team",
	"Predicted Away Score",
	"Predicted Home Score",
	"Confidence",
	"Market Spread (Home)",
	"Total",
}

// Join merges predictions with betting lines on the away_home key, in
// prediction order. A missing line is logged and defaulted (spread 0.0,
// total 45.0); every prediction yields exactly one row.
//
// seasonDate, when non-empty, replaces the per-row parsed date so the whole
// snapshot carries one calendar date (the source table covers a single week).
func Join(preds []models.PredictionRecord, lines map[string]models.BettingLine, seasonDate string) []models.OutputRow {
	rows := make([]models.OutputRow, 0, len(preds))

	for _, p := range preds {
		row := models.OutputRow{
			Week:               p.Week,
			Date:               p.Date,
			Time:               p.Time,
			AwayTeam:           p.AwayTeam,
			HomeTeam:           p.HomeTeam,
			PredictedAwayScore: p.PredictedAwayScore,
			PredictedHomeScore: p.PredictedHomeScore,
			Confidence:         p.Confidence,
			MarketSpread:       0.0,
			Total:              models.DefaultTotal,
		}
		if seasonDate != "" {
			row.Date = seasonDate
		}

		if line, ok := lines[p.Key()]; ok {
			row.MarketSpread = line.HomeSpread
			row.Total = line.Total
			row.LineMatched = true
		} else {
			log.Printf("Joiner: WARNING no betting line found for %s", p.Key())
		}

		rows = append(rows, row)
	}

	return rows
}

// Write emits the header plus one record per row
func Write(w io.Writer, rows []models.OutputRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Week),
			row.Date,
			row.Time,
			row.AwayTeam,
			row.HomeTeam,
			strconv.FormatFloat(row.PredictedAwayScore, 'f', 1, 64),
			strconv.FormatFloat(row.PredictedHomeScore, 'f', 1, 64),
			strconv.FormatFloat(row.Confidence, 'f', 2, 64),
			FormatSpread(row.MarketSpread),
			strconv.FormatFloat(row.Total, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %s: %w", row.Key(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV atomically: the output lands in a temp file that
// is renamed into place only on success, so a failed run leaves no partial
// output.
func WriteFile(path string, rows []models.OutputRow) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".valuefinder-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	tmpName := tmp.Name()

	if err := Write(tmp, rows); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp output: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// FormatSpread renders a home-perspective spread for the CSV: positive values
// get an explicit leading "+", negatives keep their sign, exact zero renders
// as "0.0". Always one decimal place.
func FormatSpread(spread float64) string {
	switch {
	case spread > 0:
		return fmt.Sprintf("+%.1f", spread)
	case spread < 0:
		return fmt.Sprintf("%.1f", spread)
	default:
		return "0.0"
	}
}

// ParseSpread reads a spread string back into a decimal, tolerating the
// explicit leading "+". Inverse of FormatSpread within one-decimal rounding.
func ParseSpread(s string) (float64, error) {
	if len(s) > 0 && s[0] == '+' {
		s = s[1:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad spread %q: %w", s, err)
	}
	return v, nil
}
