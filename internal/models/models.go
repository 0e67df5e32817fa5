package models

import "fmt"

// PredictionRecord is one scheduled game extracted from the predictions table.
// Records are kept in document order; the schedule order of the source table
// is meaningful to downstream consumers.
type PredictionRecord struct {
	Week     int    `json:"week"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	AwayTeam string `json:"away_team"`
	HomeTeam string `json:"home_team"`

	PredictedAwayScore float64 `json:"predicted_away_score"`
	PredictedHomeScore float64 `json:"predicted_home_score"`

	// Confidence is |market - 50| / 50, rounded to two decimals
	Confidence float64 `json:"confidence"`

	// Raw +/- confidence values from the table, 0.0 when absent
	AwayConfidence float64 `json:"away_confidence"`
	HomeConfidence float64 `json:"home_confidence"`

	// MarketPercentage is the home team's market-implied win percentage
	MarketPercentage int `json:"market_percentage"`
}

// Key returns the composite join key shared with BettingLine
func (p PredictionRecord) Key() string {
	return GameKey(p.AwayTeam, p.HomeTeam)
}

// DefaultTotal is the placeholder total-points value used when the betting
// table carries no total for a game (and for unmatched games at join time).
const DefaultTotal = 45.0

// BettingLine is one sportsbook line extracted from the betting table.
// HomeSpread is expressed from the home team's perspective (negative = home
// favored).
type BettingLine struct {
	AwayTeam   string  `json:"away_team"`
	HomeTeam   string  `json:"home_team"`
	HomeSpread float64 `json:"home_spread"`
	Total      float64 `json:"total"`
}

// Key returns the composite join key shared with PredictionRecord
func (b BettingLine) Key() string {
	return GameKey(b.AwayTeam, b.HomeTeam)
}

// OutputRow is the join of a PredictionRecord with its (optional) BettingLine.
// Every PredictionRecord produces exactly one OutputRow; a missing line
// defaults MarketSpread to 0.0 and Total to 45.0.
type OutputRow struct {
	Week     int    `json:"week"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	AwayTeam string `json:"away_team"`
	HomeTeam string `json:"home_team"`

	PredictedAwayScore float64 `json:"predicted_away_score"`
	PredictedHomeScore float64 `json:"predicted_home_score"`
	Confidence         float64 `json:"confidence"`

	// MarketSpread is the home-perspective spread; LineMatched reports
	// whether it came from the betting table or the 0.0 default
	MarketSpread float64 `json:"market_spread"`
	Total        float64 `json:"total"`
	LineMatched  bool    `json:"line_matched"`
}

// Key returns the composite join key
func (r OutputRow) Key() string {
	return GameKey(r.AwayTeam, r.HomeTeam)
}

// PredictedSpread is the model's home-perspective spread
func (r OutputRow) PredictedSpread() float64 {
	return r.PredictedHomeScore - r.PredictedAwayScore
}

// GameKey builds the composite key used to join predictions with betting
// lines. Exact string match only; no fuzzy matching.
func GameKey(away, home string) string {
	return fmt.Sprintf("%s_%s", away, home)
}
