package value

import (
	"fmt"
	"time"
)

// Sides a value opportunity can land on
const (
	SideHome = "HOME"
	SideAway = "AWAY"
)

// Market roles for the value team
const (
	RoleFavorite = "FAVORITE"
	RoleUnderdog = "UNDERDOG"
	RoleEven     = "EVEN"
)

// Confidence levels for alerts
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Detection methods recorded in alert history
const (
	MethodSpread      = "spread"
	MethodProbability = "probability"
)

// GameData is one game as read back from the emitted CSV, with the optional
// analysis columns defaulted when absent.
type GameData struct {
	Week     int
	AwayTeam string
	HomeTeam string

	PredictedAway float64
	PredictedHome float64
	Confidence    float64

	// MarketSpread is home-perspective; 0.0 means no line was matched
	MarketSpread float64

	// HomeMoneyline defaults to -110 when the column is absent
	HomeMoneyline float64

	// CommunityPercent is the home team's community win percentage,
	// defaulting to 50.0 when the column is absent
	CommunityPercent float64
}

// Matchup renders the away-at-home label used in reports
func (g GameData) Matchup() string {
	return fmt.Sprintf("%s @ %s", g.AwayTeam, g.HomeTeam)
}

// PredictedSpread is the model's home-perspective spread
func (g GameData) PredictedSpread() float64 {
	return g.PredictedHome - g.PredictedAway
}

// MarketFavorite names the side the market spread favors, or RoleEven for a
// pick'em line.
func (g GameData) MarketFavorite() string {
	switch {
	case g.MarketSpread < 0:
		return g.HomeTeam
	case g.MarketSpread > 0:
		return g.AwayTeam
	default:
		return RoleEven
	}
}

// SpreadOpportunity is a game where the model's spread diverges from the
// market spread beyond the threshold.
type SpreadOpportunity struct {
	Game     string `json:"game"`
	AwayTeam string `json:"away_team"`
	HomeTeam string `json:"home_team"`

	PredictedSpread float64 `json:"predicted_spread"`
	MarketSpread    float64 `json:"market_spread"`

	// SpreadDiff is predicted minus market; positive means the model likes
	// the home team more than the market does
	SpreadDiff float64 `json:"spread_diff"`

	ValueTeam      string  `json:"value_team"`
	Side           string  `json:"side"`
	MarketFavorite string  `json:"market_favorite"`
	FavOrDog       string  `json:"fav_or_dog"`
	Confidence     float64 `json:"confidence"`
}

// ProbabilityOpportunity is a game where the community win probability
// exceeds the betting-line-implied probability beyond the threshold.
type ProbabilityOpportunity struct {
	Game      string `json:"game"`
	BetLine   string `json:"bet_line"`
	ValueTeam string `json:"value_team"`

	// Value is community minus implied, for the value side
	Value         float64 `json:"value"`
	CommunityProb float64 `json:"community_prob"`
	BettingProb   float64 `json:"betting_prob"`

	FavOrDog string  `json:"fav_or_dog"`
	Spread   float64 `json:"spread"`
}

// Alert is a detected value opportunity in the form the notification
// channels carry: identified, deduplicable, and expiring.
type Alert struct {
	ID       string `json:"id"`
	GameKey  string `json:"game_key"`
	Week     int    `json:"week"`
	AwayTeam string `json:"away_team"`
	HomeTeam string `json:"home_team"`

	Method    string `json:"method"`
	ValueTeam string `json:"value_team"`
	Side      string `json:"side"`

	PredictedSpread float64 `json:"predicted_spread"`
	MarketSpread    float64 `json:"market_spread"`
	Diff            float64 `json:"diff"`
	AbsDiff         float64 `json:"abs_diff"`
	FavOrDog        string  `json:"fav_or_dog"`

	Confidence string    `json:"confidence"`
	DetectedAt time.Time `json:"detected_at"`
}

// GetConfidence grades an opportunity by how far past the threshold it is
func GetConfidence(absDiff, threshold float64) string {
	ratio := absDiff / threshold

	switch {
	case ratio >= 2.0:
		return ConfidenceHigh
	case ratio >= 1.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CooldownDurations for different confidence levels
var CooldownDurations = map[string]time.Duration{
	ConfidenceLow:    4 * time.Hour,
	ConfidenceMedium: 2 * time.Hour,
	ConfidenceHigh:   1 * time.Hour,
}

// GetCooldownDuration returns the cooldown duration for a confidence level
func GetCooldownDuration(confidence string) time.Duration {
	if d, ok := CooldownDurations[confidence]; ok {
		return d
	}
	return 4 * time.Hour
}
