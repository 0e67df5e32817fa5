package value

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/joshuakim/valuefinder/internal/csvout"
	"github.com/joshuakim/valuefinder/internal/database"
	"github.com/joshuakim/valuefinder/internal/models"
	"github.com/joshuakim/valuefinder/internal/probability"
)

// Default detection thresholds
const (
	DefaultSpreadThreshold      = 2.0
	DefaultProbabilityThreshold = 0.05
)

// DetectSpread checks one game for a model-vs-market spread divergence.
// Returns nil when the difference is within the threshold.
func DetectSpread(g GameData, threshold float64) *SpreadOpportunity {
	diff := g.PredictedSpread() - g.MarketSpread
	// A diff of exactly +threshold qualifies and falls on the home side
	if math.Abs(diff) < threshold {
		return nil
	}

	valueTeam, side := g.HomeTeam, SideHome
	if diff < 0 {
		// Model likes the away team more than the market
		valueTeam, side = g.AwayTeam, SideAway
	}

	favorite := g.MarketFavorite()
	favOrDog := RoleUnderdog
	switch {
	case favorite == RoleEven:
		favOrDog = RoleEven
	case valueTeam == favorite:
		favOrDog = RoleFavorite
	}

	return &SpreadOpportunity{
		Game:            g.Matchup(),
		AwayTeam:        g.AwayTeam,
		HomeTeam:        g.HomeTeam,
		PredictedSpread: g.PredictedSpread(),
		MarketSpread:    g.MarketSpread,
		SpreadDiff:      diff,
		ValueTeam:       valueTeam,
		Side:            side,
		MarketFavorite:  favorite,
		FavOrDog:        favOrDog,
		Confidence:      g.Confidence,
	}
}

// DetectSpreadOpportunities scans all games with DetectSpread
func DetectSpreadOpportunities(games []GameData, threshold float64) []SpreadOpportunity {
	var opps []SpreadOpportunity
	for _, g := range games {
		if opp := DetectSpread(g, threshold); opp != nil {
			opps = append(opps, *opp)
		}
	}
	return opps
}

// DetectProbability checks one game for positive value: the community win
// probability exceeding the spread-implied probability by at least the
// threshold, on either side. Returns nil when neither side clears it.
func DetectProbability(g GameData, threshold float64) *ProbabilityOpportunity {
	communityHome := g.CommunityPercent / 100.0
	communityAway := 1.0 - communityHome

	bettingHome := probability.HomeWinFromMarketSpread(g.MarketSpread)
	bettingAway := 1.0 - bettingHome

	awayValue := communityAway - bettingAway
	homeValue := communityHome - bettingHome

	var opp ProbabilityOpportunity
	switch {
	case awayValue >= threshold:
		// The away side gets the mirror of the home spread
		opp = ProbabilityOpportunity{
			Game:          g.Matchup(),
			BetLine:       formatBetLine(g.AwayTeam, -g.MarketSpread),
			ValueTeam:     g.AwayTeam,
			Value:         awayValue,
			CommunityProb: communityAway,
			BettingProb:   bettingAway,
			Spread:        g.MarketSpread,
		}
	case homeValue >= threshold:
		opp = ProbabilityOpportunity{
			Game:          g.Matchup(),
			BetLine:       formatBetLine(g.HomeTeam, g.MarketSpread),
			ValueTeam:     g.HomeTeam,
			Value:         homeValue,
			CommunityProb: communityHome,
			BettingProb:   bettingHome,
			Spread:        g.MarketSpread,
		}
	default:
		return nil
	}

	opp.FavOrDog = g.ValueTeamRole(opp.ValueTeam)
	return &opp
}

// ValueTeamRole reports whether the named team is the market favorite or
// underdog for this game.
func (g GameData) ValueTeamRole(team string) string {
	favorite := g.MarketFavorite()
	switch {
	case favorite == RoleEven:
		return RoleEven
	case team == favorite:
		return RoleFavorite
	default:
		return RoleUnderdog
	}
}

// DetectProbabilityOpportunities scans all games and sorts the results by
// value, highest first.
func DetectProbabilityOpportunities(games []GameData, threshold float64) []ProbabilityOpportunity {
	var opps []ProbabilityOpportunity
	for _, g := range games {
		if opp := DetectProbability(g, threshold); opp != nil {
			opps = append(opps, *opp)
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Value > opps[j].Value
	})
	return opps
}

// formatBetLine renders the recommended bet, e.g. "JAX +3.5" or "KC EVEN"
func formatBetLine(team string, spread float64) string {
	if spread == 0 {
		return fmt.Sprintf("%s EVEN", team)
	}
	return fmt.Sprintf("%s %s", team, csvout.FormatSpread(spread))
}

// Detector turns normalized rows into deduplicated alerts. The database is
// optional; without one every opportunity alerts.
type Detector struct {
	db        *database.DB
	threshold float64
}

// NewDetector creates a detector with the given spread threshold
func NewDetector(db *database.DB, spreadThreshold float64) *Detector {
	if spreadThreshold <= 0 {
		spreadThreshold = DefaultSpreadThreshold
	}
	return &Detector{db: db, threshold: spreadThreshold}
}

// Threshold returns the configured spread threshold
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// DetectAlerts scans normalized rows for spread value, applying history-based
// deduplication and cooldown. Alerts that should not re-notify are dropped.
func (d *Detector) DetectAlerts(rows []models.OutputRow) []Alert {
	var detected []Alert

	for _, row := range rows {
		g := GameData{
			Week:          row.Week,
			AwayTeam:      row.AwayTeam,
			HomeTeam:      row.HomeTeam,
			PredictedAway: row.PredictedAwayScore,
			PredictedHome: row.PredictedHomeScore,
			Confidence:    row.Confidence,
			MarketSpread:  row.MarketSpread,
		}

		opp := DetectSpread(g, d.threshold)
		if opp == nil {
			continue
		}

		alert := Alert{
			ID:              fmt.Sprintf("%s-%s-%s", row.Key(), MethodSpread, opp.Side),
			GameKey:         row.Key(),
			Week:            row.Week,
			AwayTeam:        row.AwayTeam,
			HomeTeam:        row.HomeTeam,
			Method:          MethodSpread,
			ValueTeam:       opp.ValueTeam,
			Side:            opp.Side,
			PredictedSpread: opp.PredictedSpread,
			MarketSpread:    opp.MarketSpread,
			Diff:            opp.SpreadDiff,
			AbsDiff:         math.Abs(opp.SpreadDiff),
			FavOrDog:        opp.FavOrDog,
			Confidence:      GetConfidence(math.Abs(opp.SpreadDiff), d.threshold),
			DetectedAt:      time.Now(),
		}

		shouldNotify, reason := d.ShouldNotify(&alert)
		if !shouldNotify {
			log.Printf("Value: skipping alert for %s: %s", alert.GameKey, reason)
			continue
		}

		log.Printf("Value: %s %s %s (model %+.1f, market %+.1f, edge %+.1f) [%s]",
			alert.GameKey, alert.ValueTeam, alert.FavOrDog,
			alert.PredictedSpread, alert.MarketSpread, alert.Diff, alert.Confidence)

		if err := d.RecordAlert(&alert); err != nil {
			log.Printf("Value: error recording alert: %v", err)
		}
		detected = append(detected, alert)
	}

	return detected
}

// ShouldNotify checks history for deduplication and cooldown. A line that
// moved more than half a point re-alerts even inside the cooldown window.
func (d *Detector) ShouldNotify(alert *Alert) (bool, string) {
	if d.db == nil {
		return true, "no database configured"
	}

	history, err := d.db.GetAlertHistory(alert.GameKey, alert.Method, alert.Side)
	if err != nil {
		log.Printf("Value: error checking alert history: %v", err)
		return true, "error checking history"
	}
	if history == nil {
		return true, "new alert"
	}

	if time.Now().Before(history.CooldownUntil) {
		lineDiff := math.Abs(alert.MarketSpread - history.SpreadValue)
		if lineDiff < 0.5 {
			return false, fmt.Sprintf("in cooldown until %s", history.CooldownUntil.Format("15:04"))
		}
		return true, fmt.Sprintf("line moved %.1f points", lineDiff)
	}

	return true, "cooldown expired"
}

// RecordAlert saves an alert to history
func (d *Detector) RecordAlert(alert *Alert) error {
	if d.db == nil {
		return nil
	}

	cooldown := GetCooldownDuration(alert.Confidence)
	return d.db.SaveAlertHistory(&database.AlertHistory{
		GameKey:       alert.GameKey,
		Method:        alert.Method,
		Side:          alert.Side,
		SpreadValue:   alert.MarketSpread,
		Difference:    alert.Diff,
		Confidence:    alert.Confidence,
		CooldownUntil: time.Now().Add(cooldown),
	})
}

// FormatAlertMessage creates a human-readable alert line
func FormatAlertMessage(alert *Alert) string {
	return fmt.Sprintf("%s: %s (%s) model %+.1f vs market %+.1f, edge %+.1f",
		alert.GameKey, alert.ValueTeam, alert.FavOrDog,
		alert.PredictedSpread, alert.MarketSpread, alert.Diff)
}
