// Package predictions extracts PredictionRecords from the predictions HTML
// table. The page structure is version-fragile: rows are identified by ids of
// the form row_<year>_<week>_<away>_<home>, and every sub-element has a
// documented default so a partially broken row still parses.
package predictions

import (
	"fmt"
	"io"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joshuakim/valuefinder/internal/models"
)

// Defaults applied when a sub-element is missing or unparsable
const (
	DefaultDate   = "9/21"
	DefaultTime   = "1:00"
	DefaultMarket = 50
)

// Score derivation constants: the market win percentage is scaled to a point
// differential and split around a baseline score, then clamped.
const (
	BaselineScore      = 24.0
	MinScore           = 14.0
	MaxScore           = 35.0
	PointsPerFullSwing = 28.0
)

var (
	rowIDPattern = regexp.MustCompile(`^row_(\d{4})_(\d{2})_(\w+)_(\w+)$`)
	datePattern  = regexp.MustCompile(`\d+/\d+`)
	timePattern  = regexp.MustCompile(`\d+:\d+`)
)

// Parse extracts all game rows from the predictions document, preserving
// document order. A row that fails to parse is logged and skipped; the
// remaining rows are still extracted. Only a document-level parse failure is
// returned as an error.
func Parse(r io.Reader) ([]models.PredictionRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse predictions document: %w", err)
	}

	var records []models.PredictionRecord
	doc.Find("tr[id]").Each(func(_ int, row *goquery.Selection) {
		id, _ := row.Attr("id")
		m := rowIDPattern.FindStringSubmatch(id)
		if m == nil {
			// Not a game row
			return
		}

		rec, err := parseRow(row, m)
		if err != nil {
			log.Printf("Predictions: skipping row %s: %v", id, err)
			return
		}
		records = append(records, rec)
	})

	return records, nil
}

// parseRow builds one record from a matched game row. match holds the row id
// submatches: year, week, away, home.
func parseRow(row *goquery.Selection, match []string) (models.PredictionRecord, error) {
	year, week, away, home := match[1], match[2], match[3], match[4]

	weekNum, err := strconv.Atoi(week)
	if err != nil {
		return models.PredictionRecord{}, fmt.Errorf("bad week %q: %w", week, err)
	}

	rec := models.PredictionRecord{
		Week:     weekNum,
		Date:     DefaultDate,
		Time:     DefaultTime,
		AwayTeam: away,
		HomeTeam: home,
	}

	// Date and time live in font elements; first match wins
	row.Find("font").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if datePattern.MatchString(cell.Text()) {
			rec.Date = strings.TrimSpace(cell.Text())
			return false
		}
		return true
	})
	row.Find("font").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if timePattern.MatchString(cell.Text()) {
			rec.Time = strings.TrimSpace(cell.Text())
			return false
		}
		return true
	})

	gameKey := fmt.Sprintf("%s_%s_%s_%s", year, week, away, home)
	rec.AwayConfidence = parseConfidence(row, "away_"+gameKey)
	rec.HomeConfidence = parseConfidence(row, "home_"+gameKey)
	rec.MarketPercentage = parseMarket(row, gameKey)

	rec.PredictedAwayScore, rec.PredictedHomeScore = DeriveScores(rec.MarketPercentage)
	rec.Confidence = DeriveConfidence(rec.MarketPercentage)

	return rec, nil
}

// parseConfidence reads a signed decimal from a <p> element like "+14.1" or
// "-3.1". Missing element, missing sign, or unparsable text all yield 0.0.
func parseConfidence(row *goquery.Selection, elemID string) float64 {
	elem := row.Find(fmt.Sprintf("p[id='%s']", elemID)).First()
	if elem.Length() == 0 {
		return 0.0
	}

	text := strings.TrimSpace(elem.Text())
	if !strings.ContainsAny(text, "+-") {
		return 0.0
	}

	// Strip everything except digits, sign, and decimal point
	var clean strings.Builder
	for _, c := range text {
		if (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.' {
			clean.WriteRune(c)
		}
	}

	v, err := strconv.ParseFloat(strings.TrimPrefix(clean.String(), "+"), 64)
	if err != nil {
		return 0.0
	}
	return v
}

// parseMarket reads the home team's market win percentage from the row's
// input element, defaulting to 50 (a toss-up) when absent or unparsable.
func parseMarket(row *goquery.Selection, gameKey string) int {
	input := row.Find(fmt.Sprintf("input[name='%s']", gameKey)).First()
	if input.Length() == 0 {
		return DefaultMarket
	}

	attr, ok := input.Attr("market")
	if !ok || attr == "" {
		return DefaultMarket
	}

	v, err := strconv.Atoi(strings.TrimSpace(attr))
	if err != nil {
		return DefaultMarket
	}
	return v
}

// DeriveScores converts the home team's market win percentage into a
// predicted score pair. The distance from a toss-up is scaled to a point
// differential and split evenly around the baseline, with the larger half
// going to the favored side. Both scores are clamped to [MinScore, MaxScore].
func DeriveScores(marketPercentage int) (away, home float64) {
	homeWinProb := float64(marketPercentage) / 100.0

	pointDiff := math.Abs(homeWinProb-0.5) * PointsPerFullSwing
	if homeWinProb > 0.5 {
		home = BaselineScore + pointDiff/2
		away = BaselineScore - pointDiff/2
	} else {
		away = BaselineScore + pointDiff/2
		home = BaselineScore - pointDiff/2
	}

	return ClampScore(away), ClampScore(home)
}

// ClampScore bounds a predicted score to the reasonable NFL range
func ClampScore(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// DeriveConfidence rescales distance-from-a-toss-up into [0, 1], rounded to
// two decimals. 50% -> 0.0, 0% or 100% -> 1.0, symmetric around 50.
func DeriveConfidence(marketPercentage int) float64 {
	c := math.Abs(float64(marketPercentage)-50) / 50.0
	return math.Round(c*100) / 100
}
