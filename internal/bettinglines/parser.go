// Package bettinglines extracts sportsbook point spreads from the betting
// odds HTML table. Rows are located by their game-info element; the spread is
// read from the first odds container ("best odds") by fixed position: the
// first spread cell is the away side, the second is the home side.
package bettinglines

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/joshuakim/valuefinder/internal/models"
	"github.com/joshuakim/valuefinder/internal/teams"
)

// Fixed class names from the odds page. Structural drift here degrades
// extraction silently (rows are skipped, never invented).
const (
	gameInfoClass      = "div.best-odds__game-info"
	oddsContainerClass = "div.best-odds__odds-container"
	oddsCellClass      = "div.css-rppihz"
	spreadValueClass   = "span.css-1jlt5rt"
)

// Parse extracts betting lines from the odds document, keyed by the composite
// away_home key. Rows with fewer than two recognized team names are skipped;
// rows with an unparsable spread are logged and skipped with no default (the
// joiner handles absence downstream).
func Parse(r io.Reader, registry *teams.Registry) (map[string]models.BettingLine, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse betting document: %w", err)
	}

	lines := make(map[string]models.BettingLine)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		line, ok := parseRow(row, registry)
		if !ok {
			return
		}
		lines[line.Key()] = line
	})

	return lines, nil
}

func parseRow(row *goquery.Selection, registry *teams.Registry) (models.BettingLine, bool) {
	gameInfo := row.Find(gameInfoClass).First()
	if gameInfo.Length() == 0 {
		return models.BettingLine{}, false
	}

	// Collect recognized team names from the game-info spans. The page
	// renders desktop and mobile variants; the first two recognized names
	// are the away and home sides in that order.
	var names []string
	gameInfo.Find("span").Each(func(_ int, span *goquery.Selection) {
		text := strings.TrimSpace(span.Text())
		if registry.Contains(text) {
			names = append(names, text)
		}
	})
	if len(names) < 2 {
		return models.BettingLine{}, false
	}

	awayAbbr, _ := registry.Abbreviation(names[0])
	homeAbbr, _ := registry.Abbreviation(names[1])

	// First odds container is the "Best Odds" column
	container := row.Find(oddsContainerClass).First()
	if container.Length() == 0 {
		return models.BettingLine{}, false
	}

	cells := container.Find(oddsCellClass)
	if cells.Length() < 2 {
		return models.BettingLine{}, false
	}

	// Second cell is the home team by fixed positional convention
	spreadSpan := cells.Eq(1).Find(spreadValueClass).First()
	if spreadSpan.Length() == 0 {
		return models.BettingLine{}, false
	}

	spreadText := strings.TrimSpace(spreadSpan.Text())
	homeSpread, err := ParseSpreadText(spreadText)
	if err != nil {
		log.Printf("Betting: could not parse spread value %q for %s @ %s", spreadText, awayAbbr, homeAbbr)
		return models.BettingLine{}, false
	}

	log.Printf("Betting: found line %s @ %s, home spread: %g", awayAbbr, homeAbbr, homeSpread)

	return models.BettingLine{
		AwayTeam:   awayAbbr,
		HomeTeam:   homeAbbr,
		HomeSpread: homeSpread,
		Total:      models.DefaultTotal,
	}, true
}

// ParseSpreadText parses a sportsbook spread string: "+3.5" is positive,
// "-7.0" is negative, anything else is parsed as-is.
func ParseSpreadText(text string) (float64, error) {
	switch {
	case strings.HasPrefix(text, "+"):
		v, err := strconv.ParseFloat(text[1:], 64)
		if err != nil {
			return 0, err
		}
		return v, nil
	case strings.HasPrefix(text, "-"):
		v, err := strconv.ParseFloat(text[1:], 64)
		if err != nil {
			return 0, err
		}
		return -v, nil
	default:
		return strconv.ParseFloat(text, 64)
	}
}
