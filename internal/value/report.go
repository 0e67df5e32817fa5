package value

import (
	"fmt"
	"io"

	"github.com/joshuakim/valuefinder/internal/csvout"
)

// biasVerdictShare is the favorite/underdog share past which a report calls
// the opportunity set skewed.
const biasVerdictShare = 70.0

// WriteSpreadReport renders spread value opportunities as a numbered text
// report with a favorite/underdog bias summary.
func WriteSpreadReport(w io.Writer, opps []SpreadOpportunity, threshold float64) error {
	fmt.Fprintf(w, "SPREAD VALUE OPPORTUNITIES (threshold %.1f points)\n", threshold)
	fmt.Fprintln(w, "============================================================")

	if len(opps) == 0 {
		fmt.Fprintln(w, "\nNo opportunities found.")
		return nil
	}

	favorites, underdogs := 0, 0
	for i, opp := range opps {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, opp.Game)
		fmt.Fprintf(w, "   Model spread:  %s (home)\n", csvout.FormatSpread(opp.PredictedSpread))
		fmt.Fprintf(w, "   Market spread: %s (home)\n", csvout.FormatSpread(opp.MarketSpread))
		fmt.Fprintf(w, "   Difference:    %+.1f points\n", opp.SpreadDiff)
		fmt.Fprintf(w, "   Value side:    %s (%s)\n", opp.ValueTeam, opp.FavOrDog)
		fmt.Fprintf(w, "   Confidence:    %.2f\n", opp.Confidence)

		switch opp.FavOrDog {
		case RoleFavorite:
			favorites++
		case RoleUnderdog:
			underdogs++
		}
	}

	writeSummary(w, len(opps), favorites, underdogs)
	return nil
}

// WriteProbabilityReport renders probability value opportunities, highest
// value first, with the same bias summary.
func WriteProbabilityReport(w io.Writer, opps []ProbabilityOpportunity, threshold float64) error {
	fmt.Fprintf(w, "PROBABILITY VALUE OPPORTUNITIES (threshold %.0f%%)\n", threshold*100)
	fmt.Fprintln(w, "============================================================")

	if len(opps) == 0 {
		fmt.Fprintln(w, "\nNo opportunities found.")
		return nil
	}

	favorites, underdogs := 0, 0
	for i, opp := range opps {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, opp.Game)
		fmt.Fprintf(w, "   Bet:              %s\n", opp.BetLine)
		fmt.Fprintf(w, "   Community prob:   %.1f%%\n", opp.CommunityProb*100)
		fmt.Fprintf(w, "   Implied prob:     %.1f%%\n", opp.BettingProb*100)
		fmt.Fprintf(w, "   Value:            %+.1f%%\n", opp.Value*100)
		fmt.Fprintf(w, "   Role:             %s\n", opp.FavOrDog)

		switch opp.FavOrDog {
		case RoleFavorite:
			favorites++
		case RoleUnderdog:
			underdogs++
		}
	}

	writeSummary(w, len(opps), favorites, underdogs)
	return nil
}

func writeSummary(w io.Writer, total, favorites, underdogs int) {
	fmt.Fprintln(w, "\n============================================================")
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintf(w, "Total opportunities: %d\n", total)
	fmt.Fprintf(w, "On favorites: %d\n", favorites)
	fmt.Fprintf(w, "On underdogs: %d\n", underdogs)

	if total == 0 {
		return
	}

	favShare := float64(favorites) / float64(total) * 100
	dogShare := float64(underdogs) / float64(total) * 100

	switch {
	case favShare >= biasVerdictShare:
		fmt.Fprintf(w, "Bias: %.0f%% of opportunities favor market favorites\n", favShare)
	case dogShare >= biasVerdictShare:
		fmt.Fprintf(w, "Bias: %.0f%% of opportunities favor market underdogs\n", dogShare)
	default:
		fmt.Fprintln(w, "Bias: no strong lean toward favorites or underdogs")
	}
}
