// Package probability converts between point spreads, moneylines, and implied
// win probabilities.
package probability

import "math"

// PointsPerProbability is the standard NFL heuristic: each point of spread is
// worth about 3.3% of win probability.
const PointsPerProbability = 3.3

// FromSpread converts a point spread (positive = this side favored) to an
// implied win probability using a logistic model.
func FromSpread(spread float64) float64 {
	if spread == 0 {
		return 0.5
	}
	return 1 / (1 + math.Exp(-spread/PointsPerProbability))
}

// HomeWinFromMarketSpread converts a home-perspective market spread (negative
// = home favored) into the home team's implied win probability.
func HomeWinFromMarketSpread(marketSpread float64) float64 {
	return FromSpread(-marketSpread)
}

// FromMoneyline converts American moneyline odds to implied probability
func FromMoneyline(moneyline float64) float64 {
	if moneyline > 0 {
		return 100 / (moneyline + 100)
	}
	return math.Abs(moneyline) / (math.Abs(moneyline) + 100)
}
