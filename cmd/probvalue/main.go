// Command probvalue reads an emitted predictions CSV and reports games where
// the community win probability exceeds the spread-implied probability.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/joshuakim/valuefinder/internal/value"
)

func main() {
	csvPath := flag.String("csv", "nfl_predictions.csv", "predictions CSV to analyze")
	threshold := flag.Float64("threshold", value.DefaultProbabilityThreshold, "minimum probability edge (0.05 = 5%)")
	flag.Parse()

	games, err := value.LoadCSV(*csvPath)
	if err != nil {
		log.Fatalf("Probvalue: %v", err)
	}

	opps := value.DetectProbabilityOpportunities(games, *threshold)
	if err := value.WriteProbabilityReport(os.Stdout, opps, *threshold); err != nil {
		log.Fatalf("Probvalue: %v", err)
	}
}
