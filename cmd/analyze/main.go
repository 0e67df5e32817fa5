// Command analyze reads an emitted predictions CSV and reports games where
// the model's spread diverges from the market spread.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/joshuakim/valuefinder/internal/value"
)

func main() {
	csvPath := flag.String("csv", "nfl_predictions.csv", "predictions CSV to analyze")
	threshold := flag.Float64("threshold", value.DefaultSpreadThreshold, "minimum spread difference in points")
	flag.Parse()

	games, err := value.LoadCSV(*csvPath)
	if err != nil {
		log.Fatalf("Analyze: %v", err)
	}

	opps := value.DetectSpreadOpportunities(games, *threshold)
	if err := value.WriteSpreadReport(os.Stdout, opps, *threshold); err != nil {
		log.Fatalf("Analyze: %v", err)
	}
}
