// Command normalize scrapes the predictions and betting odds tables and
// emits the joined CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joshuakim/valuefinder/internal/bettinglines"
	"github.com/joshuakim/valuefinder/internal/config"
	"github.com/joshuakim/valuefinder/internal/csvout"
	"github.com/joshuakim/valuefinder/internal/fetch"
	"github.com/joshuakim/valuefinder/internal/predictions"
	"github.com/joshuakim/valuefinder/internal/teams"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	predSrc := flag.String("predictions", "", "predictions HTML source (file or URL)")
	betSrc := flag.String("betting", "", "betting odds HTML source (file or URL)")
	outPath := flag.String("out", "", "output CSV path")
	seasonDate := flag.String("date", "", "date written to every output row")
	teamsFile := flag.String("teams", "", "team name table YAML file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Config: %v", err)
		}
	}

	// Flags override config
	if *predSrc != "" {
		cfg.Inputs.Predictions = *predSrc
	}
	if *betSrc != "" {
		cfg.Inputs.Betting = *betSrc
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}
	if *seasonDate != "" {
		cfg.Season.Date = *seasonDate
	}
	if *teamsFile != "" {
		cfg.TeamsFile = *teamsFile
	}

	registry := teams.Default()
	if cfg.TeamsFile != "" {
		var err error
		registry, err = teams.LoadFile(cfg.TeamsFile)
		if err != nil {
			log.Fatalf("Teams: %v", err)
		}
	}

	ctx := context.Background()
	client := fetch.New(cfg.Inputs.FetchTimeout)

	predDoc, err := client.Fetch(ctx, cfg.Inputs.Predictions)
	if err != nil {
		log.Fatalf("Predictions: %v", err)
	}
	preds, err := predictions.Parse(predDoc)
	predDoc.Close()
	if err != nil {
		log.Fatalf("Predictions: %v", err)
	}
	if len(preds) == 0 {
		log.Fatal("Predictions: no rows extracted")
	}
	log.Printf("Predictions: extracted %d games", len(preds))

	betDoc, err := client.Fetch(ctx, cfg.Inputs.Betting)
	if err != nil {
		log.Fatalf("Betting: %v", err)
	}
	lines, err := bettinglines.Parse(betDoc, registry)
	betDoc.Close()
	if err != nil {
		log.Fatalf("Betting: %v", err)
	}
	log.Printf("Betting: extracted %d lines", len(lines))

	rows := csvout.Join(preds, lines, cfg.Season.Date)
	if err := csvout.WriteFile(cfg.Output.Path, rows); err != nil {
		log.Fatalf("Output: %v", err)
	}

	fmt.Printf("Wrote %d rows to %s\n", len(rows), cfg.Output.Path)
}
