// Package service orchestrates the scrape pipeline: fetch both source
// documents, parse them, join predictions with betting lines, and publish the
// snapshot to the store, database, and websocket subscribers.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/joshuakim/valuefinder/internal/bettinglines"
	"github.com/joshuakim/valuefinder/internal/config"
	"github.com/joshuakim/valuefinder/internal/csvout"
	"github.com/joshuakim/valuefinder/internal/database"
	"github.com/joshuakim/valuefinder/internal/fetch"
	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/models"
	"github.com/joshuakim/valuefinder/internal/predictions"
	"github.com/joshuakim/valuefinder/internal/store"
	"github.com/joshuakim/valuefinder/internal/teams"
	"github.com/joshuakim/valuefinder/internal/value"
	"github.com/joshuakim/valuefinder/internal/websocket"
)

// Pipeline runs the scrape-normalize-publish cycle
type Pipeline struct {
	cfg      config.Config
	fetcher  *fetch.Client
	registry *teams.Registry
	store    *store.Store
	db       *database.DB
	metrics  *metrics.Metrics
	hub      *websocket.Hub
	detector *value.Detector

	// OnAlerts, when set, receives newly detected alerts after each refresh
	OnAlerts func([]value.Alert)

	mu       sync.Mutex
	lastHash string
}

// New creates a pipeline. The hub is optional; without one no broadcasts are
// sent.
func New(cfg config.Config, registry *teams.Registry, st *store.Store, db *database.DB, m *metrics.Metrics, hub *websocket.Hub) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		fetcher:  fetch.New(cfg.Inputs.FetchTimeout),
		registry: registry,
		store:    st,
		db:       db,
		metrics:  m,
		hub:      hub,
		detector: value.NewDetector(db, cfg.Value.SpreadThreshold),
	}
}

// Store returns the pipeline's snapshot store
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Refresh runs one full cycle. Returns the joined rows and whether the
// snapshot content changed since the previous refresh.
func (p *Pipeline) Refresh(ctx context.Context) ([]models.OutputRow, bool, error) {
	start := p.metrics.RecordRefreshStart()

	rows, err := p.collect(ctx)
	if err != nil {
		p.metrics.RecordRefreshError(start, err)
		return nil, false, err
	}

	misses := 0
	for _, r := range rows {
		if !r.LineMatched {
			misses++
		}
	}
	p.metrics.RecordRefreshSuccess(start, len(rows), misses)

	changed := p.updateHash(rows)
	if !changed {
		log.Printf("Pipeline: no changes detected (%d rows)", len(rows))
		return rows, false, nil
	}

	p.metrics.RecordChange()
	p.publish(rows)

	return rows, true, nil
}

// collect fetches and parses both sources and joins them
func (p *Pipeline) collect(ctx context.Context) ([]models.OutputRow, error) {
	predDoc, err := p.fetcher.Fetch(ctx, p.cfg.Inputs.Predictions)
	if err != nil {
		return nil, fmt.Errorf("predictions fetch: %w", err)
	}
	defer predDoc.Close()

	preds, err := predictions.Parse(predDoc)
	if err != nil {
		return nil, fmt.Errorf("predictions parse: %w", err)
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("predictions parse: no rows extracted")
	}

	betDoc, err := p.fetcher.Fetch(ctx, p.cfg.Inputs.Betting)
	if err != nil {
		return nil, fmt.Errorf("betting fetch: %w", err)
	}
	defer betDoc.Close()

	lines, err := bettinglines.Parse(betDoc, p.registry)
	if err != nil {
		return nil, fmt.Errorf("betting parse: %w", err)
	}

	return csvout.Join(preds, lines, p.cfg.Season.Date), nil
}

// publish pushes a changed snapshot to the store, database, and subscribers
func (p *Pipeline) publish(rows []models.OutputRow) {
	p.store.Replace(rows)

	if p.db != nil {
		if err := p.db.SaveGames(rows); err != nil {
			log.Printf("Pipeline: failed to persist snapshot: %v", err)
		}
	}

	if p.hub != nil {
		for week, weekRows := range groupByWeek(rows) {
			p.hub.Broadcast(week, weekRows)
		}
	}

	alerts := p.detector.DetectAlerts(rows)
	if len(alerts) > 0 {
		p.metrics.RecordAlerts(len(alerts))
		if p.OnAlerts != nil {
			p.OnAlerts(alerts)
		}
	}

	log.Printf("Pipeline: published %d rows, %d alerts", len(rows), len(alerts))
}

// WriteCSV writes the current snapshot to the configured output path
func (p *Pipeline) WriteCSV() error {
	rows := p.store.Rows()
	if len(rows) == 0 {
		return fmt.Errorf("no snapshot to write")
	}
	return csvout.WriteFile(p.cfg.Output.Path, rows)
}

// updateHash records the snapshot content hash, reporting whether it changed
func (p *Pipeline) updateHash(rows []models.OutputRow) bool {
	h := sha256.New()
	for _, r := range rows {
		h.Write([]byte(r.Key()))
		h.Write([]byte(strconv.FormatFloat(r.PredictedAwayScore, 'f', 1, 64)))
		h.Write([]byte(strconv.FormatFloat(r.PredictedHomeScore, 'f', 1, 64)))
		h.Write([]byte(strconv.FormatFloat(r.MarketSpread, 'f', 1, 64)))
		h.Write([]byte(strconv.FormatFloat(r.Total, 'f', 1, 64)))
	}
	sum := hex.EncodeToString(h.Sum(nil))

	p.mu.Lock()
	defer p.mu.Unlock()
	if sum == p.lastHash {
		return false
	}
	p.lastHash = sum
	return true
}

func groupByWeek(rows []models.OutputRow) map[int][]models.OutputRow {
	byWeek := make(map[int][]models.OutputRow)
	for _, r := range rows {
		byWeek[r.Week] = append(byWeek[r.Week], r)
	}
	return byWeek
}
