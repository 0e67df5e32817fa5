// Package store holds the latest normalized snapshot in memory for the API
// and websocket layers. Reads vastly outnumber writes.
package store

import (
	"sync"
	"time"

	"github.com/joshuakim/valuefinder/internal/models"
)

// Store is a thread-safe snapshot of normalized game rows
type Store struct {
	mu          sync.RWMutex
	rows        []models.OutputRow
	byKey       map[string]models.OutputRow
	lastUpdated time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		byKey: make(map[string]models.OutputRow),
	}
}

// Replace swaps in a new snapshot, preserving row order
func (s *Store) Replace(rows []models.OutputRow) {
	byKey := make(map[string]models.OutputRow, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.byKey = byKey
	s.lastUpdated = time.Now()
}

// Rows returns a copy of the snapshot in source order
func (s *Store) Rows() []models.OutputRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.OutputRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// RowsByWeek returns the snapshot rows for one week in source order
func (s *Store) RowsByWeek(week int) []models.OutputRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.OutputRow
	for _, r := range s.rows {
		if r.Week == week {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the row for an away_home key
func (s *Store) Get(key string) (models.OutputRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byKey[key]
	return r, ok
}

// Len returns the number of stored rows
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// LastUpdated returns when the snapshot was last replaced
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}
