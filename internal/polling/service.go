// Package polling re-runs the scrape pipeline on an interval, with retry,
// backoff, and a slower recovery mode after repeated failures.
package polling

import (
	"context"
	"log"
	"time"

	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/service"
)

// Config holds polling configuration
type Config struct {
	Interval             time.Duration
	MaxRetries           int
	RetryBaseDelay       time.Duration
	MaxConsecutiveErrors int
	RecoveryInterval     time.Duration
}

// DefaultConfig returns default polling configuration
func DefaultConfig() Config {
	return Config{
		Interval:             10 * time.Minute,
		MaxRetries:           3,
		RetryBaseDelay:       2 * time.Second,
		MaxConsecutiveErrors: 5,
		RecoveryInterval:     30 * time.Minute,
	}
}

// Service runs the pipeline on a schedule
type Service struct {
	config   Config
	pipeline *service.Pipeline
	metrics  *metrics.Metrics

	consecutiveErrors int
	recoveryMode      bool
}

// New creates a polling service
func New(config Config, p *service.Pipeline, m *metrics.Metrics) *Service {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	return &Service{
		config:   config,
		pipeline: p,
		metrics:  m,
	}
}

// Start runs the polling loop until the context is cancelled. The first
// refresh runs immediately.
func (s *Service) Start(ctx context.Context) {
	log.Printf("Polling: started (interval: %v)", s.config.Interval)

	s.poll(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Polling: stopped")
			return
		case <-ticker.C:
			s.poll(ctx)

			// Switch intervals when entering or leaving recovery mode
			if s.recoveryMode {
				ticker.Reset(s.config.RecoveryInterval)
			} else {
				ticker.Reset(s.config.Interval)
			}
		}
	}
}

// poll runs one refresh with retries
func (s *Service) poll(ctx context.Context) {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between retries
			delay := s.config.RetryBaseDelay * time.Duration(1<<(attempt-1))
			log.Printf("Polling: retry %d/%d after %v", attempt, s.config.MaxRetries, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		_, changed, err := s.pipeline.Refresh(ctx)
		if err == nil {
			if s.recoveryMode {
				log.Println("Polling: recovered, resuming normal interval")
			}
			s.consecutiveErrors = 0
			s.recoveryMode = false
			if changed {
				log.Println("Polling: snapshot changed")
			}
			return
		}

		lastErr = err
		log.Printf("Polling: refresh failed: %v", err)
	}

	s.consecutiveErrors++
	log.Printf("Polling: all retries exhausted (%d consecutive failures): %v", s.consecutiveErrors, lastErr)

	if s.consecutiveErrors >= s.config.MaxConsecutiveErrors && !s.recoveryMode {
		s.recoveryMode = true
		log.Printf("Polling: entering recovery mode (interval: %v)", s.config.RecoveryInterval)
	}
}
