package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/joshuakim/valuefinder/internal/database"
	"github.com/joshuakim/valuefinder/internal/value"
	"github.com/joshuakim/valuefinder/internal/websocket"
)

// Config holds notification service configuration
type Config struct {
	// VAPID keys for Web Push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string // mailto: or https:// URL

	// Batching
	BatchInterval time.Duration

	// Enable/disable
	Enabled bool
}

// DefaultConfig returns default notification configuration
func DefaultConfig() Config {
	return Config{
		BatchInterval: 60 * time.Second,
		Enabled:       true,
	}
}

// Service handles notification dispatch. Queued alerts are persisted in the
// pending_notifications table so a batch in flight survives a restart; the
// in-memory slice is only the fallback when no database is configured.
type Service struct {
	config Config
	db     *database.DB
	hub    *websocket.Hub

	// Pending alerts when running without a database
	mu            sync.Mutex
	pendingAlerts []value.Alert

	// Control
	stopCh chan struct{}
}

// NewService creates a new notification service
func NewService(config Config, db *database.DB, hub *websocket.Hub) *Service {
	return &Service{
		config:        config,
		db:            db,
		hub:           hub,
		pendingAlerts: make([]value.Alert, 0),
		stopCh:        make(chan struct{}),
	}
}

// Start starts the batch processing loop
func (s *Service) Start(ctx context.Context) {
	if s.config.BatchInterval <= 0 {
		s.config.BatchInterval = 60 * time.Second
	}

	ticker := time.NewTicker(s.config.BatchInterval)
	defer ticker.Stop()

	maintenance := time.NewTicker(time.Hour)
	defer maintenance.Stop()

	log.Printf("Notification service started (batch interval: %v)", s.config.BatchInterval)
	s.maintain()

	for {
		select {
		case <-ctx.Done():
			s.processBatch() // Process any remaining alerts
			log.Println("Notification service stopped")
			return
		case <-s.stopCh:
			s.processBatch()
			return
		case <-ticker.C:
			s.processBatch()
		case <-maintenance.C:
			s.maintain()
		}
	}
}

// maintain prunes expired alert history and stale rate-limit windows
func (s *Service) maintain() {
	if s.db == nil {
		return
	}
	if err := s.db.CleanupExpiredHistory(); err != nil {
		log.Printf("Cleanup: alert history: %v", err)
	}
	if err := s.db.CleanupOldRateLimits(); err != nil {
		log.Printf("Cleanup: rate limits: %v", err)
	}
}

// Stop stops the notification service
func (s *Service) Stop() {
	close(s.stopCh)
}

// QueueAlert adds an alert to the pending batch
func (s *Service) QueueAlert(alert value.Alert) {
	if !s.config.Enabled {
		return
	}

	if s.db != nil {
		data, err := json.Marshal(alert)
		if err == nil {
			err = s.db.AddPendingNotification(string(data))
		}
		if err != nil {
			log.Printf("Failed to queue alert %s: %v", alert.ID, err)
		}
	} else {
		s.mu.Lock()
		s.pendingAlerts = append(s.pendingAlerts, alert)
		s.mu.Unlock()
	}

	log.Printf("Alert queued: %s %s %s", alert.GameKey, alert.ValueTeam, alert.FavOrDog)

	// Send immediately via WebSocket
	s.sendWebSocket(alert)
}

// QueueAlerts adds multiple alerts to the pending batch
func (s *Service) QueueAlerts(alerts []value.Alert) {
	for _, alert := range alerts {
		s.QueueAlert(alert)
	}
}

// processBatch drains the pending queue and sends one push notification
func (s *Service) processBatch() {
	batch, ids := s.takePending()
	if len(batch) == 0 {
		return
	}
	defer s.clearPending(ids)

	// Check if we're in quiet hours
	if s.isQuietHours() {
		log.Printf("Quiet hours - skipping push for %d alerts", len(batch))
		return
	}

	// Check rate limit
	if !s.checkRateLimit("push") {
		log.Printf("Rate limit exceeded - skipping push for %d alerts", len(batch))
		return
	}

	// Send push notification
	if err := s.sendPush(batch); err != nil {
		log.Printf("Failed to send push notification: %v", err)
	}
}

// takePending reads the queued alerts. With a database the
// pending_notifications table is the queue; rows stay put until
// clearPending runs, so alerts queued before a crash are still
// picked up by the next batch after restart.
func (s *Service) takePending() ([]value.Alert, []int64) {
	if s.db == nil {
		s.mu.Lock()
		batch := s.pendingAlerts
		s.pendingAlerts = make([]value.Alert, 0)
		s.mu.Unlock()
		return batch, nil
	}

	pending, err := s.db.GetPendingNotifications()
	if err != nil {
		log.Printf("Failed to load pending notifications: %v", err)
		return nil, nil
	}

	batch := make([]value.Alert, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, n := range pending {
		var alert value.Alert
		if err := json.Unmarshal([]byte(n.AlertJSON), &alert); err != nil {
			log.Printf("Dropping unreadable pending alert %d: %v", n.ID, err)
			ids = append(ids, n.ID)
			continue
		}
		batch = append(batch, alert)
		ids = append(ids, n.ID)
	}
	return batch, ids
}

// clearPending removes processed rows from the queue
func (s *Service) clearPending(ids []int64) {
	if s.db == nil || len(ids) == 0 {
		return
	}
	if err := s.db.ClearPendingNotifications(ids); err != nil {
		log.Printf("Failed to clear pending notifications: %v", err)
	}
}

// sendWebSocket sends an alert via WebSocket
func (s *Service) sendWebSocket(alert value.Alert) {
	if s.hub == nil {
		return
	}

	if s.db != nil {
		prefs, err := s.db.GetPreferences()
		if err != nil || !prefs.EnableWebsocket {
			return
		}
	}

	s.hub.BroadcastAlerts(alert.Week, []value.Alert{alert})
}

// sendPush sends a batched push notification
func (s *Service) sendPush(batch []value.Alert) error {
	if s.config.VAPIDPrivateKey == "" || s.config.VAPIDPublicKey == "" {
		log.Println("VAPID keys not configured - skipping push")
		return nil
	}
	if s.db == nil {
		return nil
	}

	prefs, err := s.db.GetPreferences()
	if err != nil {
		return fmt.Errorf("failed to get preferences: %w", err)
	}

	if !prefs.EnablePush || prefs.PushSubscription == "" {
		return nil
	}

	// Create notification payload
	payload := PushPayload{
		Title: s.formatTitle(batch),
		Body:  s.formatBody(batch),
		Icon:  "/icon-192.png",
		Badge: "/badge-72.png",
		Tag:   "value-alerts",
		Data: PushData{
			URL:    "/",
			Alerts: batch,
			Count:  len(batch),
		},
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Parse subscription
	sub := &webpush.Subscription{}
	if err := json.Unmarshal([]byte(prefs.PushSubscription), sub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	// Send push notification
	resp, err := webpush.SendNotification(payloadJSON, sub, &webpush.Options{
		Subscriber:      s.config.VAPIDSubject,
		VAPIDPublicKey:  s.config.VAPIDPublicKey,
		VAPIDPrivateKey: s.config.VAPIDPrivateKey,
		TTL:             3600, // 1 hour
	})
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Subscription might be invalid
		if resp.StatusCode == 410 || resp.StatusCode == 404 {
			log.Println("Push subscription expired/invalid - disabling")
			s.db.UpdatePreferences(&database.Preferences{
				EnablePush:       false,
				PushSubscription: "",
			})
		}
		return fmt.Errorf("push failed with status %d", resp.StatusCode)
	}

	// Increment rate limit
	s.db.IncrementRateLimit("push")

	log.Printf("Push notification sent: %d alerts", len(batch))
	return nil
}

// formatTitle creates the push notification title
func (s *Service) formatTitle(batch []value.Alert) string {
	if len(batch) == 1 {
		a := batch[0]
		return fmt.Sprintf("Value Alert: %s @ %s", a.AwayTeam, a.HomeTeam)
	}

	highCount := 0
	for _, a := range batch {
		if a.Confidence == value.ConfidenceHigh {
			highCount++
		}
	}

	if highCount > 0 {
		return fmt.Sprintf("%d Value Alerts (%d High Confidence)", len(batch), highCount)
	}
	return fmt.Sprintf("%d Value Alerts", len(batch))
}

// formatBody creates the push notification body
func (s *Service) formatBody(batch []value.Alert) string {
	if len(batch) == 1 {
		a := batch[0]
		return fmt.Sprintf("%s (%s): model %+.1f vs market %+.1f, edge %+.1f",
			a.ValueTeam, a.FavOrDog, a.PredictedSpread, a.MarketSpread, a.Diff)
	}

	// Summary for multiple alerts
	lines := make([]string, 0, 3)
	for i, a := range batch {
		if i >= 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %+.1f (%s)", a.ValueTeam, a.Diff, a.FavOrDog))
	}

	body := ""
	for i, line := range lines {
		if i > 0 {
			body += " | "
		}
		body += line
	}

	if len(batch) > 3 {
		body += fmt.Sprintf(" +%d more", len(batch)-3)
	}

	return body
}

// isQuietHours checks if current time is within quiet hours
func (s *Service) isQuietHours() bool {
	if s.db == nil {
		return false
	}
	prefs, err := s.db.GetPreferences()
	if err != nil {
		return false
	}

	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		loc = time.Local
	}

	now := time.Now().In(loc)
	currentMinutes := now.Hour()*60 + now.Minute()

	// Parse quiet start
	startHour, startMin := 23, 0
	fmt.Sscanf(prefs.QuietStart, "%d:%d", &startHour, &startMin)
	startMinutes := startHour*60 + startMin

	// Parse quiet end
	endHour, endMin := 8, 0
	fmt.Sscanf(prefs.QuietEnd, "%d:%d", &endHour, &endMin)
	endMinutes := endHour*60 + endMin

	// Handle overnight quiet hours (e.g., 23:00 - 08:00)
	if startMinutes > endMinutes {
		// Quiet hours span midnight
		return currentMinutes >= startMinutes || currentMinutes < endMinutes
	}

	// Normal case (e.g., 02:00 - 06:00)
	return currentMinutes >= startMinutes && currentMinutes < endMinutes
}

// checkRateLimit checks if we can send on a channel
func (s *Service) checkRateLimit(channel string) bool {
	if s.db == nil {
		return true
	}
	prefs, err := s.db.GetPreferences()
	if err != nil {
		return true
	}

	limit := prefs.RateLimitPush
	canSend, remaining, err := s.db.CheckRateLimit(channel, limit)
	if err != nil {
		log.Printf("Rate limit check error: %v", err)
		return true
	}

	if !canSend {
		log.Printf("Rate limit exceeded for %s (0 remaining)", channel)
	} else {
		log.Printf("Rate limit OK for %s (%d remaining)", channel, remaining)
	}

	return canSend
}

// GetVAPIDPublicKey returns the public key for client subscription
func (s *Service) GetVAPIDPublicKey() string {
	return s.config.VAPIDPublicKey
}

// PushPayload represents the push notification payload
type PushPayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Icon  string   `json:"icon,omitempty"`
	Badge string   `json:"badge,omitempty"`
	Tag   string   `json:"tag,omitempty"`
	Data  PushData `json:"data,omitempty"`
}

// PushData represents custom data in push notification
type PushData struct {
	URL    string        `json:"url,omitempty"`
	Alerts []value.Alert `json:"alerts,omitempty"`
	Count  int           `json:"count"`
}
