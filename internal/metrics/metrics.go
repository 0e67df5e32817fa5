package metrics

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Metrics tracks system health and performance metrics
type Metrics struct {
	// Refresh metrics
	RefreshCount        atomic.Int64 // Total refreshes executed
	RefreshSuccessCount atomic.Int64 // Successful refreshes
	RefreshErrorCount   atomic.Int64 // Failed refreshes
	LastRefreshTime     atomic.Value // time.Time of last refresh
	LastRefreshDuration atomic.Int64 // Duration in milliseconds
	LastRefreshError    atomic.Value // Last error message (string)
	ConsecutiveErrors   atomic.Int64 // Consecutive refresh failures

	// Pipeline metrics
	RowsEmitted  atomic.Int64 // Rows in the latest snapshot
	JoinMisses   atomic.Int64 // Predictions with no matching betting line
	AlertsRaised atomic.Int64 // Value alerts detected

	// WebSocket metrics
	ConnectionsTotal   atomic.Int64 // Total connections ever made
	ConnectionsCurrent atomic.Int64 // Current active connections
	ConnectionsPeak    atomic.Int64 // Peak concurrent connections
	MessagesOut        atomic.Int64 // Messages sent to clients
	MessagesFailed     atomic.Int64 // Failed message sends
	BytesOut           atomic.Int64 // Total bytes sent

	// Change detection metrics
	ChangesDetected atomic.Int64 // Number of times the snapshot changed
	BroadcastCount  atomic.Int64 // Number of broadcasts sent
	LastChangeTime  atomic.Value // time.Time of last detected change

	StartTime time.Time
}

// New creates a new Metrics instance
func New() *Metrics {
	m := &Metrics{
		StartTime: time.Now(),
	}
	m.LastRefreshTime.Store(time.Time{})
	m.LastChangeTime.Store(time.Time{})
	m.LastRefreshError.Store("")
	return m
}

// RecordRefreshStart records the start of a refresh
func (m *Metrics) RecordRefreshStart() time.Time {
	return time.Now()
}

// RecordRefreshSuccess records a successful refresh
func (m *Metrics) RecordRefreshSuccess(start time.Time, rowCount, missCount int) {
	duration := time.Since(start)

	m.RefreshCount.Add(1)
	m.RefreshSuccessCount.Add(1)
	m.LastRefreshTime.Store(time.Now())
	m.LastRefreshDuration.Store(duration.Milliseconds())
	m.ConsecutiveErrors.Store(0)
	m.LastRefreshError.Store("")
	m.RowsEmitted.Store(int64(rowCount))
	m.JoinMisses.Add(int64(missCount))
}

// RecordRefreshError records a failed refresh
func (m *Metrics) RecordRefreshError(start time.Time, err error) {
	m.RefreshCount.Add(1)
	m.RefreshErrorCount.Add(1)
	m.LastRefreshTime.Store(time.Now())
	m.LastRefreshDuration.Store(time.Since(start).Milliseconds())
	m.ConsecutiveErrors.Add(1)
	m.LastRefreshError.Store(err.Error())
}

// RecordAlerts records detected value alerts
func (m *Metrics) RecordAlerts(count int) {
	m.AlertsRaised.Add(int64(count))
}

// RecordChange records when the snapshot content changes
func (m *Metrics) RecordChange() {
	m.ChangesDetected.Add(1)
	m.LastChangeTime.Store(time.Now())
}

// RecordBroadcast records a broadcast to clients
func (m *Metrics) RecordBroadcast(messageSize int, clientCount int) {
	m.BroadcastCount.Add(1)
	m.MessagesOut.Add(int64(clientCount))
	m.BytesOut.Add(int64(messageSize * clientCount))
}

// RecordMessageFailed records a failed message send
func (m *Metrics) RecordMessageFailed() {
	m.MessagesFailed.Add(1)
}

// RecordConnection records a new WebSocket connection
func (m *Metrics) RecordConnection() {
	m.ConnectionsTotal.Add(1)
	current := m.ConnectionsCurrent.Add(1)

	for {
		peak := m.ConnectionsPeak.Load()
		if current <= peak {
			break
		}
		if m.ConnectionsPeak.CompareAndSwap(peak, current) {
			break
		}
	}
}

// RecordDisconnection records a WebSocket disconnection
func (m *Metrics) RecordDisconnection() {
	m.ConnectionsCurrent.Add(-1)
}

// HealthStatus represents the system health
type HealthStatus struct {
	Status        string          `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime        string          `json:"uptime"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Refresh       RefreshHealth   `json:"refresh"`
	Pipeline      PipelineHealth  `json:"pipeline"`
	WebSocket     WebSocketHealth `json:"websocket"`
	Warnings      []string        `json:"warnings,omitempty"`
}

type RefreshHealth struct {
	Enabled               bool      `json:"enabled"`
	TotalRefreshes        int64     `json:"total_refreshes"`
	SuccessfulRefreshes   int64     `json:"successful_refreshes"`
	FailedRefreshes       int64     `json:"failed_refreshes"`
	SuccessRate           float64   `json:"success_rate_percent"`
	LastRefreshTime       time.Time `json:"last_refresh_time"`
	LastRefreshAgo        string    `json:"last_refresh_ago"`
	LastRefreshDurationMs int64     `json:"last_refresh_duration_ms"`
	ConsecutiveErrors     int64     `json:"consecutive_errors"`
	LastError             string    `json:"last_error,omitempty"`
	ChangesDetected       int64     `json:"changes_detected"`
	LastChangeTime        time.Time `json:"last_change_time,omitempty"`
	LastChangeAgo         string    `json:"last_change_ago,omitempty"`
}

type PipelineHealth struct {
	RowsEmitted  int64 `json:"rows_emitted"`
	JoinMisses   int64 `json:"join_misses"`
	AlertsRaised int64 `json:"alerts_raised"`
}

type WebSocketHealth struct {
	CurrentConnections int64   `json:"current_connections"`
	PeakConnections    int64   `json:"peak_connections"`
	TotalConnections   int64   `json:"total_connections"`
	MessagesSent       int64   `json:"messages_sent"`
	MessagesFailed     int64   `json:"messages_failed"`
	DeliveryRate       float64 `json:"delivery_rate_percent"`
	BytesSent          int64   `json:"bytes_sent"`
	BroadcastCount     int64   `json:"broadcast_count"`
}

// GetHealth returns current health status
func (m *Metrics) GetHealth(pollingEnabled bool) HealthStatus {
	uptime := time.Since(m.StartTime)

	totalRefreshes := m.RefreshCount.Load()
	successRefreshes := m.RefreshSuccessCount.Load()
	failedRefreshes := m.RefreshErrorCount.Load()

	var successRate float64
	if totalRefreshes > 0 {
		successRate = float64(successRefreshes) / float64(totalRefreshes) * 100
	}

	messagesSent := m.MessagesOut.Load()
	messagesFailed := m.MessagesFailed.Load()
	var deliveryRate float64
	if messagesSent+messagesFailed > 0 {
		deliveryRate = float64(messagesSent) / float64(messagesSent+messagesFailed) * 100
	}

	lastRefreshTime := m.LastRefreshTime.Load().(time.Time)
	lastChangeTime := m.LastChangeTime.Load().(time.Time)
	lastRefreshError := m.LastRefreshError.Load().(string)

	// Determine overall health status
	status := "healthy"
	var warnings []string

	consecutiveErrors := m.ConsecutiveErrors.Load()
	if consecutiveErrors >= 5 {
		status = "unhealthy"
		warnings = append(warnings, "High consecutive refresh errors")
	} else if consecutiveErrors >= 3 {
		status = "degraded"
		warnings = append(warnings, "Multiple consecutive refresh errors")
	}

	if pollingEnabled && !lastRefreshTime.IsZero() && time.Since(lastRefreshTime) > 30*time.Minute {
		status = "degraded"
		warnings = append(warnings, "Polling appears stale (>30 min since last refresh)")
	}

	if deliveryRate < 95 && messagesSent > 100 {
		warnings = append(warnings, "Message delivery rate below 95%")
	}

	var lastRefreshAgo, lastChangeAgo string
	if !lastRefreshTime.IsZero() {
		lastRefreshAgo = time.Since(lastRefreshTime).Round(time.Second).String()
	}
	if !lastChangeTime.IsZero() {
		lastChangeAgo = time.Since(lastChangeTime).Round(time.Second).String()
	}

	return HealthStatus{
		Status:        status,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Refresh: RefreshHealth{
			Enabled:               pollingEnabled,
			TotalRefreshes:        totalRefreshes,
			SuccessfulRefreshes:   successRefreshes,
			FailedRefreshes:       failedRefreshes,
			SuccessRate:           successRate,
			LastRefreshTime:       lastRefreshTime,
			LastRefreshAgo:        lastRefreshAgo,
			LastRefreshDurationMs: m.LastRefreshDuration.Load(),
			ConsecutiveErrors:     consecutiveErrors,
			LastError:             lastRefreshError,
			ChangesDetected:       m.ChangesDetected.Load(),
			LastChangeTime:        lastChangeTime,
			LastChangeAgo:         lastChangeAgo,
		},
		Pipeline: PipelineHealth{
			RowsEmitted:  m.RowsEmitted.Load(),
			JoinMisses:   m.JoinMisses.Load(),
			AlertsRaised: m.AlertsRaised.Load(),
		},
		WebSocket: WebSocketHealth{
			CurrentConnections: m.ConnectionsCurrent.Load(),
			PeakConnections:    m.ConnectionsPeak.Load(),
			TotalConnections:   m.ConnectionsTotal.Load(),
			MessagesSent:       messagesSent,
			MessagesFailed:     messagesFailed,
			DeliveryRate:       deliveryRate,
			BytesSent:          m.BytesOut.Load(),
			BroadcastCount:     m.BroadcastCount.Load(),
		},
		Warnings: warnings,
	}
}

// JSON returns metrics as JSON
func (m *Metrics) JSON(pollingEnabled bool) ([]byte, error) {
	return json.Marshal(m.GetHealth(pollingEnabled))
}
