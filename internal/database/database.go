package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joshuakim/valuefinder/internal/models"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("Database initialized at %s", dbPath)
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	-- Normalized game rows from the latest refresh. Position preserves the
	-- source table order so exports match the scrape.
	CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position INTEGER NOT NULL,

		week INTEGER NOT NULL,
		game_date TEXT NOT NULL,
		game_time TEXT NOT NULL,
		away_team TEXT NOT NULL,
		home_team TEXT NOT NULL,

		predicted_away_score REAL NOT NULL,
		predicted_home_score REAL NOT NULL,
		confidence REAL NOT NULL,
		market_spread REAL NOT NULL,
		total REAL NOT NULL,
		line_matched BOOLEAN DEFAULT false,

		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

		UNIQUE(week, away_team, home_team)
	);

	-- Notification preferences (single user for now)
	CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY CHECK (id = 1),

		-- Channel settings
		enable_websocket BOOLEAN DEFAULT true,
		enable_push BOOLEAN DEFAULT false,
		push_subscription TEXT,

		-- Detection thresholds
		spread_threshold REAL DEFAULT 2.0,
		probability_threshold REAL DEFAULT 0.05,

		-- Quiet hours
		quiet_start TEXT DEFAULT '23:00',
		quiet_end TEXT DEFAULT '08:00',
		timezone TEXT DEFAULT 'America/New_York',

		-- Rate limits (per hour)
		rate_limit_push INTEGER DEFAULT 20,

		-- Batching
		batch_interval_seconds INTEGER DEFAULT 60,

		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Insert default preferences if not exists
	INSERT OR IGNORE INTO preferences (id) VALUES (1);

	-- Alert history for deduplication
	CREATE TABLE IF NOT EXISTS alert_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,

		-- Alert identification
		game_key TEXT NOT NULL,
		method TEXT NOT NULL,
		side TEXT NOT NULL,

		-- Alert details
		spread_value REAL NOT NULL,
		difference REAL NOT NULL,
		confidence TEXT NOT NULL,

		-- Timing
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		cooldown_until TIMESTAMP NOT NULL,

		UNIQUE(game_key, method, side)
	);

	-- Rate limit tracking
	CREATE TABLE IF NOT EXISTS rate_limits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		window_start TIMESTAMP NOT NULL,
		count INTEGER DEFAULT 0,
		UNIQUE(channel, window_start)
	);

	-- Pending notifications for batching
	CREATE TABLE IF NOT EXISTS pending_notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		batch_id TEXT
	);

	-- Create indexes
	CREATE INDEX IF NOT EXISTS idx_games_week
		ON games(week);
	CREATE INDEX IF NOT EXISTS idx_alert_history_lookup
		ON alert_history(game_key, method, side);
	CREATE INDEX IF NOT EXISTS idx_alert_history_cooldown
		ON alert_history(cooldown_until);
	CREATE INDEX IF NOT EXISTS idx_pending_batch
		ON pending_notifications(batch_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveGames replaces the stored snapshot with the given rows, preserving
// their order via the position column. Runs in one transaction so readers
// never see a half-written snapshot.
func (db *DB) SaveGames(rows []models.OutputRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM games`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO games
			(position, week, game_date, game_time, away_team, home_team,
			 predicted_away_score, predicted_home_score, confidence,
			 market_spread, total, line_matched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.Exec(
			i, row.Week, row.Date, row.Time, row.AwayTeam, row.HomeTeam,
			row.PredictedAwayScore, row.PredictedHomeScore, row.Confidence,
			row.MarketSpread, row.Total, row.LineMatched,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetGames returns the stored snapshot in source order
func (db *DB) GetGames() ([]models.OutputRow, error) {
	return db.queryGames(`
		SELECT week, game_date, game_time, away_team, home_team,
			   predicted_away_score, predicted_home_score, confidence,
			   market_spread, total, line_matched
		FROM games ORDER BY position ASC
	`)
}

// GetGamesByWeek returns stored rows for one week in source order
func (db *DB) GetGamesByWeek(week int) ([]models.OutputRow, error) {
	return db.queryGames(`
		SELECT week, game_date, game_time, away_team, home_team,
			   predicted_away_score, predicted_home_score, confidence,
			   market_spread, total, line_matched
		FROM games WHERE week = ? ORDER BY position ASC
	`, week)
}

func (db *DB) queryGames(query string, args ...interface{}) ([]models.OutputRow, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OutputRow
	for rows.Next() {
		var r models.OutputRow
		if err := rows.Scan(
			&r.Week, &r.Date, &r.Time, &r.AwayTeam, &r.HomeTeam,
			&r.PredictedAwayScore, &r.PredictedHomeScore, &r.Confidence,
			&r.MarketSpread, &r.Total, &r.LineMatched,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Preferences represents user notification preferences
type Preferences struct {
	EnableWebsocket  bool   `json:"enable_websocket"`
	EnablePush       bool   `json:"enable_push"`
	PushSubscription string `json:"push_subscription,omitempty"`

	// Detection thresholds
	SpreadThreshold      float64 `json:"spread_threshold"`
	ProbabilityThreshold float64 `json:"probability_threshold"`

	// Quiet hours
	QuietStart string `json:"quiet_start"`
	QuietEnd   string `json:"quiet_end"`
	Timezone   string `json:"timezone"`

	// Rate limits
	RateLimitPush int `json:"rate_limit_push"`

	// Batching
	BatchIntervalSeconds int `json:"batch_interval_seconds"`

	UpdatedAt time.Time `json:"updated_at"`
}

// GetPreferences retrieves user preferences
func (db *DB) GetPreferences() (*Preferences, error) {
	row := db.conn.QueryRow(`
		SELECT
			enable_websocket, enable_push, push_subscription,
			spread_threshold, probability_threshold,
			quiet_start, quiet_end, timezone,
			rate_limit_push, batch_interval_seconds, updated_at
		FROM preferences WHERE id = 1
	`)

	var p Preferences
	var pushSub sql.NullString

	err := row.Scan(
		&p.EnableWebsocket, &p.EnablePush, &pushSub,
		&p.SpreadThreshold, &p.ProbabilityThreshold,
		&p.QuietStart, &p.QuietEnd, &p.Timezone,
		&p.RateLimitPush, &p.BatchIntervalSeconds, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pushSub.Valid {
		p.PushSubscription = pushSub.String
	}

	return &p, nil
}

// UpdatePreferences updates user preferences
func (db *DB) UpdatePreferences(p *Preferences) error {
	_, err := db.conn.Exec(`
		UPDATE preferences SET
			enable_websocket = ?,
			enable_push = ?,
			push_subscription = ?,
			spread_threshold = ?,
			probability_threshold = ?,
			quiet_start = ?,
			quiet_end = ?,
			timezone = ?,
			rate_limit_push = ?,
			batch_interval_seconds = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		p.EnableWebsocket, p.EnablePush, p.PushSubscription,
		p.SpreadThreshold, p.ProbabilityThreshold,
		p.QuietStart, p.QuietEnd, p.Timezone,
		p.RateLimitPush, p.BatchIntervalSeconds,
	)
	return err
}

// SetPushSubscription updates the push subscription
func (db *DB) SetPushSubscription(subscription string) error {
	_, err := db.conn.Exec(`
		UPDATE preferences SET
			push_subscription = ?,
			enable_push = true,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, subscription)
	return err
}

// Unsubscribe disables all notifications
func (db *DB) Unsubscribe() error {
	_, err := db.conn.Exec(`
		UPDATE preferences SET
			enable_websocket = false,
			enable_push = false,
			push_subscription = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`)
	return err
}

// AlertHistory represents a historical alert record
type AlertHistory struct {
	ID            int64     `json:"id"`
	GameKey       string    `json:"game_key"`
	Method        string    `json:"method"`
	Side          string    `json:"side"`
	SpreadValue   float64   `json:"spread_value"`
	Difference    float64   `json:"difference"`
	Confidence    string    `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// GetAlertHistory retrieves alert history for deduplication check
func (db *DB) GetAlertHistory(gameKey, method, side string) (*AlertHistory, error) {
	row := db.conn.QueryRow(`
		SELECT id, game_key, method, side,
			   spread_value, difference, confidence,
			   created_at, cooldown_until
		FROM alert_history
		WHERE game_key = ? AND method = ? AND side = ?
	`, gameKey, method, side)

	var h AlertHistory
	err := row.Scan(
		&h.ID, &h.GameKey, &h.Method, &h.Side,
		&h.SpreadValue, &h.Difference, &h.Confidence,
		&h.CreatedAt, &h.CooldownUntil,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveAlertHistory saves or updates alert history
func (db *DB) SaveAlertHistory(h *AlertHistory) error {
	_, err := db.conn.Exec(`
		INSERT INTO alert_history
			(game_key, method, side, spread_value, difference, confidence, cooldown_until)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_key, method, side)
		DO UPDATE SET
			spread_value = excluded.spread_value,
			difference = excluded.difference,
			confidence = excluded.confidence,
			cooldown_until = excluded.cooldown_until,
			created_at = CURRENT_TIMESTAMP
	`, h.GameKey, h.Method, h.Side,
		h.SpreadValue, h.Difference, h.Confidence, h.CooldownUntil)
	return err
}

// CleanupExpiredHistory removes old alert history
func (db *DB) CleanupExpiredHistory() error {
	_, err := db.conn.Exec(`
		DELETE FROM alert_history
		WHERE datetime(cooldown_until) < datetime('now', '-24 hours')
	`)
	return err
}

// CheckRateLimit checks if we can send on a channel
func (db *DB) CheckRateLimit(channel string, limit int) (bool, int, error) {
	windowStart := time.Now().Truncate(time.Hour)

	row := db.conn.QueryRow(`
		SELECT count FROM rate_limits
		WHERE channel = ? AND window_start = ?
	`, channel, windowStart)

	var count int
	err := row.Scan(&count)
	if err == sql.ErrNoRows {
		count = 0
	} else if err != nil {
		return false, 0, err
	}

	remaining := limit - count
	return count < limit, remaining, nil
}

// IncrementRateLimit increments the rate limit counter
func (db *DB) IncrementRateLimit(channel string) error {
	windowStart := time.Now().Truncate(time.Hour)

	_, err := db.conn.Exec(`
		INSERT INTO rate_limits (channel, window_start, count)
		VALUES (?, ?, 1)
		ON CONFLICT(channel, window_start)
		DO UPDATE SET count = count + 1
	`, channel, windowStart)
	return err
}

// CleanupOldRateLimits removes old rate limit records
func (db *DB) CleanupOldRateLimits() error {
	_, err := db.conn.Exec(`
		DELETE FROM rate_limits
		WHERE datetime(window_start) < datetime('now', '-2 hours')
	`)
	return err
}

// PendingNotification represents a batched notification
type PendingNotification struct {
	ID        int64     `json:"id"`
	AlertJSON string    `json:"alert_json"`
	CreatedAt time.Time `json:"created_at"`
	BatchID   string    `json:"batch_id"`
}

// AddPendingNotification adds a notification to the batch queue
func (db *DB) AddPendingNotification(alertJSON string) error {
	_, err := db.conn.Exec(`
		INSERT INTO pending_notifications (alert_json)
		VALUES (?)
	`, alertJSON)
	return err
}

// GetPendingNotifications retrieves all pending notifications
func (db *DB) GetPendingNotifications() ([]PendingNotification, error) {
	rows, err := db.conn.Query(`
		SELECT id, alert_json, created_at, COALESCE(batch_id, '')
		FROM pending_notifications
		WHERE batch_id IS NULL
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []PendingNotification
	for rows.Next() {
		var n PendingNotification
		if err := rows.Scan(&n.ID, &n.AlertJSON, &n.CreatedAt, &n.BatchID); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// ClearPendingNotifications removes processed notifications
func (db *DB) ClearPendingNotifications(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "DELETE FROM pending_notifications WHERE id IN ("
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	_, err := db.conn.Exec(query, args...)
	return err
}
