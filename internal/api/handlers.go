package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/joshuakim/valuefinder/internal/database"
	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/notifications"
	"github.com/joshuakim/valuefinder/internal/service"
	"github.com/joshuakim/valuefinder/internal/value"
	"github.com/joshuakim/valuefinder/internal/websocket"
)

// Handler holds HTTP handlers
type Handler struct {
	pipeline       *service.Pipeline
	db             *database.DB
	hub            *websocket.Hub
	notifier       *notifications.Service
	metrics        *metrics.Metrics
	pollingEnabled bool
}

// NewHandler creates a new handler
func NewHandler(p *service.Pipeline, db *database.DB, hub *websocket.Hub, n *notifications.Service, m *metrics.Metrics, pollingEnabled bool) *Handler {
	return &Handler{
		pipeline:       p,
		db:             db,
		hub:            hub,
		notifier:       n,
		metrics:        m,
		pollingEnabled: pollingEnabled,
	}
}

// RegisterRoutes sets up the HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.handleHealth)
	mux.HandleFunc("/api/games", h.handleGames)
	mux.HandleFunc("/api/games/week/", h.handleGamesByWeek)
	mux.HandleFunc("/api/value", h.handleValue)
	mux.HandleFunc("/api/refresh", h.handleRefresh)
	mux.HandleFunc("/api/preferences", h.handlePreferences)
	mux.HandleFunc("/api/subscribe", h.handleSubscribe)
	mux.HandleFunc("/api/vapid-public-key", h.handleVAPIDPublicKey)
	mux.HandleFunc("/api/ws", h.handleWebSocket)
}

// handleHealth returns service health status plus hub subscription counts
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		metrics.HealthStatus
		Hub map[string]interface{} `json:"hub,omitempty"`
	}{HealthStatus: h.metrics.GetHealth(h.pollingEnabled)}
	if h.hub != nil {
		resp.Hub = h.hub.GetStats()
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// handleGames returns the full normalized snapshot
// GET /api/games
func (h *Handler) handleGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rows := h.pipeline.Store().Rows()
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"count":        len(rows),
		"last_updated": h.pipeline.Store().LastUpdated(),
		"games":        rows,
	})
}

// handleGamesByWeek returns the snapshot rows for one week
// GET /api/games/week/{week}
func (h *Handler) handleGamesByWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	week, ok := h.parseWeek(r.URL.Path, "/api/games/week/")
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "invalid week: use /api/games/week/{1-22}")
		return
	}

	rows := h.pipeline.Store().RowsByWeek(week)
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"week":  week,
		"count": len(rows),
		"games": rows,
	})
}

// handleValue returns current spread value opportunities
// GET /api/value?threshold=2.0
func (h *Handler) handleValue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	threshold := value.DefaultSpreadThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			h.errorResponse(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = v
	}

	rows := h.pipeline.Store().Rows()
	games := make([]value.GameData, 0, len(rows))
	for _, row := range rows {
		games = append(games, value.GameData{
			Week:             row.Week,
			AwayTeam:         row.AwayTeam,
			HomeTeam:         row.HomeTeam,
			PredictedAway:    row.PredictedAwayScore,
			PredictedHome:    row.PredictedHomeScore,
			Confidence:       row.Confidence,
			MarketSpread:     row.MarketSpread,
			HomeMoneyline:    value.DefaultHomeMoneyline,
			CommunityPercent: value.DefaultCommunityPercent,
		})
	}

	opps := value.DetectSpreadOpportunities(games, threshold)
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"threshold":     threshold,
		"count":         len(opps),
		"opportunities": opps,
	})
}

// handleRefresh re-runs the scrape pipeline immediately
// POST /api/refresh
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rows, changed, err := h.pipeline.Refresh(r.Context())
	if err != nil {
		h.errorResponse(w, http.StatusInternalServerError, "refresh failed: "+err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "data refreshed",
		"count":   len(rows),
		"changed": changed,
	})
}

// handlePreferences gets or updates notification preferences
// GET /api/preferences
// PUT /api/preferences
func (h *Handler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		prefs, err := h.db.GetPreferences()
		if err != nil {
			h.errorResponse(w, http.StatusInternalServerError, "failed to load preferences")
			return
		}
		h.jsonResponse(w, http.StatusOK, prefs)

	case http.MethodPut:
		var prefs database.Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "invalid preferences payload")
			return
		}
		if err := h.db.UpdatePreferences(&prefs); err != nil {
			h.errorResponse(w, http.StatusInternalServerError, "failed to save preferences")
			return
		}
		h.jsonResponse(w, http.StatusOK, map[string]string{"message": "preferences updated"})

	default:
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSubscribe registers or removes a web push subscription
// POST /api/subscribe   (body: raw PushSubscription JSON)
// DELETE /api/subscribe
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil || len(body) == 0 || !json.Valid(body) {
			h.errorResponse(w, http.StatusBadRequest, "invalid subscription payload")
			return
		}
		if err := h.db.SetPushSubscription(string(body)); err != nil {
			h.errorResponse(w, http.StatusInternalServerError, "failed to save subscription")
			return
		}
		h.jsonResponse(w, http.StatusOK, map[string]string{"message": "subscribed"})

	case http.MethodDelete:
		if err := h.db.Unsubscribe(); err != nil {
			h.errorResponse(w, http.StatusInternalServerError, "failed to unsubscribe")
			return
		}
		h.jsonResponse(w, http.StatusOK, map[string]string{"message": "unsubscribed"})

	default:
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleVAPIDPublicKey returns the public key clients need to subscribe
// GET /api/vapid-public-key
func (h *Handler) handleVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.notifier == nil || h.notifier.GetVAPIDPublicKey() == "" {
		h.errorResponse(w, http.StatusServiceUnavailable, "push notifications not configured")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"public_key": h.notifier.GetVAPIDPublicKey()})
}

// handleWebSocket upgrades the connection and hands it to the hub
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, w, r)
}

// parseWeek extracts and validates a week number from the URL path
func (h *Handler) parseWeek(path, prefix string) (int, bool) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.TrimSuffix(raw, "/")

	week, err := strconv.Atoi(raw)
	if err != nil || week < 1 || week > 22 {
		return 0, false
	}
	return week, true
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// CORSMiddleware wraps a handler to add CORS headers for development
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
