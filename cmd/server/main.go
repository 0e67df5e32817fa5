// Command server runs the HTTP API, websocket hub, and optional polling loop
// on top of the scrape pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshuakim/valuefinder/internal/api"
	"github.com/joshuakim/valuefinder/internal/config"
	"github.com/joshuakim/valuefinder/internal/database"
	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/notifications"
	"github.com/joshuakim/valuefinder/internal/polling"
	"github.com/joshuakim/valuefinder/internal/service"
	"github.com/joshuakim/valuefinder/internal/store"
	"github.com/joshuakim/valuefinder/internal/teams"
	"github.com/joshuakim/valuefinder/internal/value"
	"github.com/joshuakim/valuefinder/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	genKeys := flag.Bool("gen-vapid-keys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		notifications.PrintVAPIDKeys()
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Config: %v", err)
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	registry := teams.Default()
	if cfg.TeamsFile != "" {
		var err error
		registry, err = teams.LoadFile(cfg.TeamsFile)
		if err != nil {
			log.Fatalf("Teams: %v", err)
		}
	}

	db, err := database.New(cfg.Server.DatabasePath)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize components
	m := metrics.New()
	hub := websocket.NewHub(m, cfg.Server.MaxConnections)
	go hub.Run()

	dataStore := store.New()
	pipeline := service.New(cfg, registry, dataStore, db, m, hub)

	notifier := notifications.NewService(notifications.Config{
		VAPIDPublicKey:  cfg.Notifications.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Notifications.VAPIDPrivateKey,
		VAPIDSubject:    cfg.Notifications.VAPIDSubject,
		BatchInterval:   cfg.Notifications.BatchInterval,
		Enabled:         cfg.Notifications.Enabled,
	}, db, hub)
	go notifier.Start(ctx)

	pipeline.OnAlerts = func(alerts []value.Alert) {
		notifier.QueueAlerts(alerts)
	}

	if cfg.Polling.Enabled {
		poller := polling.New(polling.Config{
			Interval:             cfg.Polling.Interval,
			MaxRetries:           cfg.Polling.MaxRetries,
			RetryBaseDelay:       cfg.Polling.RetryBaseDelay,
			MaxConsecutiveErrors: cfg.Polling.MaxConsecutiveErrors,
			RecoveryInterval:     cfg.Polling.RecoveryInterval,
		}, pipeline, m)
		go poller.Start(ctx)
	}

	handler := api.NewHandler(pipeline, db, hub, notifier, m, cfg.Polling.Enabled)

	// Setup routes
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Wrap with CORS middleware for development
	corsHandler := api.CORSMiddleware(mux)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	fmt.Printf("ValueFinder API starting on http://localhost%s\n", addr)
	fmt.Println("\nEndpoints:")
	fmt.Println("  GET    /api/health            - Health and metrics")
	fmt.Println("  GET    /api/games             - Full normalized snapshot")
	fmt.Println("  GET    /api/games/week/{week} - Snapshot rows for one week")
	fmt.Println("  GET    /api/value             - Spread value opportunities")
	fmt.Println("  POST   /api/refresh           - Re-run the scrape pipeline")
	fmt.Println("  GET    /api/preferences       - Notification preferences")
	fmt.Println("  PUT    /api/preferences       - Update preferences")
	fmt.Println("  POST   /api/subscribe         - Register push subscription")
	fmt.Println("  DELETE /api/subscribe         - Remove push subscription")
	fmt.Println("  GET    /api/vapid-public-key  - Push subscription key")
	fmt.Println("  WS     /api/ws                - Live updates")
	fmt.Println()

	srv := &http.Server{Addr: addr, Handler: corsHandler}
	go func() {
		<-ctx.Done()
		hub.BroadcastStatus("shutting_down")
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
