package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denisbrodbeck/machineid"

	"tradehook/internal/admin"
	"tradehook/internal/api"
	"tradehook/internal/engine"
	"tradehook/internal/events"
	"tradehook/internal/notify"
	"tradehook/internal/persist"
	"tradehook/internal/position"
	"tradehook/internal/risk"
	"tradehook/pkg/config"
	"tradehook/pkg/db"
	"tradehook/pkg/gateio"
)

var buildVersion = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("starting tradehook on port %s", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	symbols, err := config.LoadSymbols(cfg.SymbolsPath)
	if err != nil {
		log.Fatalf("failed to load symbol parameters: %v", err)
	}

	exchange := gateio.New(gateio.Config{
		APIKey:    cfg.GateAPIKey,
		APISecret: cfg.GateAPISecret,
		BaseURL:   cfg.GateBaseURL,
	})

	queue := persist.NewQueue(database, cfg.DataDir, 256)
	queue.Start()

	ledger := position.NewLedger()

	gate := admin.NewGate(loadPolicy(ctx, database))

	riskSettings := loadRiskSettings(ctx, database, cfg)
	riskMgr := risk.NewManager(riskSettings, exchange, exchange, ledger)
	if riskSettings.MaxDrawdownPct > 0 {
		riskMgr.SetDrawdownPolicy(risk.DrawdownPolicy(riskSettings.MaxDrawdownPct,
			func(ctx context.Context) (float64, float64, error) {
				stats := gate.Stats()
				balance, err := exchange.AvailableBalance(ctx, cfg.QuoteCurrency)
				if err != nil {
					return 0, 0, err
				}
				return stats.Loss - stats.Profit, balance, nil
			}))
	}

	eng := engine.New(exchange, riskMgr, ledger, bus, symbols, engine.Config{
		RiskPercentage:   cfg.RiskPercentage,
		MaxPositionValue: cfg.MaxPositionVal,
		MinOrderValue:    cfg.MinOrderValue,
	})
	eng.Start()

	if cfg.BracketInterval > 0 {
		go eng.Watcher().Run(ctx, time.Duration(cfg.BracketInterval)*time.Second)
	}

	// Notification fan-out
	sinks := []notify.Sink{notify.LogSink{}}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		if sink, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID); err != nil {
			log.Printf("telegram sink disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, notify.NewDiscordSink(cfg.DiscordWebhookURL))
	}
	notifier := notify.New(bus, sinks...)
	go notifier.Run(ctx)

	instanceID, err := machineid.ID()
	if err != nil {
		instanceID = "unknown"
	}

	bus.Publish(events.EventSystem, events.SystemEvent{
		Message:   "tradehook started on instance " + instanceID,
		Level:     "info",
		Timestamp: time.Now().UTC(),
	})

	appState, err := database.LoadAppState(ctx)
	if err != nil {
		log.Fatalf("failed to load app state: %v", err)
	}

	server, err := api.NewServer(bus, database, gate, riskMgr, eng, queue, api.SystemMeta{
		Venue:      "gateio",
		InstanceID: instanceID,
		Version:    buildVersion,
	}, api.Options{
		WebhookToken:  cfg.WebhookToken,
		JWTSecret:     cfg.JWTSecret,
		AdminPassword: cfg.AdminPassword,
		AppState:      appState,
	})
	if err != nil {
		log.Fatalf("failed to build API server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")

	eng.Stop()
	bus.Publish(events.EventSystem, events.SystemEvent{
		Message:   "tradehook shutting down",
		Level:     "info",
		Timestamp: time.Now().UTC(),
	})
	// Give the notifier a moment to pick the shutdown notice up.
	time.Sleep(200 * time.Millisecond)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	// Drain pending writes before closing the database.
	queue.Stop()
	log.Println("shutdown complete")
}

// loadPolicy restores persisted policy settings, falling back to defaults.
func loadPolicy(ctx context.Context, database *db.Database) admin.PolicySettings {
	settings := admin.DefaultSettings()
	raw, err := database.LoadSetting(ctx, "policy_settings")
	if err != nil || raw == "" {
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		log.Printf("ignoring malformed persisted policy settings: %v", err)
		return admin.DefaultSettings()
	}
	return settings
}

// loadRiskSettings restores persisted risk settings, with env values as the
// baseline for a fresh install.
func loadRiskSettings(ctx context.Context, database *db.Database, cfg *config.Config) risk.Settings {
	settings := risk.Settings{
		MaxPositionValue: cfg.MaxPositionVal,
		MaxDrawdownPct:   risk.DefaultSettings().MaxDrawdownPct,
		RiskPercentage:   cfg.RiskPercentage,
		MaxCorrelated:    risk.DefaultSettings().MaxCorrelated,
		MinQuoteBalance:  cfg.MinQuoteBalance,
	}
	raw, err := database.LoadSetting(ctx, "risk_settings")
	if err != nil || raw == "" {
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		log.Printf("ignoring malformed persisted risk settings: %v", err)
	}
	return settings
}
