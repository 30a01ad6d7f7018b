package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/landledger/landledger/internal/adapters/ethereum"
	"github.com/landledger/landledger/internal/adapters/gemini"
	"github.com/landledger/landledger/internal/adapters/http"
	natsadapter "github.com/landledger/landledger/internal/adapters/nats"
	"github.com/landledger/landledger/internal/adapters/postgres"
	"github.com/landledger/landledger/internal/adapters/valkey"
	"github.com/landledger/landledger/internal/core/ports"
	"github.com/landledger/landledger/internal/core/usecases"
	"github.com/landledger/landledger/internal/pkg/config"
	"github.com/landledger/landledger/internal/pkg/logging"
	"github.com/landledger/landledger/internal/pkg/metrics"
	"github.com/landledger/landledger/internal/pkg/telemetry"
	"github.com/landledger/landledger/internal/workflows"
)

func main() {
	cfg, err := config.Load("landledger-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Ledger
	session := ethereum.NewSession(ethereum.SessionConfig{
		RPCURL:     cfg.Ledger.RPCURL,
		ChainID:    cfg.Ledger.ChainID,
		PrivateKey: cfg.Ledger.PrivateKey,
	}, nil)
	if err := session.Connect(ctx); err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer session.Disconnect()
	ledger, err := ethereum.NewContract(session, cfg.Ledger.ContractAddress, cfg.Ledger.ConfirmTimeout)
	if err != nil {
		log.Fatalf("ledger contract: %v", err)
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{
		Maps:   usecases.NewMapService(),
		DB:     db,
		Ledger: session,
	}

	// Cache
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, owner lists will not be cached", "error", err)
	} else {
		defer vc.Close()
		cache, deps.Cache = vc, vc
	}

	// NATS
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, land events will not be published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	deps.Lands = usecases.NewLandService(ledger, postgres.NewLandRepo(db), postgres.NewTransferRepo(db), publisher, cache)

	// Events from the worker and indexer drop stale owner lists. Every
	// replica needs every event, so the consumer is per host.
	host, _ := os.Hostname()
	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "api-cache-"+host); err != nil {
		slog.Warn("land event subscription unavailable", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeLandEvents(ctx, deps.Lands.HandleLandEvent); err != nil {
			slog.Warn("subscribe land events", "error", err)
		}
	}

	// Location suggestions
	if cfg.AI.APIKey != "" {
		suggester, err := gemini.New(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			slog.Warn("location suggestions unavailable", "error", err)
		} else {
			defer suggester.Close()
			deps.Suggest = usecases.NewSuggestService(suggester)
		}
	}

	// Workflows
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		slog.Warn("temporal unavailable, async writes disabled", "error", err)
	} else {
		defer tc.Close()
		deps.Workflows = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "LandLedger API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "writable", session.Account() != "")
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
