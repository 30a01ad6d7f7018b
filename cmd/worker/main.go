package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/landledger/landledger/internal/adapters/ethereum"
	natsadapter "github.com/landledger/landledger/internal/adapters/nats"
	"github.com/landledger/landledger/internal/adapters/postgres"
	"github.com/landledger/landledger/internal/core/ports"
	"github.com/landledger/landledger/internal/core/usecases"
	"github.com/landledger/landledger/internal/pkg/config"
	"github.com/landledger/landledger/internal/pkg/logging"
	"github.com/landledger/landledger/internal/pkg/telemetry"
	"github.com/landledger/landledger/internal/workflows"
)

func main() {
	cfg, err := config.Load("landledger-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	session := ethereum.NewSession(ethereum.SessionConfig{
		RPCURL:     cfg.Ledger.RPCURL,
		ChainID:    cfg.Ledger.ChainID,
		PrivateKey: cfg.Ledger.PrivateKey,
	}, nil)
	if err := session.Connect(ctx); err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer session.Disconnect()
	if session.Account() == "" {
		slog.Warn("no private key configured; submissions will be rejected")
	}
	ledger, err := ethereum.NewContract(session, cfg.Ledger.ContractAddress, cfg.Ledger.ConfirmTimeout)
	if err != nil {
		log.Fatalf("ledger contract: %v", err)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, land events will not be published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	lands := postgres.NewLandRepo(db)
	transfers := postgres.NewTransferRepo(db)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RegisterLandWorkflow)
	w.RegisterWorkflow(workflows.TransferLandWorkflow)
	w.RegisterActivity(&workflows.LandActivities{
		// The land service gets no cache: the API drops its own cached
		// lists when it receives the published event.
		Lands:   usecases.NewLandService(ledger, lands, transfers, publisher, nil),
		Indexer: usecases.NewIndexerService(ledger, lands, transfers, publisher),
	})

	slog.Info("land worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
