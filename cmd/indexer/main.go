package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/landledger/landledger/internal/adapters/ethereum"
	natsadapter "github.com/landledger/landledger/internal/adapters/nats"
	"github.com/landledger/landledger/internal/adapters/postgres"
	"github.com/landledger/landledger/internal/core/ports"
	"github.com/landledger/landledger/internal/core/usecases"
	"github.com/landledger/landledger/internal/pkg/config"
	"github.com/landledger/landledger/internal/pkg/logging"
)

func main() {
	var opts struct {
		Once bool `long:"once" description:"Run a single sync and exit"`
	}
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load("landledger-indexer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The indexer only reads the ledger; it never needs the signing key.
	session := ethereum.NewSession(ethereum.SessionConfig{
		RPCURL:  cfg.Ledger.RPCURL,
		ChainID: cfg.Ledger.ChainID,
	}, nil)
	if err := session.Connect(ctx); err != nil {
		log.Fatalf("ledger: %v", err)
	}
	defer session.Disconnect()
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
		slog.Warn("nats unavailable, changes will not be announced", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	indexer := usecases.NewIndexerService(ledger, postgres.NewLandRepo(db), postgres.NewTransferRepo(db), publisher)

	if opts.Once {
		res, err := indexer.Sync(ctx)
		if err != nil {
			log.Fatalf("sync: %v", err)
		}
		slog.Info("sync complete", "scanned", res.Scanned, "indexed", res.Indexed,
			"registered", res.Registered, "transferred", res.Transferred)
		return
	}

	slog.Info("indexer started", "interval", cfg.Indexer.PollInterval)
	if err := indexer.Run(ctx, cfg.Indexer.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("indexer: %v", err)
	}
	slog.Info("indexer stopped")
}
