package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fantadraft/asta/internal/auction/engine"
	"github.com/fantadraft/asta/internal/config"
	"github.com/fantadraft/asta/internal/gateway"
	"github.com/fantadraft/asta/internal/models"
	"github.com/fantadraft/asta/internal/replication"
	"github.com/fantadraft/asta/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "asta.yaml", "path to YAML config file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("auction service failed")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	jsCfg := replication.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	jsCfg.Room = cfg.Room

	publisher, err := replication.NewJetStreamPublisher(jsCfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Persistence is optional; without it the auction simply starts fresh
	// on every boot.
	var store engine.SnapshotStore
	var recoveredSeq uint64
	state := models.NewAuction(cfg.AdminID, cfg.AdminName, cfg.InitialCredits)
	if !cfg.Database.Disabled {
		pgStore, err := snapshot.NewStore(ctx, cfg.Database.DSN(), cfg.Room)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		store = pgStore

		if snap, err := pgStore.Load(ctx); err == nil {
			state = snap.State
			recoveredSeq = snap.Seq
			log.Info().
				Uint64("seq", snap.Seq).
				Str("status", string(state.Status)).
				Msg("recovered auction state from snapshot store")
		} else if !errors.Is(err, snapshot.ErrNotFound) {
			log.Error().Err(err).Msg("could not load stored snapshot, starting fresh")
		}
	}

	// A recovered live countdown cannot resume mid-flight across a restart;
	// park it PAUSED with a full bid window so the admin decides when to go.
	if state.Status == models.StatusBidding || state.Status == models.StatusSold {
		state.Status = models.StatusPaused
		state.DeadlineAt = nil
		if state.Remaining <= 0 {
			state.Remaining = time.Duration(cfg.Timers.BidWindowSec) * time.Second
		}
	}

	bid, open, sold, testBid, testOpen, testSold := cfg.Timers.Durations()
	eng := engine.New(state, engine.Timings{
		BidWindow:      bid,
		OpenWindow:     open,
		SoldDelay:      sold,
		TestBidWindow:  testBid,
		TestOpenWindow: testOpen,
		TestSoldDelay:  testSold,
	}, publisher, store, clockwork.NewRealClock())
	defer eng.Shutdown()
	eng.RestoreSeq(recoveredSeq)

	gw := gateway.NewService(eng, gateway.DefaultConnectionConfig())
	go gw.Start(ctx)

	subscriber, err := replication.NewJetStreamSubscriber(jsCfg, gw.HandleSnapshot)
	if err != nil {
		return err
	}
	defer subscriber.Close()
	go func() {
		if err := subscriber.Run(ctx); err != nil {
			log.Error().Err(err).Msg("snapshot subscriber failed")
		}
	}()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: gw.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("room", cfg.Room).
		Str("nats_url", cfg.NATSURL).
		Msg("auction service listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
