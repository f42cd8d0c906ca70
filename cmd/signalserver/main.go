package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	signalhub "github.com/snarg/signalhub"
	"github.com/snarg/signalhub/internal/api"
	"github.com/snarg/signalhub/internal/config"
	"github.com/snarg/signalhub/internal/hub"
	"github.com/snarg/signalhub/internal/iceserver"
	"github.com/snarg/signalhub/internal/metrics"
	"github.com/snarg/signalhub/internal/store/pgstore"
)

// version, commit, and buildTime are injected at build time via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var overrides config.Overrides
	var showVersion bool
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s (commit=%s, built=%s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	startTime := time.Now()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("commit", commit).Str("built", buildTime).Msg("signalhub starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbLog := log.With().Str("component", "database").Logger()
	db, err := pgstore.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx, signalhub.SchemaSQL); err != nil {
		log.Fatal().Err(err).Msg("schema initialization failed")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	oracle := pgstore.NewOracle(db)
	sink := pgstore.NewSink(db)
	contacts := pgstore.NewContacts(db)

	h := hub.New(oracle, log.With().Str("component", "hub").Logger(), hub.Config{
		RelayMalformedAsText: cfg.RelayMalformedAsText,
	})

	var ice *iceserver.Server
	if cfg.TURNEnabled {
		ice, err = iceserver.Start(iceserver.Config{
			PublicIP:   cfg.TURNPublicIP,
			Realm:      cfg.TURNRealm,
			ListenAddr: cfg.TURNListenAddr,
			Users:      fmt.Sprintf("%s=%s", cfg.TURNUsername, cfg.TURNPassword),
		}, log.With().Str("component", "iceserver").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start ICE relay")
		}
		defer ice.Close(context.Background())
	}

	// Held as the prometheus.Collector interface itself, not *metrics.Collector,
	// so a disabled collector is a true nil interface rather than a non-nil
	// interface wrapping a nil pointer.
	var collector prometheus.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector(db.Pool, h)
	}

	srv := api.NewServer(api.ServerOptions{
		Config:    cfg,
		Hub:       h,
		DB:        db,
		Contacts:  contacts,
		Sink:      sink,
		Collector: collector,
		Version:   version,
		StartTime: startTime,
		Log:       log.With().Str("component", "http").Logger(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	h.Shutdown()
	if err := srv.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("error during http server shutdown")
	}
}
