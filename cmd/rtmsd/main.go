// Command rtmsd runs the real-time meeting media ingestion and
// enrichment daemon, and doubles as the operator CLI for the offline
// archival manifest ("rtmsd archive <streamId>").
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zoom-oss/rtms-ingestion/pkg/adapters"
	"github.com/zoom-oss/rtms-ingestion/pkg/api"
	"github.com/zoom-oss/rtms-ingestion/pkg/config"
	"github.com/zoom-oss/rtms-ingestion/pkg/database"
	"github.com/zoom-oss/rtms-ingestion/pkg/logsink"
	"github.com/zoom-oss/rtms-ingestion/pkg/registry"
	"github.com/zoom-oss/rtms-ingestion/pkg/router"
	"github.com/zoom-oss/rtms-ingestion/pkg/transcript"
	"github.com/zoom-oss/rtms-ingestion/pkg/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "archive" {
		os.Exit(runArchiveCommand(os.Args[2:]))
	}
	os.Exit(runDaemon())
}

func runDaemon() int {
	configPath := flag.String("config", getEnv("RTMSD_CONFIG", "./config.yaml"), "path to configuration file")
	overridePath := flag.String("config-override", getEnv("RTMSD_CONFIG_OVERRIDE", ""), "path to a configuration override file")
	envPath := flag.String("env-file", getEnv("RTMSD_ENV_FILE", ".env"), "path to an optional .env file to load before reading configuration")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("no .env file loaded, continuing with existing environment", "path", *envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configPath, *overridePath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	writer := logsink.NewStdoutWriter(os.Stdout)
	sink := logsink.New(writer, cfg.LogLevel.SlogLevel(), 0, 0)
	logger := slog.New(sink)
	slog.SetDefault(logger)
	logger.Info("starting", "version", version.Full(), "http_addr", cfg.HTTPAddr)

	dbPool, err := database.NewPool(ctx, cfg.ToDatabaseConfig())
	if err != nil {
		logger.Error("failed to open database pool", "error", err)
		return 1
	}
	defer dbPool.Close()

	store := database.NewStore(dbPool)
	reg := registry.New(cfg.StreamHistorySize)
	publisher := adapters.NewPublisher(dbPool)

	broadcasterDSN := cfg.Adapters.BroadcasterDSN
	if broadcasterDSN == "" {
		broadcasterDSN = listenDSN(cfg.ToDatabaseConfig())
	}
	hub := adapters.NewHub(broadcasterDSN, logger)
	if err := hub.Start(ctx); err != nil {
		logger.Error("failed to start broadcast hub", "error", err)
		return 1
	}
	defer hub.Stop(context.Background())

	if cfg.Adapters.SummariserBaseURL == "" {
		logger.Error("adapters.summariser_base_url is required")
		return 1
	}
	summariser := adapters.NewHTTPSummariser(cfg.Adapters.SummariserBaseURL, cfg.Adapters.SummariserModel, cfg.Adapters.SummariserTimeout)

	transcripts := transcript.NewManager(func() transcript.Config {
		return transcript.Config{
			Summariser:    summariser,
			ChunkWriter:   store,
			ContextWriter: store,
			Broadcaster:   publisher,
			Logger:        logger,
		}
	})
	defer transcripts.Shutdown()

	rt := router.New(reg, cfg, nil, logger, router.Options{
		MediaMask:         cfg.MediaMask,
		FillerEnabled:     cfg.FillerEnabled,
		ReconnectDebounce: cfg.ReconnectDebounce,
		KeepAliveTimeout:  cfg.KeepAliveTimeout,
	})
	rt.SetStore(store)
	rt.SetTranscriptSink(transcripts)
	rt.SetBroadcaster(publisher)

	server := api.NewServer(store, dbPool, rt, cfg, logger)
	server.SetCompleter(summariser)
	server.SetHub(hub)
	server.SetRegistry(reg)
	if err := server.ValidateWiring(); err != nil {
		logger.Error("server wiring incomplete", "error", err)
		return 1
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- server.Start(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("http server exited", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	reg.Clear()
	sink.Drain(shutdownCtx)
	return 0
}

// listenDSN builds a plain connection string for the Hub's dedicated
// LISTEN connection from the pooled-connection parameters, used when
// adapters.broadcaster_dsn is left unset in configuration.
func listenDSN(cfg database.Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
