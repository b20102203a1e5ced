package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pokeengine/config"
	"pokeengine/native/rewards"
	"pokeengine/observability/logging"
	telemetry "pokeengine/observability/otel"
	"pokeengine/rpc"
	"pokeengine/solana"
	"pokeengine/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rewardd: %v\n", err)
		os.Exit(1)
	}
}

// eventLogger forwards engine events to the structured log. Skipped events
// are expected outcomes and stay at info level.
type eventLogger struct {
	log *slog.Logger
}

func (l *eventLogger) AppendEvent(evt *rewards.Event) {
	if evt == nil {
		return
	}
	attrs := make([]any, 0, len(evt.Attributes))
	for key, value := range evt.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	l.log.With(attrs...).Info(evt.Type)
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "rewardd.toml", "path to rewardd configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("POKE_ENV"))
	log := logging.Setup("rewardd", env)

	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "rewardd",
		Environment: env,
		Endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	engine := rewards.NewEngine(cfg.Rewards, store,
		rewards.WithEventSink(&eventLogger{log: log}),
	)

	opts := []rpc.ServerOption{}
	if cfg.Solana.TokenMint != "" {
		client, err := solana.NewClient(cfg.Solana.RPCURL, cfg.Solana.Commitment, cfg.Solana.TokenMint, cfg.Solana.RewardVault)
		if err != nil {
			return fmt.Errorf("init solana client: %w", err)
		}
		opts = append(opts, rpc.WithDisburser(client))
	}
	server := rpc.NewServer(engine, log, opts...)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info("rewardd listening", slog.String("addr", cfg.ListenAddress), slog.String("backend", cfg.StorageBackend))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
