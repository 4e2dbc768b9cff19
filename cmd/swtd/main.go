package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"securewrap/config"
	"securewrap/core"
	"securewrap/core/genesis"
	"securewrap/journal"
	"securewrap/observability/logging"
	"securewrap/observability/metrics"
	"securewrap/observability/otel"
	"securewrap/rpc"
	"securewrap/storage"
)

const (
	serviceName    = "swtd"
	genesisPathEnv = "SWT_GENESIS"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "swtd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flags.String("genesis", "", "Path to the genesis YAML (overrides SWT_GENESIS and config GenesisFile)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer := logging.SetupWithOptions(serviceName, cfg.Environment, logging.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Level:      logging.ParseLevel(cfg.Logging.Level),
	})
	defer closer.Close()

	shutdownTelemetry, err := otel.Init(ctx, otel.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     otel.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	node, err := core.NewNode(db,
		core.WithJournal(store),
		core.WithLogger(logger),
		core.WithMetrics(metrics.Engine()))
	if err != nil {
		return fmt.Errorf("open node: %w", err)
	}

	if path := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv); path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
		receipt, err := node.ApplyGenesis(ctx, spec)
		if err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		if receipt == nil {
			logger.Info("genesis already applied", "genesis", path)
		}
	} else if _, err := node.GlobalState(); err != nil {
		logger.Warn("starting without genesis; the authority must call initialize", "error", err)
	}

	server := rpc.NewServer(node, store, rpc.Config{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			TokenTTL:   time.Duration(cfg.Auth.TokenTTLSeconds) * time.Second,
			LoginSkew:  time.Duration(cfg.Auth.LoginSkewSeconds) * time.Second,
		},
		RateLimit: rpc.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MetricsEnabled: cfg.MetricsEnabled,
	}, logger)

	logger.Info("swtd started",
		slog.String("listen", cfg.ListenAddress),
		slog.String("data_dir", cfg.DataDir),
		slog.String("journal", cfg.Journal.Driver),
		slog.Uint64("sequence", node.Sequence()))
	err = server.Serve(ctx, cfg.ListenAddress,
		time.Duration(cfg.ReadTimeout)*time.Second,
		time.Duration(cfg.WriteTimeout)*time.Second)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("swtd stopped", slog.Uint64("sequence", node.Sequence()))
	return nil
}

// resolveGenesisPath picks the genesis file: flag, then environment, then
// config. An empty result means no genesis is applied.
func resolveGenesisPath(flagValue, configValue string, lookup func(string) (string, bool)) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(configValue)
}
