package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/cache"
	"github.com/dropDatabas3/escrowcore/internal/config"
	"github.com/dropDatabas3/escrowcore/internal/engine"
	httpserver "github.com/dropDatabas3/escrowcore/internal/http"
	"github.com/dropDatabas3/escrowcore/internal/ledger"
	"github.com/dropDatabas3/escrowcore/internal/metrics"
	"github.com/dropDatabas3/escrowcore/internal/observability/logger"
	"github.com/dropDatabas3/escrowcore/internal/payout"
	"github.com/dropDatabas3/escrowcore/internal/seatstore"
)

var version = "dev"

func main() {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:   "escrowd",
		Short: "Daemon del clearing core: custodia seats y sirve su estado",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (si existe, se carga)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la instancia y el server de consulta",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, envFile)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		}
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "escrowd",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx := context.Background()

	// Brands declarados en config, disponibles antes de restaurar.
	registry := amount.NewRegistry()
	for _, b := range cfg.Brands {
		kind := amount.KindNat
		if b.Kind == "set" {
			kind = amount.KindSet
		}
		if _, err := registry.NewBrand(b.Name, kind); err != nil {
			return fmt.Errorf("brand %s: %w", b.Name, err)
		}
	}

	store, err := seatstore.New(ctx, seatstore.Config{
		Driver: cfg.Storage.Driver,
		Root:   cfg.Storage.FSRoot,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		return fmt.Errorf("seatstore: %w", err)
	}
	defer func() { _ = store.Close() }()

	// El cache respalda el journal de operation IDs de los mints que la
	// aplicación embebedora construya sobre la instancia (engine.MintOptions
	// toma Journal, el bloque mint: fija retries y TTL). El ping además
	// corta temprano si la infraestructura no está.
	journal, err := cache.New(cache.Config{
		Driver: cfg.Cache.Kind,
		Addr:   cfg.Cache.Redis.Addr,
		DB:     cfg.Cache.Redis.DB,
		Prefix: cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() { _ = journal.Close() }()
	if err := journal.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}

	var notifier ledger.Notifier
	if len(cfg.Ledger.Endpoints) > 0 {
		sinks := make([]ledger.Notifier, 0, len(cfg.Ledger.Endpoints))
		for _, ep := range cfg.Ledger.Endpoints {
			sinks = append(sinks, ledger.NewHTTPNotifier(ep, cfg.Ledger.Timeout))
		}
		notifier = ledger.NewFanout(sinks...)
	} else {
		log.Warn("no ledger endpoints configured, committed batches stay local")
		notifier = ledger.NewMemory()
	}

	pool := payout.NewPool()
	escrow := payout.NewRecorder(pool)

	inst, err := engine.New(engine.Options{
		Registry: registry,
		Ledger:   notifier,
		Escrow:   escrow,
		Store:    store,
	})
	if err != nil {
		return err
	}
	if err := inst.Restore(ctx); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	if err := metrics.RegisterClearing(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metricsHandler, err := httpserver.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	srv := httpserver.New(cfg.Server.Addr, inst, metricsHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info("escrowd up",
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.Int("brands", len(cfg.Brands)),
		zap.Int("mint_retries", cfg.Mint.Retries),
		zap.Duration("mint_journal_ttl", cfg.Mint.JournalTTL),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := inst.Shutdown(shutdownCtx); err != nil {
		log.Error("instance shutdown", zap.Error(err))
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return nil
}
