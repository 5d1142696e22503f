package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Spok95/costing-engine/internal/config"
	"github.com/Spok95/costing-engine/internal/domain/components"
	"github.com/Spok95/costing-engine/internal/domain/containers"
	"github.com/Spok95/costing-engine/internal/domain/costing"
	"github.com/Spok95/costing-engine/internal/domain/formulas"
	"github.com/Spok95/costing-engine/internal/domain/pricing"
	"github.com/Spok95/costing-engine/internal/infra/db"
	httpx "github.com/Spok95/costing-engine/internal/infra/http"
	"github.com/Spok95/costing-engine/internal/infra/logger"
	"github.com/Spok95/costing-engine/internal/infra/metrics"
	"github.com/Spok95/costing-engine/internal/service"
)

func runMigrations(dsn, dir string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, dir)
}

// openLedgerStore picks the container store for the configured driver.
func openLedgerStore(cfg config.Config, pool *pgxpool.Pool) (containers.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		if pool == nil {
			return nil, nil, errors.New("postgres ledger requires a database connection")
		}
		return containers.NewRepo(pool), noop, nil
	case config.DriverSQLite:
		s, err := containers.NewSQLiteStore(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverMemory:
		return containers.NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
}

func main() {
	path := "config/example.yaml"
	if p := os.Getenv("APP_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if err := run(cfg, log); err != nil {
		log.Error("costd stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		pool     *pgxpool.Pool
		formulaS service.FormulaSource
		compS    service.ComponentSource
	)
	if cfg.Postgres.DSN != "" {
		if err := runMigrations(cfg.Postgres.DSN, cfg.Postgres.Migrations); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")

		var err error
		pool, err = db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()
		log.Info("db connected")

		formulaS = formulas.NewRepo(pool)
		compS = components.NewRepo(pool)
	} else {
		log.Warn("postgres.dsn not set, roll-ups by formula_id are disabled")
	}

	store, closeStore, err := openLedgerStore(cfg, pool)
	if err != nil {
		return fmt.Errorf("ledger store: %w", err)
	}
	defer func() { _ = closeStore() }()
	log.Info("ledger store ready", "driver", cfg.Ledger.Driver)

	m := metrics.New(prometheus.DefaultRegisterer)

	engine := costing.NewEngine(cfg.CostingOptions())
	costingSvc := service.NewCosting(engine, formulaS, compS, log, m)
	ledger := containers.NewLedger(store, log, containers.WithMetrics(m))
	api := httpx.NewHandler(costingSvc, pricing.NewAnalyzer(cfg.PricingOptions()), ledger, log)

	srv := httpx.New(cfg.HTTP.Addr, api, cfg.Metrics.Enabled, m)
	errc := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("graceful shutdown complete")
	return nil
}
