package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"washika-dao/chain"
	"washika-dao/config"
	"washika-dao/db"
	"washika-dao/governance"
	"washika-dao/handlers"
	"washika-dao/logger"
	"washika-dao/metrics"
	"washika-dao/models"
	"washika-dao/routers"
	"washika-dao/timelock"
	"washika-dao/token"
)

const shutdownTimeout = 10 * time.Second

// services is the wired ledger: storage, clock, token and governance
type services struct {
	db     *db.LevelDB
	clock  *chain.Clock
	tokens *token.Service
	engine *governance.Engine
}

func newServices(ldb *db.LevelDB, cfg *config.Config, m *metrics.Metrics) *services {
	tl := timelock.NewLocal(models.Principal(cfg.Timelock.Principal), cfg.Timelock.Delay, cfg.Timelock.GracePeriod)
	engine := governance.NewEngine(ldb, tl, m)
	engine.RegisterActions(tl)
	return &services{
		db:     ldb,
		clock:  chain.NewClock(ldb, m),
		tokens: token.NewService(ldb, m),
		engine: engine,
	}
}

// openServices opens the store for the server, writing genesis on first start
func openServices(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*services, error) {
	ldb, err := db.NewLevelDB(cfg.LevelDB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	svc := newServices(ldb, cfg, m)

	created, err := svc.engine.Bootstrap(ctx, governance.Genesis{
		Authority: models.Principal(cfg.Governance.Authority),
		Params:    cfg.Governance.Params(),
	})
	if err != nil {
		ldb.Close()
		return nil, fmt.Errorf("failed to write genesis: %w", err)
	}
	if !created {
		logger.Logger.Info("Using existing ledger state", zap.String("path", cfg.LevelDB.Path))
	}
	return svc, nil
}

// openInspectServices opens an existing store read-only. It never creates the
// store or writes genesis.
func openInspectServices(cfg *config.Config) (*services, error) {
	ldb, err := db.OpenReadOnly(cfg.LevelDB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", cfg.LevelDB.Path, err)
	}
	svc := newServices(ldb, cfg, nil)
	ok, err := svc.engine.Initialized()
	if err != nil {
		ldb.Close()
		return nil, err
	}
	if !ok {
		ldb.Close()
		return nil, fmt.Errorf("no ledger state at %s", cfg.LevelDB.Path)
	}
	return svc, nil
}

func serveRun(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting washikad...")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	svc, err := openServices(cmd.Context(), cfg, m)
	if err != nil {
		return err
	}
	defer svc.db.Close()

	if height, err := svc.clock.Height(); err == nil {
		m.SetBlockHeight(height)
	}
	if supply, err := svc.tokens.TotalSupply(); err == nil {
		m.SetTotalSupply(supply)
	}

	h := handlers.NewHandler(svc.tokens, svc.engine, svc.clock)
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h, registry)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Logger.Info("Shutdown signal received, exiting...", zap.Stringer("signal", sig))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	logger.Logger.Info("Server stopped")
	return nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			return serveRun(cmd, cfg)
		},
	}
}
