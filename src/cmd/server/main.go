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

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/clients"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/controller"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/middleware"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/router"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/memory"
	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/repository/postgres"
	"github.com/api-sage/transfer-orchestrator/src/internal/config"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/tracing"
	"github.com/api-sage/transfer-orchestrator/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("transfer orchestrator stopped with error", err, nil)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Configure(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer logger.Sync()

	shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.TracingEnabled, nil)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracing shutdown failed", err, nil)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	customerClient := clients.NewCustomerClient(cfg.CustomerServiceURL, cfg.CustomerServiceTimeout)
	exchangeRateClient := clients.NewExchangeRateClient(cfg.ExchangeRateServiceURL, cfg.ExchangeRateServiceTimeout)
	fraudClient := clients.NewFraudClient(cfg.FraudServiceURL, cfg.FraudServiceTimeout)

	rateService := services.NewRateService(exchangeRateClient)
	chargesService := services.NewChargesService(rateService)
	locker := services.NewCustomerLocker()
	transferService := services.NewTransferService(
		ledger,
		customerClient,
		fraudClient,
		rateService,
		chargesService,
		locker,
	)
	sweeper := services.NewApprovalSweeper(transferService, cfg.ApprovalSweepInterval).WithLockRegistry(locker)

	handler := router.New(
		middleware.APIKey(cfg.APIKeyHash),
		controller.NewTransferController(transferService),
		controller.NewRateController(rateService),
		controller.NewChargesController(chargesService),
	)
	if cfg.APIKeyHash == "" {
		logger.Warn("API_KEY_HASH is empty, api key check is disabled", nil)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", logger.Fields{
			"addr":         cfg.HTTPAddr,
			"ledgerDriver": cfg.LedgerDriver,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openLedger(ctx context.Context, cfg config.Config) (domain.TransferLedger, func(), error) {
	if cfg.LedgerDriver != config.LedgerDriverPostgres {
		logger.Info("using in-memory transfer ledger", nil)
		return memory.NewTransferLedger(), func() {}, nil
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := postgres.Open(openCtx, cfg.DatabaseDSN, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := postgres.RunMigrations(openCtx, db, os.DirFS(cfg.MigrationsDir)); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("using postgres transfer ledger", logger.Fields{"migrationsDir": cfg.MigrationsDir})
	return postgres.NewTransferLedger(db), func() {
		if err := db.Close(); err != nil {
			logger.Error("close database failed", err, nil)
		}
	}, nil
}
