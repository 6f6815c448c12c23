package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockkeep/stockkeep/internal/app"
	"github.com/stockkeep/stockkeep/internal/auth"
	"github.com/stockkeep/stockkeep/internal/catalog"
	"github.com/stockkeep/stockkeep/internal/ledger"
	"github.com/stockkeep/stockkeep/internal/platform/cache"
	"github.com/stockkeep/stockkeep/internal/platform/db"
	"github.com/stockkeep/stockkeep/internal/policy"
	"github.com/stockkeep/stockkeep/internal/purchases"
	"github.com/stockkeep/stockkeep/internal/reports"
	"github.com/stockkeep/stockkeep/internal/sales"
	"github.com/stockkeep/stockkeep/internal/shared"
	"github.com/stockkeep/stockkeep/internal/users"
	"github.com/stockkeep/stockkeep/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "stockkeep_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	policyMiddleware := policy.Middleware{Resolver: usersService, Logger: logger}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, policyMiddleware)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, catalogService, auditLogger)
	stockHandler := ledger.NewHandler(logger, ledgerService, policyMiddleware)

	purchasesRepo := purchases.NewRepository(pool)
	purchasesService := purchases.NewService(purchasesRepo, catalogService, auditLogger)
	purchasesHandler := purchases.NewHandler(logger, purchasesService, policyMiddleware)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, catalogService, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService, policyMiddleware)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo)
	reportsHandler := reports.NewHandler(logger, reportsService, policyMiddleware)

	usersHandler := users.NewHandler(logger, usersService, policyMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		PolicyMiddleware: policyMiddleware,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		StockHandler:     stockHandler,
		PurchasesHandler: purchasesHandler,
		SalesHandler:     salesHandler,
		ReportsHandler:   reportsHandler,
		UsersHandler:     usersHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
