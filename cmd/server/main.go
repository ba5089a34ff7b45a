package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-erp-backend/internal/ai"
	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/config"
	"go-erp-backend/internal/database"
	"go-erp-backend/internal/handlers"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/router"
	"go-erp-backend/internal/services"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.Server.Name,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(cfg.Metrics.Prefix)

	db, err := database.Connect(cfg.Database, zl)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	users := services.NewUserService(db, m)
	if _, err := users.EnsureDefaultUser(ctx, cfg.Bootstrap.AdminPassword); err != nil {
		return err
	}

	suppliers := services.NewSupplierService(db, m)
	products := services.NewProductService(db, m)
	sales := services.NewSaleService(db, m, cfg.Server.Location)
	reports := services.NewReportService(db, sales)
	authSvc := auth.NewService(users, auth.NewAuthority(cfg.JWT, m), m)

	deps := router.Deps{
		Config:    cfg,
		Logger:    zl,
		Metrics:   m,
		DB:        db,
		Auth:      authSvc,
		Users:     users,
		Suppliers: suppliers,
		Products:  products,
		Sales:     sales,
		Reports:   reports,
	}

	agent, err := ai.NewAgent(ctx, cfg.Assistant, ai.NewToolbox(products, reports, cfg.Server.Location))
	if err != nil {
		zl.Warn("Assistant disabled", zap.Error(err))
	} else if agent != nil {
		defer agent.Close()
		deps.Assistant = agent
	} else {
		zl.Info("Assistant disabled: GEMINI_API_KEY is not set")
	}

	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("Server starting", zap.String("addr", srv.Addr), zap.String("base_url", cfg.Server.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zl.Info("Server exited")
	return nil
}
