// Package main запускает HTTP-сервер сервиса рефиллиа.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/refillia/refillia-system/internal/config"
	"github.com/refillia/refillia-system/internal/handler"
	"github.com/refillia/refillia-system/internal/metrics"
	"github.com/refillia/refillia-system/internal/middleware"
	"github.com/refillia/refillia-system/internal/repository"
	"github.com/refillia/refillia-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// .env необязателен: локальная разработка.
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	metrics.Register()

	svc := service.NewService(repo, service.Policy{
		PointsStationSubmitted: cfg.PointsStationSubmitted,
		PointsStationVerified:  cfg.PointsStationVerified,
		PointsFeedback:         cfg.PointsFeedback,
		PointsRefillConfirmed:  cfg.PointsRefillConfirmed,
		PointsRefillDeclined:   cfg.PointsRefillDeclined,
		RefillConfirmWindow:    cfg.RefillConfirmWindow,
		VerifiedListLimit:      cfg.VerifiedListLimit,
	})
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter(cfg.CORSOrigin)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting refillia server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
