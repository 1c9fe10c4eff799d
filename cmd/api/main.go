package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/api/routes"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/app"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/handlers"
)

const janitorInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()

	if !config.DebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	audit, closeAudit, err := app.OpenAuditRepository(ctx, cfg)
	if err != nil {
		zap.L().Fatal("failed to open draw audit", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		closeAudit(ctx)
	}()

	console := app.NewConsoleService(cfg, app.NewPromoClient(cfg), audit)
	go console.RunJanitor(ctx, janitorInterval)

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(console),
		DrawHandler:     handlers.NewDrawHandler(console),
		SettingsHandler: handlers.NewSettingsHandler(cfg),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in a goroutine so that it doesn't block
	go func() {
		zap.L().Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("server exiting")
}
