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

	"arcadepress/internal/config"
	"arcadepress/internal/db"
	"arcadepress/internal/logger"
	"arcadepress/internal/metrics"
	"arcadepress/internal/middleware"
	"arcadepress/internal/router"
	"arcadepress/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Initialize Database
	conn, err := db.Init(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	if sqlDB, err := conn.DB(); err == nil {
		defer sqlDB.Close()
	}

	vault, err := services.NewTokenVault(cfg.SessionSecret)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
		return fmt.Errorf("create media root: %w", err)
	}

	github := services.NewGitHubClient(cfg.GitHub, cfg.ProviderTimeout)
	svc := router.Services{
		Accounts:  services.NewAccountService(conn, github, vault, cfg, log),
		Posts:     services.NewPostService(conn, log),
		Comments:  services.NewCommentService(conn, log),
		Reactions: services.NewReactionService(conn),
		Games:     services.NewGameService(conn, services.NewBundleStore(cfg.MediaRoot, cfg.MaxArchiveBytes), log),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Middleware())

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 14 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("arcadepress_session", store))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates(cfg.TemplatesDir, cfg.MediaURL)
	r.MaxMultipartMemory = 8 << 20

	// Static Assets
	r.Static("/static", "./web/static")

	r.Use(middleware.LoadUser(conn))
	router.RegisterRoutes(r, cfg, svc, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("ArcadePress server starting", slog.Int("port", cfg.Port))
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

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
