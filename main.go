package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bcanady/snippets-be/internal/api"
	"github.com/bcanady/snippets-be/internal/auth"
	"github.com/bcanady/snippets-be/internal/config"
	"github.com/bcanady/snippets-be/internal/database"
	"github.com/bcanady/snippets-be/internal/logger"
	"github.com/bcanady/snippets-be/internal/monitoring"
	"github.com/bcanady/snippets-be/internal/services"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenLifetime)
	postService := services.NewPostService(db)
	userService := services.NewUserService(db, postService, cfg.DefaultAvatar)

	// Set up and run the background index reconciler
	reconciler, err := monitoring.NewReconciler(db, cfg.ReconcileSchedule)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReconcileSchedule).Msg("Invalid reconcile schedule")
	}
	go reconciler.Run()

	// Set up router
	router := api.NewRouter(tokens, userService, postService, cfg.AllowedOrigin)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	reconciler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
