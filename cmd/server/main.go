package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/cmarsh/sitesync/internal/config"
	"github.com/cmarsh/sitesync/internal/database"
	"github.com/cmarsh/sitesync/internal/repositories"
	"github.com/cmarsh/sitesync/internal/server"
	"github.com/cmarsh/sitesync/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	backupAt, err := services.ParseClockTime(cfg.BackupTime)
	if err != nil {
		log.Fatalf("Failed to parse backup time: %v", err)
	}
	releaseAt, err := services.ParseClockTime(cfg.ReleaseTime)
	if err != nil {
		log.Fatalf("Failed to parse release time: %v", err)
	}

	// Initialize storage
	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open content database: %v", err)
	}
	defer db.Close()

	var presence repositories.PresenceRepository
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create redis client: %v", err)
		}
		defer redisClient.Close()
		presence = repositories.NewRedisPresenceRepository(redisClient)
	}

	pages := repositories.NewSQLitePageRepository(db)
	states := repositories.NewFileSyncStateRepository(cfg.SyncStatePath)

	// Wire the coordinator and its collaborators
	registry := services.NewRegistry(presence)
	backups := services.NewBackupManager(cfg.BackupDir,
		cfg.DatabasePath,
		cfg.SyncStatePath,
		cfg.LegacyContentPath,
		cfg.PublicIndexPath,
	)
	coord, err := services.NewCoordinator(ctx, registry, states, backups, backupAt, releaseAt)
	if err != nil {
		log.Fatalf("Failed to create coordinator: %v", err)
	}
	scheduler := services.NewScheduler(coord, backupAt, releaseAt)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: server.New(coord, pages).Router(),
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return scheduler.Run(ctx)
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
