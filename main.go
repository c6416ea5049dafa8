package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"streamlens/api"
	"streamlens/config"
	"streamlens/handlers"
	"streamlens/internal/database"
	"streamlens/services/jellyfin"
	"streamlens/services/jellyseerr"
	"streamlens/services/metadata"
	"streamlens/services/scheduler"
	syncsvc "streamlens/services/sync"
	"streamlens/services/tmdb"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	fmt.Println("🚀 streamlens starting...")

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	db, err := database.Open(settings.Database)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if settings.Database.UsePostgres() {
		log.Printf("[main] connected to postgres at %s", settings.Database.Host)
	} else {
		log.Printf("[main] using sqlite database at %s", settings.Database.Path)
	}

	// Remote API clients
	jellyfinClient := jellyfin.NewClient(settings.Jellyfin.URL, settings.Jellyfin.APIKey, nil)
	jellyseerrClient := jellyseerr.NewClient(settings.Jellyseerr.URL, settings.Jellyseerr.APIKey, nil)
	tmdbClient := tmdb.NewClient(settings.TMDB.APIKey, nil)

	// Repositories and services
	userRepo := database.NewUserRepository(db)
	mediaRepo := database.NewMediaRepository(db)
	historyRepo := database.NewHistoryRepository(db)
	requestRepo := database.NewRequestRepository(db)

	metadataService := metadata.NewService(db, mediaRepo, tmdbClient)
	userSync := syncsvc.NewUserSync(db, userRepo, jellyfinClient)
	historySync := syncsvc.NewHistorySync(db, historyRepo, jellyfinClient, metadataService)
	requestSync := syncsvc.NewRequestSync(db, requestRepo, metadataService)

	// Periodic task runner: three independent polling loops
	runner := scheduler.NewService(settings.Sync.Interval,
		scheduler.Task{Name: "users", Run: userSync.Sync},
		scheduler.Task{Name: handlers.TaskWatchHistory, Run: historySync.SyncAll},
		scheduler.Task{Name: "requests", Run: func(ctx context.Context) error {
			remote, err := jellyseerrClient.GetAllRequests(ctx)
			if err != nil {
				return fmt.Errorf("fetch jellyseerr requests: %w", err)
			}
			log.Printf("[requestsync] fetched %d requests from jellyseerr", len(remote))
			return requestSync.Sync(ctx, remote)
		}},
	)

	if err := runner.Start(context.Background()); err != nil {
		log.Fatalf("failed to start sync loops: %v", err)
	}

	// HTTP surface
	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewUsersHandler(db, userRepo),
		handlers.NewMediaHandler(db, mediaRepo),
		handlers.NewHistoryHandler(db, historyRepo),
		handlers.NewRequestsHandler(db, requestRepo),
		handlers.NewSyncHandler(runner),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Printf("Server starting on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the sync loops first so no pass is mid-flight when the
	// database closes.
	if err := runner.Stop(shutdownCtx); err != nil {
		log.Printf("Sync loop shutdown error: %v", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
