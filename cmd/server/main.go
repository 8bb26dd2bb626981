package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/api"
	"github.com/faxcloud/analyzer/internal/archive"
	"github.com/faxcloud/analyzer/internal/cache"
	"github.com/faxcloud/analyzer/internal/config"
	"github.com/faxcloud/analyzer/internal/faxlog"
	"github.com/faxcloud/analyzer/internal/reports"
	"github.com/faxcloud/analyzer/internal/repository/postgres"
	"github.com/faxcloud/analyzer/internal/watcher"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	repo := postgres.NewReportRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Redis stats cache (optional)
	var statsCache *cache.StatsCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable, stats cache disabled: %v", err)
		} else {
			statsCache = cache.New(client, cfg.Redis.TTL())
			log.Println("Connected to Redis")
		}
	}

	// Original-file archive (local dir, optional S3 mirror)
	arch, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to init archive: %v", err)
	}

	// Import pipeline
	aliases, err := faxlog.LoadAliases(cfg.Import.ColumnsPath)
	if err != nil {
		log.Printf("Column config %s not loaded, using defaults: %v", cfg.Import.ColumnsPath, err)
		aliases = faxlog.DefaultAliases()
	}
	importer := faxlog.NewImporter(aliases)

	var phoneRules []faxlog.PhoneRule
	if cfg.Analysis.RejectVoiceRange {
		phoneRules = append(phoneRules, faxlog.RejectVoiceRange)
	}
	validator := faxlog.NewRowValidator(phoneRules...)

	detector := analysis.NewDetector()
	detector.Sigma = cfg.Analysis.AnomalySigma
	detector.DominantShare = cfg.Analysis.DominantErrorShare
	engine := analysis.NewEngine(validator, detector)

	service := reports.NewService(repo, arch, importer, engine, statsCache, cfg.Import.AllowDuplicates)

	handlers := api.NewHandlers(service)

	// Inbox watcher (optional)
	var w *watcher.Watcher
	if cfg.Watcher.Enabled {
		w = watcher.New(cfg.Watcher.InboxPath, cfg.Watcher.Interval(), service)
		w.Start()
		defer w.Stop()
		handlers.SetWatcher(w)
	}

	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
