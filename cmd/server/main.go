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

	"github.com/ignite/crm-backoffice/internal/api"
	"github.com/ignite/crm-backoffice/internal/cache"
	"github.com/ignite/crm-backoffice/internal/config"
	"github.com/ignite/crm-backoffice/internal/delivery"
	"github.com/ignite/crm-backoffice/internal/mailing"
	"github.com/ignite/crm-backoffice/internal/pkg/logger"
	"github.com/ignite/crm-backoffice/internal/repository/postgres"
	"github.com/ignite/crm-backoffice/internal/service/adcampaign"
	"github.com/ignite/crm-backoffice/internal/service/emailcampaign"
	"github.com/ignite/crm-backoffice/internal/service/lead"
	"github.com/ignite/crm-backoffice/internal/storage"
	"github.com/ignite/crm-backoffice/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logger.DEBUG)
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.Lifetime())
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis and the shared result cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	resultCache := cache.NewResultCache(cache.NewRedisStore(redisClient), cfg.Cache.TTL())

	ctx := context.Background()

	// Outbound mail
	var sender delivery.Sender
	if cfg.SES.Enabled {
		sesSender, err := delivery.NewSESSender(ctx, cfg.SES)
		if err != nil {
			log.Fatalf("Failed to initialize SES sender: %v", err)
		}
		sender = sesSender
		log.Printf("SES sender initialized (region %s)", cfg.SES.Region)
	} else {
		log.Println("SES disabled; campaign sending is unavailable")
	}

	renderer := delivery.NewRenderer()

	var feeds *mailing.FeedSource
	if cfg.RSS.Enabled {
		feeds = mailing.NewFeedSource(renderer, cfg.RSS.MaxItemsPerPoll)
	}

	// Media storage
	var media *storage.MediaStore
	switch cfg.Storage.Type {
	case "s3":
		backend, err := storage.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.AWSRegion, cfg.Storage.GetAWSProfile())
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		media = storage.NewMediaStore(backend, cfg.Storage.ThumbWidth)
		log.Printf("Media storage: S3 bucket %s", cfg.Storage.S3Bucket)
	default:
		backend, err := storage.NewLocalStore(cfg.Storage.LocalPath)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		media = storage.NewMediaStore(backend, cfg.Storage.ThumbWidth)
		log.Printf("Media storage: local path %s", cfg.Storage.LocalPath)
	}

	// Services
	leadService := lead.NewService(postgres.NewLeadRepo(db), resultCache)
	adService := adcampaign.NewService(postgres.NewAdCampaignRepo(db), resultCache, cfg.Ads.DefaultPlatforms())
	emailService := emailcampaign.NewService(
		postgres.NewEmailCampaignRepo(db),
		postgres.NewEmailListRepo(db),
		resultCache,
		sender,
		renderer,
		feeds,
	)

	// Background stats refresh
	var refresher *worker.StatsRefresher
	if cfg.Worker.Enabled {
		refresher = worker.NewStatsRefresher(
			postgres.NewProjectRepo(db),
			leadService,
			adService,
			emailService,
			redisClient,
			cfg.Worker.Interval(),
			cfg.Worker.LockTimeout(),
		)
		refresher.Start()
	}

	handlers := api.NewHandlers(leadService, adService, emailService, media)
	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
