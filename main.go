package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"grouping-server-go/config"
	"grouping-server-go/db"
	"grouping-server-go/handlers"
	"grouping-server-go/logging"
)

// configFileEnv names an optional config file (yaml, toml or json)
const configFileEnv = "GROUPING_CONFIG"

func main() {
	cfg, err := config.Load(os.Getenv(configFileEnv))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Archive store is optional; without it archives are only returned inline
	var store handlers.ArchiveStore
	if cfg.Redis.StoreEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := db.InitializeRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			slog.Error("Redis unavailable, archive store disabled", "error", err)
		} else {
			defer client.Close()
			store = db.NewRedisService(client, cfg.Redis.ArchiveTTL)
		}
	} else {
		slog.Warn("redis.addr is not set, archive store disabled")
	}

	apiHandler := handlers.NewAPIHandler(store, handlers.Limits{
		DefaultGroups:  cfg.Grouping.DefaultGroups,
		MaxGroups:      cfg.Grouping.MaxGroups,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
	})

	// Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes()

	apiHandler.RegisterRoutes(router.Group("/api"))

	slog.Info("Starting server", "addr", cfg.Server.Addr, "archiveStore", store != nil)
	if err := router.Run(cfg.Server.Addr); err != nil {
		slog.Error("Failed to run server", "error", err)
		os.Exit(1)
	}
}
