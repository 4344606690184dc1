package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jo-hoe/pokescan/internal/backend"
	"github.com/jo-hoe/pokescan/internal/backend/cache"
	"github.com/jo-hoe/pokescan/internal/backend/database"
	"github.com/jo-hoe/pokescan/internal/backend/identify"
	"github.com/jo-hoe/pokescan/internal/backend/imageprocessing"
	"github.com/jo-hoe/pokescan/internal/backend/pokeapi"
	"github.com/jo-hoe/pokescan/internal/core"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config/config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config", "config.yaml")
}

func buildCacheStore(config *backend.BackendConfig) cache.Store {
	if config.Cache.Type == "redis" {
		slog.Info("using redis cache", "addr", config.Cache.RedisAddr)
		return cache.NewRedisStore(&redis.Options{Addr: config.Cache.RedisAddr})
	}
	return cache.NewMemoryStore(config.PokeAPI.CacheSize, config.PokeAPI.CacheTTL.Std())
}

func main() {
	configPath := getConfigPath()
	config, err := backend.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	db, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString, config.MaxCollectionSize)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	fetcher := pokeapi.NewClient(pokeapi.Config{
		BaseURL:  config.PokeAPI.BaseURL,
		Timeout:  config.PokeAPI.Timeout.Std(),
		CacheTTL: config.PokeAPI.CacheTTL.Std(),
	}, buildCacheStore(config))

	identifier := identify.NewClient(identify.Config{
		APIKey:  config.Vision.APIKey,
		BaseURL: config.Vision.BaseURL,
		Model:   config.Vision.Model,
		Prompt:  config.Vision.Prompt,
		Timeout: config.Vision.Timeout.Std(),
	})

	normalizer := imageprocessing.NewNormalizer(config.Scan.TargetEdge)

	scanService := core.NewScanService(
		normalizer,
		identifier,
		fetcher,
		config.Vision.Timeout.Std(),
		config.PokeAPI.Timeout.Std(),
	)

	apiService := backend.NewAPIService(config, scanService, db)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		if err := apiService.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiService.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := db.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}
}
