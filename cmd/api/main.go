package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuisella/backend/config"
	"github.com/cuisella/backend/internal/api"
	"github.com/cuisella/backend/internal/database"
	"github.com/cuisella/backend/internal/middleware"
	"github.com/cuisella/backend/internal/router"
	"github.com/cuisella/backend/internal/server"
	"github.com/cuisella/backend/internal/service"
	"github.com/cuisella/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis backs token revocation and auth rate limiting. Without it the
	// revocation list is in-process and rate limiting is off.
	var tokens service.TokenStore = service.NewMemoryTokenStore()
	var authLimit gin.HandlerFunc
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		tokens = service.NewRedisTokenStore(redisClient)
		authLimit = middleware.NewAuthRateLimiter(redisClient).Middleware()
	} else {
		log.Println("REDIS_URL not set; using in-process token store, rate limiting disabled")
	}

	var images storage.ImageStore
	switch cfg.StorageDriver {
	case config.StorageDriverS3:
		s3cfg, err := config.NewS3Config(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		images = storage.NewS3Store(s3cfg)
	default:
		images = storage.NewLocalStore(cfg.StoragePath, cfg.BaseURL)
	}

	authService := service.NewAuthService(db, cfg.JWTSecret, tokens, time.Duration(cfg.TokenTTLHour)*time.Hour)
	recipeService := service.NewRecipeService(db, images)
	favoriteService := service.NewFavoriteService(db, images)

	engine := router.Setup(cfg, router.Handlers{
		Auth:     api.NewAuthHandler(authService),
		Recipe:   api.NewRecipeHandler(recipeService),
		Favorite: api.NewFavoriteHandler(favoriteService),
	}, authService, authLimit)

	srv := server.New(cfg, engine)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal: %v", sig)
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
