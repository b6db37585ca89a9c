package server

import (
	"context"
	"log/slog"
	"time"

	"poll-service/configs"
	"poll-service/configs/database"
	"poll-service/internal/api/routes"
	"poll-service/internal/poll"
	"poll-service/internal/storage"
	"poll-service/internal/user"
)

type App struct {
	config *configs.Config
	router *routes.Router
	mongo  *database.MongoDB
}

func NewApp() (*App, error) {
	config := configs.Load()

	mongo, err := database.NewMongoConnection(config.MongoURI, config.MongoDB)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := poll.EnsureIndexes(ctx, mongo); err != nil {
		return nil, err
	}
	if err := user.EnsureIndexes(ctx, mongo); err != nil {
		return nil, err
	}

	// Rate limiting degrades to allow-all without redis.
	redisClient, err := database.InitRedis(config.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, rate limiting disabled", "error", err)
		redisClient = nil
	}

	// Image uploads are optional; everything else works without MinIO.
	media, err := storage.NewMinIOClient(config.MinioEndpoint, config.MinioAccessKey, config.MinioSecretKey, config.MinioBucket)
	if err != nil {
		slog.Warn("minio unavailable, image uploads disabled", "error", err)
		media = nil
	}

	router := routes.NewRouter(mongo, redisClient, media, config)
	router.SetupRoutes()

	return &App{
		config: config,
		router: router,
		mongo:  mongo,
	}, nil
}

func (a *App) Run() error {
	slog.Info("starting server", "port", a.config.Port)
	return a.router.GetEngine().Run(":" + a.config.Port)
}
