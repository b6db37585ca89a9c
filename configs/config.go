package configs

import (
	"log"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values
type Config struct {
	Port      string
	JWTSecret string
	JWTExpire time.Duration

	MongoURI string
	MongoDB  string

	RedisURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string

	AllowedOrigins string
}

var (
	ConfigInstance *Config
	once           sync.Once
)

// Load loads configuration from the .env file and the environment
func Load() *Config {
	once.Do(func() {
		// Viper setup
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
		viper.AddConfigPath(".")

		// Set defaults
		viper.SetDefault("POLL_PORT", "8080")
		viper.SetDefault("POLL_JWT_SECRET", "secret")
		viper.SetDefault("POLL_JWT_EXPIRE", "168h")
		viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
		viper.SetDefault("MONGO_DB", "pollservice")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
		viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
		viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
		viper.SetDefault("MINIO_BUCKET", "poll-uploads")
		viper.AutomaticEnv()

		// Read the .env file
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("Warning: Error reading .env file: %v", err)
			log.Printf("Using environment variables and defaults")
		}

		expire, err := time.ParseDuration(viper.GetString("POLL_JWT_EXPIRE"))
		if err != nil {
			log.Fatal("Invalid POLL_JWT_EXPIRE format")
		}

		ConfigInstance = &Config{
			Port:           viper.GetString("POLL_PORT"),
			JWTSecret:      viper.GetString("POLL_JWT_SECRET"),
			JWTExpire:      expire,
			MongoURI:       viper.GetString("MONGO_URI"),
			MongoDB:        viper.GetString("MONGO_DB"),
			RedisURL:       viper.GetString("REDIS_URL"),
			MinioEndpoint:  viper.GetString("MINIO_ENDPOINT"),
			MinioAccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey: viper.GetString("MINIO_SECRET_KEY"),
			MinioBucket:    viper.GetString("MINIO_BUCKET"),
			AllowedOrigins: viper.GetString("ALLOWED_ORIGINS"),
		}
	})
	return ConfigInstance
}
