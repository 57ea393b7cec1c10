package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	App  AppConfig
	API  APIConfig
	Auth AuthConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type APIConfig struct {
	// BaseURL includes the versioned prefix, e.g. http://localhost:8000/api/v1
	BaseURL string
}

type AuthConfig struct {
	// Token is the stored bearer token; empty means no session yet.
	Token string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/engine.log"),
		},
		API: APIConfig{
			BaseURL: getEnv("ATHENA_API_URL", "http://localhost:8000/api/v1"),
		},
		Auth: AuthConfig{
			Token: getEnv("ATHENA_TOKEN", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
