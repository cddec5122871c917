package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads database and Redis settings for tests that talk to real backends
// If the TEST_* variables are not set, it returns a Config with empty values
// so callers can skip instead of failing
func LoadTestConfig() (*Config, error) {
	// Try loading from project root
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{}

	if redisHost := os.Getenv("TEST_REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
		cfg.Redis.Port = 6379
		if portStr := os.Getenv("TEST_REDIS_PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid TEST_REDIS_PORT: %w", err)
			}
			cfg.Redis.Port = port
		}
		cfg.Redis.Password = os.Getenv("TEST_REDIS_PASSWORD")
		cfg.Redis.DB = 15
	}

	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		// Return empty config to allow tests to skip
		return cfg, nil
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("TEST_DB_PORT")
	if dbPortStr == "" {
		return cfg, nil
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort
	cfg.Database.User = os.Getenv("TEST_DB_USER")
	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")
	cfg.Database.DBName = os.Getenv("TEST_DB_NAME")

	cfg.JWT.Secret = os.Getenv("TEST_SECRET_KEY")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "test-secret"
	}

	return cfg, nil
}
