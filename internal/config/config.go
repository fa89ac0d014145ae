package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	ServerPort     string
	StoreBackend   string // "postgres" or "memory"
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	JWTSecret      string
	DrainBatchSize int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		StoreBackend:   getEnv("STORE_BACKEND", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "relay"),
		DBPassword:     getEnv("DB_PASSWORD", "relay_dev_password"),
		DBName:         getEnv("DB_NAME", "relay"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		DrainBatchSize: getEnvInt("DRAIN_BATCH_SIZE", 100),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
