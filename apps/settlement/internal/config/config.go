package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DbURL               string
	KafkaBroker         string
	KafkaTopic          string
	ChainID             uint64
	APIPort             int
	VKeyPath            string
	VKeyHash            string
	LightClientVKeyHash string
}

// NewConfig loads configuration from environment variables
func NewConfig() *Config {
	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	return &Config{
		DbURL:               getEnvOrFatal("DB_URL"),
		KafkaBroker:         getEnvOrFatal("KAFKA_BROKER"),
		KafkaTopic:          getEnvOrFatal("KAFKA_TOPIC"),
		ChainID:             getEnvUint64("CHAIN_ID", 84532),
		APIPort:             getEnvInt("API_PORT", 8080),
		VKeyPath:            getEnvOrFatal("VKEY_PATH"),
		VKeyHash:            getEnvOrFatal("VKEY_HASH"),
		LightClientVKeyHash: os.Getenv("LIGHT_CLIENT_VKEY_HASH"),
	}
}

func getEnvOrFatal(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	log.Fatalf("Warning: environment variable %s not set", key)

	return ""
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
