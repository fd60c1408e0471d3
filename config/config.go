package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ServerPort int
	Database   DatabaseConfig
	JWT        JWTConfig
	Events     EventsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

// EventsConfig selects the optional lifecycle event backend.
// Backend is one of "rabbitmq", "pubsub", or empty to disable publishing.
type EventsConfig struct {
	Backend               string
	Topic                 string
	RabbitMQURL           string
	PubSubProjectID       string
	PubSubCredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "accountd"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "accountd_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	jwtConfig := JWTConfig{
		Secret:    getEnv("JWT_SECRET", ""),
		ExpiresIn: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
	}

	eventsConfig := EventsConfig{
		Backend:               getEnv("EVENTS_BACKEND", ""),
		Topic:                 getEnv("EVENTS_TOPIC", "user-events"),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		PubSubProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
		PubSubCredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
	}

	return Config{
		Env:        getEnv("ENV", "production"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		JWT:        jwtConfig,
		Events:     eventsConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
