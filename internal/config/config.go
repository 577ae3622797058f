package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Redis    RedisConfig
	DynamoDB DynamoDBConfig
	JWT      JWTConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the refresh token store backend.
type StoreConfig struct {
	Backend string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type JWTConfig struct {
	SecretKey        string
	RefreshSecretKey string
	AccessExpiry     time.Duration
	RefreshExpiry    time.Duration
}

// AuthConfig holds the credential pair accepted by the static verifier.
type AuthConfig struct {
	LoginID     string
	LoginSecret string
}

const (
	StoreBackendRedis    = "redis"
	StoreBackendDynamoDB = "dynamodb"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", StoreBackendRedis),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "RefreshTokens"),
		},
		JWT: JWTConfig{
			SecretKey:        getEnv("JWT_SECRET_KEY", ""),
			RefreshSecretKey: getEnv("JWT_REFRESH_SECRET_KEY", ""),
			AccessExpiry:     getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry:    getEnvAsDuration("JWT_REFRESH_EXPIRY", 14*24*time.Hour),
		},
		Auth: AuthConfig{
			LoginID:     getEnv("AUTH_LOGIN_ID", "hello"),
			LoginSecret: getEnv("AUTH_LOGIN_SECRET", "world"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	if len(cfg.JWT.SecretKey) < 32 {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	// Refresh tokens fall back to the access secret when no distinct key is set.
	if cfg.JWT.RefreshSecretKey == "" {
		cfg.JWT.RefreshSecretKey = cfg.JWT.SecretKey
	}

	if len(cfg.JWT.RefreshSecretKey) < 32 {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	if cfg.Store.Backend != StoreBackendRedis && cfg.Store.Backend != StoreBackendDynamoDB {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
