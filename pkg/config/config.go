package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Repair   RepairConfig
	Cache    CacheConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

// RepairConfig drives the background balance repair worker.
type RepairConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
}

type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// Missing .env is fine, environment variables still apply (Docker/K8s).

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	repairPoll, _ := strconv.Atoi(getEnv("REPAIR_POLL_INTERVAL_SECONDS", "30"))
	repairBatch, _ := strconv.Atoi(getEnv("REPAIR_BATCH_SIZE", "20"))
	repairRetries, _ := strconv.Atoi(getEnv("REPAIR_MAX_RETRIES", "5"))
	cacheCounters, _ := strconv.ParseInt(getEnv("CACHE_NUM_COUNTERS", "10000"), 10, 64)
	cacheMaxCost, _ := strconv.ParseInt(getEnv("CACHE_MAX_COST", "10000"), 10, 64)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fintrack"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Repair: RepairConfig{
			PollInterval: time.Duration(repairPoll) * time.Second,
			BatchSize:    repairBatch,
			MaxRetries:   repairRetries,
		},
		Cache: CacheConfig{
			NumCounters: cacheCounters,
			MaxCost:     cacheMaxCost,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
