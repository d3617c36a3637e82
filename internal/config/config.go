package config

import (
	"os"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string

	// Cron specs for the scheduled sweeps
	OverdueSweepSpec   string
	DueSoonSweepSpec   string
	RetentionSweepSpec string
}

func Load() *Config {
	return &Config{
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "taskflow"),
		DBPassword:    getEnv("DB_PASSWORD", "taskflow"),
		DBName:        getEnv("DB_NAME", "taskflow"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),

		OverdueSweepSpec:   getEnv("OVERDUE_SWEEP_CRON", "0 * * * *"),
		DueSoonSweepSpec:   getEnv("DUE_SOON_SWEEP_CRON", "30 * * * *"),
		RetentionSweepSpec: getEnv("RETENTION_SWEEP_CRON", "0 3 * * *"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
