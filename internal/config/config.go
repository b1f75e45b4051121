package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv                 string
	LogLevel               slog.Level
	ApiServicePort         string
	PostgreSQLHost         string
	PostgreSQLPort         int64
	PostgreSQLUser         string
	PostgreSQLPassword     string
	PostgreSQLDatabase     string
	JWTSecret              string
	AccessTokenExpMinutes  int64
	RefreshTokenExpDays    int64
	LoginAttemptLimit      int64
	LoginAttemptWindowSecs int64
	JanitorCronSchedule    string
	RedisHost              string
	RedisPort              int64
	RedisPassword          string
	RedisDatabase          int64
}

func LoadConfig() *Config {
	return &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),                   // Default development
		LogLevel:               getLogLevel(),                                      // Default INFO
		ApiServicePort:         getEnv("API_SERVICE_PORT", "8080"),                 // Default 8080
		PostgreSQLHost:         getEnv("POSTGRESQL_HOST", "db"),                    // Default db
		PostgreSQLPort:         getEnvAsInt64("POSTGRESQL_PORT", 5432),             // Default 5432
		PostgreSQLUser:         getEnv("POSTGRESQL_USER", "lecturehub_user"),       // Default user
		PostgreSQLPassword:     getEnv("POSTGRESQL_PASSWORD", "lecturehub_pass"),   // Default password
		PostgreSQLDatabase:     getEnv("POSTGRESQL_DATABASE", "lecturehub_db"),     // Default database name
		JWTSecret:              getEnv("JWT_SECRET", ""),                           // No default; startup fails if missing/short
		AccessTokenExpMinutes:  getEnvAsInt64("ACCESS_TOKEN_EXP_MINUTES", 15),      // Default 15 minutes
		RefreshTokenExpDays:    getEnvAsInt64("REFRESH_TOKEN_EXP_DAYS", 7),         // Default 7 days
		LoginAttemptLimit:      getEnvAsInt64("LOGIN_ATTEMPT_LIMIT", 10),           // Default 10 attempts per window
		LoginAttemptWindowSecs: getEnvAsInt64("LOGIN_ATTEMPT_WINDOW_SECONDS", 900), // Default 15 minutes
		JanitorCronSchedule:    getEnv("TOKEN_JANITOR_CRON", "0 3 * * *"),          // Default daily at 03:00
		RedisHost:              getEnv("REDIS_HOST", "redis"),                      // Default redis
		RedisPort:              getEnvAsInt64("REDIS_PORT", 6379),                  // Default 6379
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),                       // Default empty
		RedisDatabase:          getEnvAsInt64("REDIS_DATABASE", 0),                 // Default 0
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
