package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/utils"
)

type Config struct {
	Env                string
	Port               string
	GinMode            string
	LogLevel           string
	DBDriver           string
	DBSource           string
	JWTSecret          string
	JWTTTL             time.Duration
	CorsAllowedOrigins []string
	DefaultTimezone    string
	AdmissionMode      string
	ReservationLength  time.Duration
	AIServiceURL       string
	AITimeout          time.Duration
	AIHealthInterval   time.Duration
	RabbitMQURL        string
	RabbitMQExchange   string
	RateLimitPerSecond float64
	RateLimitBurst     int
	StrictRatePerMin   int
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debug("no .env file loaded")
	}

	cfg := Config{
		Env:                getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBSource:           getEnv("DB_SOURCE", "reservations.db"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-insecure-jwt-secret"),
		JWTTTL:             getEnvDuration("JWT_TTL", 24*time.Hour),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		DefaultTimezone:    getEnv("DEFAULT_TIMEZONE", "UTC"),
		AdmissionMode:      strings.ToLower(getEnv("ADMISSION_MODE", models.AdmissionModeLocal)),
		ReservationLength:  getEnvDuration("DEFAULT_RESERVATION_DURATION", time.Hour),
		AIServiceURL:       strings.TrimRight(getEnv("AI_SERVICE_URL", ""), "/"),
		AITimeout:          getEnvDuration("AI_TIMEOUT", 10*time.Second),
		AIHealthInterval:   getEnvDuration("AI_HEALTH_INTERVAL", 30*time.Second),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "reservations.events"),
		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 50),
		RateLimitBurst:     int(getEnvInt64("RATE_LIMIT_BURST", 100)),
		StrictRatePerMin:   int(getEnvInt64("STRICT_RATE_LIMIT_PER_MINUTE", 5)),
	}

	if cfg.AdmissionMode != models.AdmissionModeAI {
		cfg.AdmissionMode = models.AdmissionModeLocal
	}
	if cfg.ReservationLength <= 0 {
		cfg.ReservationLength = time.Hour
	}
	if cfg.Env == "production" && cfg.JWTSecret == "dev-insecure-jwt-secret" {
		utils.ErrorLogger.Warn("JWT_SECRET is not set; using the development secret")
	}

	return cfg
}

// Location is the fallback timezone for restaurants without one.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		utils.ErrorLogger.Warnf("unknown DEFAULT_TIMEZONE %q, using UTC", c.DefaultTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
