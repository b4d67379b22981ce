package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Environment string
	Port        string
	BaseURL     string
	RedisURL    string
	JWTSecret   string
	JWTTTLHours int
	UploadPath  string

	// Firebase Config
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Pipeline Settings
	PipelineIntervalSeconds int
	SnapshotIntervalMinutes int
	RateLimitRequests       int
	RateLimitWindowMinutes  int
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
		JWTTTLHours: getEnvAsInt("JWT_TTL_HOURS", 24),
		UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		PipelineIntervalSeconds: getEnvAsInt("PIPELINE_INTERVAL_SECONDS", 30),
		SnapshotIntervalMinutes: getEnvAsInt("SNAPSHOT_INTERVAL_MINUTES", 5),
		RateLimitRequests:       getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindowMinutes:  getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
	}
}

func (c *Config) PipelineInterval() time.Duration {
	return time.Duration(c.PipelineIntervalSeconds) * time.Second
}

func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMinutes) * time.Minute
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	return redis.NewClient(opt)
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
