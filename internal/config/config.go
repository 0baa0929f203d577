package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	RealtimeChannel     string
	JWTSecret           string
	DefaultPairsCount   int
	DistributionSeed    uint64
	TaskLockTTL         time.Duration
	AssignmentsCacheTTL time.Duration
	PublishConcurrency  int
	ReviewRateLimit     int
	ReviewRateWindow    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Cross-Check API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("realtime.channel", "gema:crosscheck")
	v.SetDefault("crosscheck.default_pairs_count", 4)
	v.SetDefault("crosscheck.seed", 0)
	v.SetDefault("crosscheck.lock_ttl", "30s")
	v.SetDefault("crosscheck.assignments_cache_ttl", "5m")
	v.SetDefault("crosscheck.publish_concurrency", 8)
	v.SetDefault("crosscheck.review_rate_limit", 30)
	v.SetDefault("crosscheck.review_rate_window", "1m")

	lockTTL, err := parseDuration(v, "crosscheck.lock_ttl", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "crosscheck.assignments_cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v, "crosscheck.review_rate_window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		RealtimeChannel:     v.GetString("realtime.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		DefaultPairsCount:   v.GetInt("crosscheck.default_pairs_count"),
		DistributionSeed:    v.GetUint64("crosscheck.seed"),
		TaskLockTTL:         lockTTL,
		AssignmentsCacheTTL: cacheTTL,
		PublishConcurrency:  v.GetInt("crosscheck.publish_concurrency"),
		ReviewRateLimit:     v.GetInt("crosscheck.review_rate_limit"),
		ReviewRateWindow:    rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DefaultPairsCount <= 0 {
		return Config{}, fmt.Errorf("crosscheck default pairs count must be positive, got %d", cfg.DefaultPairsCount)
	}

	if cfg.PublishConcurrency <= 0 {
		cfg.PublishConcurrency = 8
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
