package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	JWTSecret             string
	DefinitionCacheTTL    time.Duration
	NotificationChannel   string
	NotificationBaseURL   string
	NotificationKeepAlive time.Duration
	SeedEnabled           bool
	SeedToken             string
	SubmitRateLimit       int
	LogLevel              string
	LogFormat             string
	CORSOrigins           string
	AccessLog             bool
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
	v.SetEnvPrefix("MULTIGRADERS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Multigraders")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("definition.cache_ttl", "10m")
	v.SetDefault("notifications.channel", "multigraders")
	v.SetDefault("notifications.keepalive", "30s")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("submit.rate_limit", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.access", false)

	ttl, err := parseDuration(v, "definition.cache_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "notifications.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		JWTSecret:             v.GetString("jwt.secret"),
		DefinitionCacheTTL:    ttl,
		NotificationChannel:   strings.TrimSpace(v.GetString("notifications.channel")),
		NotificationBaseURL:   strings.TrimSpace(v.GetString("notifications.base_url")),
		NotificationKeepAlive: keepAlive,
		SeedEnabled:           v.GetBool("seed.enabled"),
		SeedToken:             v.GetString("seed.token"),
		SubmitRateLimit:       v.GetInt("submit.rate_limit"),
		LogLevel:              strings.ToLower(v.GetString("log.level")),
		LogFormat:             strings.ToLower(v.GetString("log.format")),
		CORSOrigins:           strings.TrimSpace(v.GetString("cors.origins")),
		AccessLog:             v.GetBool("log.access"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.NotificationChannel == "" {
		cfg.NotificationChannel = "multigraders"
	}
	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 30
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
