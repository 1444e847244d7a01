package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

type AppConfig struct {
	Name     string
	Env      string
	Port     string
	BaseURL  string
	LogJSON  bool
	LogDebug bool

	// RateLimitMax requests per RateLimitWindow per client IP.
	RateLimitMax    int
	RateLimitWindow time.Duration
}

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		appConfig = newAppConfig()
	})
	return appConfig
}

func newAppConfig() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
		log.Printf("Warning: APP_ENV not set, defaulting to %s", env)
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = ":8080"
	}
	return &AppConfig{
		Name:     os.Getenv("APP_NAME"),
		Env:      env,
		Port:     port,
		BaseURL:  os.Getenv("APP_URL"),
		LogJSON:  getBool("LOG_JSON", env == "production"),
		LogDebug: getBool("LOG_DEBUG", false),

		RateLimitMax:    getInt("RATE_LIMIT_MAX", 50),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %v", key, raw, fallback)
		return fallback
	}
	return v
}
