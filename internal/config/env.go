package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return v
}

// getTimeout is getDuration for deadlines: zero would mean no deadline at
// all, so only positive values are accepted.
func getTimeout(key string, fallback time.Duration) time.Duration {
	v := getDuration(key, fallback)
	if v <= 0 {
		log.Printf("Warning: %s must be positive, using %s", key, fallback)
		return fallback
	}
	return v
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getList splits a comma separated value, dropping blank entries.
func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
