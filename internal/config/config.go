package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the dialogue engine service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel  string
	LogPretty bool

	SessionStoreURL string
	SessionTTL      time.Duration

	PredictedTTL time.Duration

	StreamChunkWords int
	StreamDelayMin   time.Duration
	StreamDelayMax   time.Duration

	ContentPackPath    string
	DefaultPersonality string
	Language           string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "kestrel"),
		AllowAnyOrigin:     false,
		LogLevel:           envOrDefault("APP_LOG_LEVEL", "info"),
		LogPretty:          false,
		SessionStoreURL:    stringsTrimSpace("SESSION_STORE_URL"),
		SessionTTL:         24 * time.Hour,
		PredictedTTL:       30 * time.Second,
		StreamChunkWords:   30,
		StreamDelayMin:     30 * time.Millisecond,
		StreamDelayMax:     80 * time.Millisecond,
		ContentPackPath:    stringsTrimSpace("CONTENT_PACK_PATH"),
		DefaultPersonality: envOrDefault("DEFAULT_PERSONALITY", "friendly"),
		Language:           envOrDefault("APP_LANGUAGE", "en"),
		ShutdownTimeout:    15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.PredictedTTL, err = durationFromEnv("PREDICTED_RESPONSE_TTL", cfg.PredictedTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.StreamChunkWords, err = intFromEnv("STREAM_CHUNK_WORDS", cfg.StreamChunkWords)
	if err != nil {
		return Config{}, err
	}
	cfg.StreamDelayMin, err = durationFromEnv("STREAM_DELAY_MIN", cfg.StreamDelayMin)
	if err != nil {
		return Config{}, err
	}
	cfg.StreamDelayMax, err = durationFromEnv("STREAM_DELAY_MAX", cfg.StreamDelayMax)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.LogPretty, err = boolFromEnv("APP_LOG_PRETTY", cfg.LogPretty)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL < time.Minute {
		return Config{}, fmt.Errorf("SESSION_TTL must be at least 1m")
	}
	if cfg.PredictedTTL <= 0 {
		return Config{}, fmt.Errorf("PREDICTED_RESPONSE_TTL must be positive")
	}
	if cfg.StreamChunkWords <= 0 {
		return Config{}, fmt.Errorf("STREAM_CHUNK_WORDS must be positive")
	}
	if cfg.StreamDelayMin < 0 || cfg.StreamDelayMax < cfg.StreamDelayMin {
		return Config{}, fmt.Errorf("STREAM_DELAY_MIN/STREAM_DELAY_MAX must satisfy 0 <= min <= max")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
