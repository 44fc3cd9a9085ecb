package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.PredictedTTL != 30*time.Second {
		t.Fatalf("PredictedTTL = %v, want 30s", cfg.PredictedTTL)
	}
	if cfg.StreamChunkWords != 30 {
		t.Fatalf("StreamChunkWords = %d, want 30", cfg.StreamChunkWords)
	}
	if cfg.StreamDelayMin != 30*time.Millisecond || cfg.StreamDelayMax != 80*time.Millisecond {
		t.Fatalf("stream delays = %v/%v, want 30ms/80ms", cfg.StreamDelayMin, cfg.StreamDelayMax)
	}
	if cfg.DefaultPersonality != "friendly" {
		t.Fatalf("DefaultPersonality = %q, want %q", cfg.DefaultPersonality, "friendly")
	}
	if cfg.Language != "en" {
		t.Fatalf("Language = %q, want %q", cfg.Language, "en")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SESSION_TTL", "48h")
	t.Setenv("PREDICTED_RESPONSE_TTL", "10s")
	t.Setenv("STREAM_CHUNK_WORDS", "12")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTTL != 48*time.Hour {
		t.Fatalf("SessionTTL = %v, want 48h", cfg.SessionTTL)
	}
	if cfg.PredictedTTL != 10*time.Second {
		t.Fatalf("PredictedTTL = %v, want 10s", cfg.PredictedTTL)
	}
	if cfg.StreamChunkWords != 12 {
		t.Fatalf("StreamChunkWords = %d, want 12", cfg.StreamChunkWords)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"SESSION_TTL", "10s"},
		{"PREDICTED_RESPONSE_TTL", "-1s"},
		{"STREAM_CHUNK_WORDS", "0"},
		{"STREAM_CHUNK_WORDS", "not-a-number"},
		{"STREAM_DELAY_MIN", "100ms"}, // greater than the 80ms max default
		{"APP_ALLOW_ANY_ORIGIN", "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%q", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_PRETTY",
		"APP_LANGUAGE",
		"SESSION_STORE_URL",
		"SESSION_TTL",
		"PREDICTED_RESPONSE_TTL",
		"STREAM_CHUNK_WORDS",
		"STREAM_DELAY_MIN",
		"STREAM_DELAY_MAX",
		"CONTENT_PACK_PATH",
		"DEFAULT_PERSONALITY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
