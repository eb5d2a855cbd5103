package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9090 || cfg.BackendURL != "http://localhost:5000" || cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.NominatimUserAgent != "SVCA/1.0" || !cfg.MetricsEnabled || cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RateLimitAuth.Burst != 40 || cfg.RateLimitPublic.Burst != 20 {
		t.Fatalf("rate limits = %+v %+v", cfg.RateLimitPublic, cfg.RateLimitAuth)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"segredo curto", map[string]string{"SESSION_SECRET": "curto"}},
		{"porta", map[string]string{"SESSION_SECRET": "0123456789abcdef0123456789abcdef", "PORT": "abc"}},
		{"timeout", map[string]string{"SESSION_SECRET": "0123456789abcdef0123456789abcdef", "BACKEND_TIMEOUT": "rápido"}},
		{"métricas", map[string]string{"SESSION_SECRET": "0123456789abcdef0123456789abcdef", "METRICS_ENABLED": "talvez"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadCLI(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("SVCA_SESSION_FILE", "")
	t.Setenv("SVCA_BACKEND_URL", "http://backend:5000/")
	t.Setenv("NOMINATIM_USER_AGENT", "svca-cli/2.0 (ops@svca.org.br)")

	cfg, err := LoadCLI()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackendURL != "http://backend:5000" {
		t.Fatalf("backend = %s", cfg.BackendURL)
	}
	if cfg.UserAgent != "svca-cli/2.0 (ops@svca.org.br)" || cfg.SearchDebounce != 500*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SessionFile != filepath.Join(dir, "svca", "session.json") {
		t.Fatalf("session file = %s", cfg.SessionFile)
	}
}
