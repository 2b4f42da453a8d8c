package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if diff := cmp.Diff(Default(), cfg); diff != "" {
			t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
		}
		if got := cfg.Admin.Addr(); got != "127.0.0.1:50061" {
			t.Errorf("expected addr 127.0.0.1:50061, got %s", got)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("GK_ADMIN_PORT", "9999")
		t.Setenv("GK_ADMIN_HOST", "0.0.0.0")
		t.Setenv("GK_ENGINE_RELOAD_INTERVAL", "0s")
		t.Setenv("GK_DATABASE_URL", "postgres://gk:secret@db:5432/gatekeeper")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Admin.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Admin.Port)
		}
		if cfg.Admin.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Admin.Host)
		}
		if cfg.Engine.ReloadInterval != 0 {
			t.Errorf("expected reload interval 0, got %v", cfg.Engine.ReloadInterval)
		}
		if cfg.Database.URL != "postgres://gk:secret@db:5432/gatekeeper" {
			t.Errorf("expected postgres url from environment, got %s", cfg.Database.URL)
		}
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port above range", "GK_ADMIN_PORT", "70000"},
		{"port zero", "GK_ADMIN_PORT", "0"},
		{"zero request timeout", "GK_ADMIN_REQUEST_TIMEOUT", "0s"},
		{"negative reload interval", "GK_ENGINE_RELOAD_INTERVAL", "-1m"},
		{"unknown scheme", "GK_DATABASE_URL", "mysql://localhost/gk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Admin.RequestTimeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Admin.RequestTimeout)
	}
	if cfg.Engine.ReloadInterval != 5*time.Minute {
		t.Errorf("expected reload interval 5m, got %v", cfg.Engine.ReloadInterval)
	}
	if err := validate(cfg); err != nil {
		t.Errorf("validate(Default()) error = %v, want nil", err)
	}
}
