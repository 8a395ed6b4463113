package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Poll.Attempts != 30 {
		t.Errorf("attempts: got %d, want 30", cfg.Poll.Attempts)
	}
	if cfg.Poll.Delay != 500*time.Millisecond {
		t.Errorf("delay: got %s, want 500ms", cfg.Poll.Delay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBase != DefaultAPIBase {
		t.Errorf("api base: got %q, want %q", cfg.APIBase, DefaultAPIBase)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "api_base: https://traceops.example.com\npoll:\n  attempts: 20\n  delay: 250ms\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBase != "https://traceops.example.com" {
		t.Errorf("api base: got %q", cfg.APIBase)
	}
	if cfg.Poll.Attempts != 20 || cfg.Poll.Delay != 250*time.Millisecond {
		t.Errorf("poll: got %+v, want 20 x 250ms", cfg.Poll)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("unset fields should keep defaults, got timeout %s", cfg.RequestTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("poll: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TRACEOPS_API_BASE":      "http://backend:8000",
		"TRACEOPS_POLL_ATTEMPTS": "5",
		"TRACEOPS_POLL_DELAY":    "1s",
		"TRACEOPS_LOG_FORMAT":    "json",
	}
	cfg := Default()
	if err := applyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.APIBase != "http://backend:8000" || cfg.Poll.Attempts != 5 || cfg.Poll.Delay != time.Second {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format: got %q, want %q", cfg.Log.Format, "json")
	}
}

func TestApplyEnv_BadValues(t *testing.T) {
	for key, val := range map[string]string{
		"TRACEOPS_POLL_ATTEMPTS":   "many",
		"TRACEOPS_POLL_DELAY":      "soon",
		"TRACEOPS_REQUEST_TIMEOUT": "10",
	} {
		cfg := Default()
		err := applyEnv(&cfg, func(k string) string {
			if k == key {
				return val
			}
			return ""
		})
		if err == nil || !strings.Contains(err.Error(), key) {
			t.Errorf("%s=%q: expected error naming the variable, got %v", key, val, err)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"ftp scheme", func(c *Config) { c.APIBase = "ftp://x" }, "http or https"},
		{"no host", func(c *Config) { c.APIBase = "http://" }, "no host"},
		{"zero attempts", func(c *Config) { c.Poll.Attempts = 0 }, "at least 1"},
		{"negative delay", func(c *Config) { c.Poll.Delay = -time.Second }, "negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.errSub) {
				t.Errorf("expected error containing %q, got %v", tc.errSub, err)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Poll.Attempts = 20
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Poll.Attempts != 20 {
		t.Errorf("attempts: got %d, want 20", loaded.Poll.Attempts)
	}
}
