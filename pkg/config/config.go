package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBase        = "http://localhost:8000"
	DefaultPollAttempts   = 30
	DefaultPollDelay      = 500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

type PollConfig struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	APIBase        string        `yaml:"api_base"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Poll           PollConfig    `yaml:"poll"`
	Log            LogConfig     `yaml:"log"`
	MetricsAddr    string        `yaml:"metrics_addr"`
}

func Default() Config {
	return Config{
		APIBase:        DefaultAPIBase,
		RequestTimeout: DefaultRequestTimeout,
		Poll: PollConfig{
			Attempts: DefaultPollAttempts,
			Delay:    DefaultPollDelay,
		},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".traceops", "config.yaml"), nil
}

// Load builds the configuration from defaults, the YAML file at path (a
// missing file is not an error), .env files and TRACEOPS_* variables, in
// that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("TRACEOPS_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := getenv("TRACEOPS_POLL_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TRACEOPS_POLL_ATTEMPTS %q: %w", v, err)
		}
		cfg.Poll.Attempts = n
	}
	if v := getenv("TRACEOPS_POLL_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRACEOPS_POLL_DELAY %q: %w", v, err)
		}
		cfg.Poll.Delay = d
	}
	if v := getenv("TRACEOPS_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TRACEOPS_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}
	if v := getenv("TRACEOPS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("TRACEOPS_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := getenv("TRACEOPS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil {
		return fmt.Errorf("invalid api base %q: %w", c.APIBase, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("api base %q must use http or https", c.APIBase)
	}
	if u.Host == "" {
		return fmt.Errorf("api base %q has no host", c.APIBase)
	}
	if c.Poll.Attempts < 1 {
		return fmt.Errorf("poll attempts must be at least 1, got %d", c.Poll.Attempts)
	}
	if c.Poll.Delay < 0 {
		return fmt.Errorf("poll delay must not be negative, got %s", c.Poll.Delay)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
