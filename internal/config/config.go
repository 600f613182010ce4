package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. LIVE_API_KEY wins over SCALE_API_KEY.
const (
	EnvLiveAPIKey  = "LIVE_API_KEY"
	EnvScaleAPIKey = "SCALE_API_KEY"
	EnvProject     = "ANNOTAUDIT_PROJECT"
	EnvBaseURL     = "ANNOTAUDIT_API_BASE_URL"
	EnvPercentile  = "ANNOTAUDIT_PERCENTILE"
)

type Config struct {
	API    APIConfig    `yaml:"api"`
	Rules  RulesConfig  `yaml:"rules"`
	Audit  AuditConfig  `yaml:"audit"`
	Output OutputConfig `yaml:"output"`
}

type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Project           string  `yaml:"project"`
	Status            string  `yaml:"status,omitempty"`
	PageSize          int     `yaml:"page_size"`
	MaxPages          int     `yaml:"max_pages,omitempty"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Timeout           string  `yaml:"timeout"`

	// Key is never read from YAML.
	Key string `yaml:"-"`
}

type RulesConfig struct {
	Percentile  float64 `yaml:"percentile"`
	ExemptLabel string  `yaml:"exempt_label"`
}

type AuditConfig struct {
	BaseURL string `yaml:"base_url"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:           "https://api.scale.com/v1",
			Project:           "Traffic Sign Detection",
			PageSize:          100,
			RequestsPerSecond: 5,
			Timeout:           "60s",
		},
		Rules: RulesConfig{
			Percentile:  95,
			ExemptLabel: "non_visible_face",
		},
		Audit: AuditConfig{
			BaseURL: "https://dashboard.scale.com/audit",
		},
		Output: OutputConfig{
			Path: "results.json",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, an optional
// dotenv file and the process environment, in that order. Missing files at
// the default locations are not an error; an explicitly named one is.
func Load(path, envFile string, explicit bool) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvScaleAPIKey); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv(EnvLiveAPIKey); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv(EnvProject); v != "" {
		c.API.Project = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvPercentile); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPercentile, err)
		}
		c.Rules.Percentile = p
	}
	return nil
}

func (c Config) Validate() error {
	if c.Rules.Percentile <= 0 || c.Rules.Percentile > 100 {
		return fmt.Errorf("rules.percentile must be in (0,100], got %v", c.Rules.Percentile)
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize)
	}
	if c.API.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.requests_per_second must be positive, got %v", c.API.RequestsPerSecond)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.API.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, err)
	}
	return d, nil
}
