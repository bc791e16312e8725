// ABOUTME: Process configuration from .env, environment variables and scoring.yaml
// ABOUTME: Paths resolve under XDG directories; scoring falls back to compiled defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG subdirectories.
const AppName = "hirepipe"

// Environment variables.
const (
	EnvTenant       = "HIREPIPE_TENANT"
	EnvUser         = "HIREPIPE_USER"
	EnvDBPath       = "HIREPIPE_DB_PATH"
	EnvRedisAddr    = "HIREPIPE_REDIS_ADDR"
	EnvRedisPass    = "HIREPIPE_REDIS_PASSWORD"
	EnvWebPort      = "HIREPIPE_WEB_PORT"
	EnvScoringPath  = "HIREPIPE_SCORING"
	EnvCharmHost    = "HIREPIPE_CHARM_HOST"
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is everything a command needs to start.
type Config struct {
	TenantID      string `validate:"omitempty,max=128"`
	UserID        string `validate:"omitempty,max=128"`
	DBPath        string `validate:"required"`
	RedisAddr     string `validate:"omitempty,hostname_port"`
	RedisPassword string
	WebPort       int    `validate:"min=1,max=65535"`
	CharmHost     string `validate:"omitempty,hostname"`
	SessionDir    string `validate:"required"`
	ScoringPath   string

	GoogleClientID     string
	GoogleClientSecret string

	Health pipeline.HealthConfig
	Stages pipeline.StageConfig
}

// Scoring is the on-disk shape of scoring.yaml.
type Scoring struct {
	Health *pipeline.HealthConfig `yaml:"health"`
	Stages *pipeline.StageConfig  `yaml:"stages"`
}

// DataDir returns the XDG data directory for the app.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultDBPath returns the default database location.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "hirepipe.db")
}

// DefaultScoringPath returns where scoring.yaml is looked up.
func DefaultScoringPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "scoring.yaml")
}

// Load reads .env (if present), the environment and scoring.yaml.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		TenantID:           os.Getenv(EnvTenant),
		UserID:             os.Getenv(EnvUser),
		DBPath:             envOr(EnvDBPath, DefaultDBPath()),
		RedisAddr:          os.Getenv(EnvRedisAddr),
		RedisPassword:      os.Getenv(EnvRedisPass),
		WebPort:            8080,
		CharmHost:          os.Getenv(EnvCharmHost),
		SessionDir:         filepath.Join(DataDir(), "session"),
		ScoringPath:        envOr(EnvScoringPath, DefaultScoringPath()),
		GoogleClientID:     os.Getenv(EnvClientID),
		GoogleClientSecret: os.Getenv(EnvClientSecret),
	}
	if v := os.Getenv(EnvWebPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvWebPort, v, err)
		}
		cfg.WebPort = port
	}

	health, stages, err := LoadScoring(cfg.ScoringPath)
	if err != nil {
		return nil, err
	}
	cfg.Health = health
	cfg.Stages = stages

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field formats.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadScoring reads the rubric and stage table from path. A missing file
// yields the defaults; sections absent from the file keep their defaults.
func LoadScoring(path string) (pipeline.HealthConfig, pipeline.StageConfig, error) {
	health := pipeline.DefaultHealthConfig()
	stages := pipeline.DefaultStageConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return health, stages, nil
	}
	if err != nil {
		return health, stages, fmt.Errorf("failed to read scoring config: %w", err)
	}

	scoring := Scoring{Health: &health, Stages: &stages}
	if err := yaml.Unmarshal(data, &scoring); err != nil {
		return health, stages, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := health.Validate(); err != nil {
		return health, stages, fmt.Errorf("invalid health rubric in %s: %w", path, err)
	}
	if err := stages.Validate(); err != nil {
		return health, stages, fmt.Errorf("invalid stage table in %s: %w", path, err)
	}
	return health, stages, nil
}

// WriteScoring writes the given rubric and stage table as YAML.
func WriteScoring(path string, health pipeline.HealthConfig, stages pipeline.StageConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(Scoring{Health: &health, Stages: &stages})
	if err != nil {
		return fmt.Errorf("failed to encode scoring config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
