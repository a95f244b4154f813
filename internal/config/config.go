package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// BackendConfig points the client at the memory service.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// SearchConfig configures query defaults and the team filter choices.
type SearchConfig struct {
	DefaultLimit int      `yaml:"default_limit" validate:"gte=1,lte=100"`
	Teams        []string `yaml:"teams"`
}

// UploadConfig configures the ingest input hint and upload timeout.
type UploadConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions"`
	TimeoutSecs       int      `yaml:"timeout_secs" validate:"gte=0"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	Console    bool   `yaml:"console"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Backend BackendConfig `yaml:"backend"`
	Search  SearchConfig  `yaml:"search"`
	Upload  UploadConfig  `yaml:"upload"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// RequestTimeout is the deadline applied to search and history requests.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// UploadTimeout is the deadline applied to ingest requests.
func (c *AppConfig) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSecs) * time.Second
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, cfg.Validate()
}

// LoadDefault tries ./precedent.yaml first, then $XDG_CONFIG_HOME/precedent/config.yaml.
// If neither exists, it writes defaults to the XDG location and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "precedent.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := xdg.ConfigFile(filepath.Join("precedent", "config.yaml"))
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, cfg.Validate()
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultLogFile is where logs go when no file is configured.
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, "precedent", "precedent.log")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Backend: BackendConfig{BaseURL: "http://127.0.0.1:8000", TimeoutSecs: 30},
		Search: SearchConfig{
			DefaultLimit: 10,
			Teams:        []string{"Engineering", "Product", "Design"},
		},
		Upload: UploadConfig{
			AllowedExtensions: []string{".pdf", ".txt", ".md"},
			TimeoutSecs:       120,
		},
		Log:     LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 5},
		Tracing: TracingConfig{Endpoint: "localhost:4318", ServiceName: "precedent"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = def.Backend.BaseURL
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = def.Backend.TimeoutSecs
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = def.Search.DefaultLimit
	}
	if cfg.Search.Teams == nil {
		cfg.Search.Teams = def.Search.Teams
	}
	if len(cfg.Upload.AllowedExtensions) == 0 {
		cfg.Upload.AllowedExtensions = def.Upload.AllowedExtensions
	}
	if cfg.Upload.TimeoutSecs == 0 {
		cfg.Upload.TimeoutSecs = def.Upload.TimeoutSecs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = def.Log.MaxBackups
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = def.Tracing.Endpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = def.Tracing.ServiceName
	}
	for i, ext := range cfg.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Upload.AllowedExtensions[i] = ext
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("PRECEDENT_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PRECEDENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.TimeoutSecs = int((d + time.Second - 1) / time.Second)
		} else if secs, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("PRECEDENT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PRECEDENT_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
}
