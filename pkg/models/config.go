package models

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Global   GlobalConfig   `yaml:"global" json:"global"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Matcher  MatcherConfig  `yaml:"matcher" json:"matcher"`
	Checker  CheckerConfig  `yaml:"checker" json:"checker"`
	Licenses LicenseConfig  `yaml:"licenses" json:"licenses"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Registry RegistryConfig `yaml:"registry" json:"registry"`
	API      APIConfig      `yaml:"api" json:"api"`
	Logging  LogConfig      `yaml:"logging" json:"logging"`
}

type GlobalConfig struct {
	DataDir string `yaml:"data_dir" json:"data_dir"`
	Debug   bool   `yaml:"debug" json:"debug"`
}

type EngineConfig struct {
	Workers     int           `yaml:"workers" json:"workers"`
	QueueSize   int           `yaml:"queue_size" json:"queue_size"`
	TaskTimeout time.Duration `yaml:"task_timeout" json:"task_timeout"`
}

type MatcherConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	RateLimit   float64       `yaml:"rate_limit" json:"rate_limit"`
	BatchSize   int           `yaml:"batch_size" json:"batch_size"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
}

type CheckerConfig struct {
	MaxFiles       int `yaml:"max_files" json:"max_files"`
	MaxFileSize    int `yaml:"max_file_size" json:"max_file_size"`
	MaxSnapshotLen int `yaml:"max_snapshot_len" json:"max_snapshot_len"`
}

type LicenseConfig struct {
	Approved []string `yaml:"approved" json:"approved"`
	Denied   []string `yaml:"denied" json:"denied"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver"` // memory or postgres
	DSN    string `yaml:"dsn" json:"dsn"`
}

type RegistryConfig struct {
	WorkspaceDir string `yaml:"workspace_dir" json:"workspace_dir"`
}

type APIConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	EnableMetrics   bool          `yaml:"enable_metrics" json:"enable_metrics"`
}

type LogConfig struct {
	Level        string `yaml:"level" json:"level"`
	Format       string `yaml:"format" json:"format"`
	Output       string `yaml:"output" json:"output"`
	FileLocation string `yaml:"file_location" json:"file_location"`
	MaxSize      int    `yaml:"max_size" json:"max_size"`
	MaxBackups   int    `yaml:"max_backups" json:"max_backups"`
	MaxAge       int    `yaml:"max_age" json:"max_age"`
	Compress     bool   `yaml:"compress" json:"compress"`
}

func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			DataDir: filepath.Join(".", "data"),
		},
		Engine: EngineConfig{
			Workers:     5,
			QueueSize:   256,
			TaskTimeout: 10 * time.Minute,
		},
		Matcher: MatcherConfig{
			BaseURL:     "https://api.osv.dev/v1",
			Timeout:     30 * time.Second,
			RateLimit:   4,
			BatchSize:   100,
			MaxAttempts: 3,
		},
		Checker: CheckerConfig{
			MaxFiles:       30,
			MaxFileSize:    15000,
			MaxSnapshotLen: 150000,
		},
		Licenses: LicenseConfig{
			Approved: []string{"MIT", "Apache-2.0", "BSD-2-Clause", "BSD-3-Clause", "ISC"},
			Denied:   []string{"AGPL-3.0", "SSPL-1.0"},
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Registry: RegistryConfig{
			WorkspaceDir: filepath.Join(".", "workspace"),
		},
		API: APIConfig{
			Host:            "0.0.0.0",
			Port:            8085,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			EnableMetrics:   true,
		},
		Logging: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "console",
			MaxSize:    50,
			MaxBackups: 7,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

func (c *Config) Validate() error {
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("engine.queue_size must be positive, got %d", c.Engine.QueueSize)
	}
	if c.Engine.TaskTimeout <= 0 {
		return fmt.Errorf("engine.task_timeout must be positive, got %v", c.Engine.TaskTimeout)
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
