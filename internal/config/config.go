package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region sections

// DataConfig controls the normalizer.
type DataConfig struct {
	Normalize bool   `yaml:"normalize"`
	Method    string `yaml:"method"` // "minmax" | "zscore"
}

// ModelsConfig controls the model manager.
type ModelsConfig struct {
	ModelPath     string `yaml:"model_path"`
	FallbackModel string `yaml:"fallback_model"`
}

// MessagingConfig controls the adaptive messaging step.
type MessagingConfig struct {
	MaxRiskScore   float64 `yaml:"max_risk_score"`
	MinHealthScore float64 `yaml:"min_health_score"`
	BaseBatchSize  int     `yaml:"base_batch_size"`
}

// MonitoringConfig controls the health monitor.
type MonitoringConfig struct {
	ProbeAddr     string  `yaml:"probe_addr"` // optional gRPC upstream, empty = no probe
	MaxHeapMB     float64 `yaml:"max_heap_mb"`
	MaxGoroutines int     `yaml:"max_goroutines"`
}

// DatabaseConfig locates the SQLite file shared by registry, run log,
// and health history.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// #endregion sections

// #region config

// Config is the full nested configuration. Sections are forwarded verbatim
// to the subsystem constructors; validation beyond presence is theirs.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Models     ModelsConfig     `yaml:"models"`
	Messaging  MessagingConfig  `yaml:"messaging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Database   DatabaseConfig   `yaml:"database"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Data: DataConfig{
			Normalize: false,
			Method:    "minmax",
		},
		Messaging: MessagingConfig{
			MaxRiskScore:   0.9,
			MinHealthScore: 0.25,
			BaseBatchSize:  32,
		},
		Monitoring: MonitoringConfig{
			MaxHeapMB:     1024,
			MaxGoroutines: 1000,
		},
		Database: DatabaseConfig{
			Path: "coordinator.db",
		},
	}
}

// #endregion config

// #region load

// Load reads a YAML file over the defaults. Missing keys keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Data.Method == "" {
		cfg.Data.Method = "minmax"
	}
	return cfg, nil
}

// #endregion load
