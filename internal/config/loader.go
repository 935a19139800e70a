package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	// Memory admission across all loaded sessions.
	MemBudgetMB int `json:"mem_budget_mb" yaml:"mem_budget_mb" toml:"mem_budget_mb"`
	MemMarginMB int `json:"mem_margin_mb" yaml:"mem_margin_mb" toml:"mem_margin_mb"`

	// Context geometry and compute.
	ContextWindow int  `json:"context_window" yaml:"context_window" toml:"context_window"`
	BatchCapacity int  `json:"batch_capacity" yaml:"batch_capacity" toml:"batch_capacity"`
	Threads       int  `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers     int  `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	UseMmap       bool `json:"use_mmap" yaml:"use_mmap" toml:"use_mmap"`

	// Generation.
	MaxNewTokens int      `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	StopMarkers  []string `json:"stop_markers" yaml:"stop_markers" toml:"stop_markers"`
	SamplerSeed  int64    `json:"sampler_seed" yaml:"sampler_seed" toml:"sampler_seed"`

	// Logging.
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
