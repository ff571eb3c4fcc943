package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults.
const (
	DefaultStore     = "neo4j"
	DefaultKuzuPath  = ".codekg/graph.kuzu"
	DefaultBatchSize = 500
	DefaultLogLevel  = "info"
	DefaultTier      = "all"
)

// ProjectConfig holds settings loaded from codekg.yml. Command-line flags
// override them.
type ProjectConfig struct {
	Store       string   `yaml:"store,omitempty"`
	URI         string   `yaml:"uri,omitempty"`
	Database    string   `yaml:"database,omitempty"`
	KuzuPath    string   `yaml:"kuzuPath,omitempty"`
	Workers     int      `yaml:"workers,omitempty"`
	BatchSize   int      `yaml:"batchSize,omitempty"`
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"`
	Languages   []string `yaml:"languages,omitempty"`
	LogLevel    string   `yaml:"logLevel,omitempty"`
	Tier        string   `yaml:"tier,omitempty"`
}

// Load attempts to read codekg.yml or codekg.yaml from the given directory.
// Returns a zero-value config (not an error) if no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{FileName, "codekg.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return parse(path, data)
	}
	return &ProjectConfig{}, nil
}

// LoadFile reads an explicitly named config file, which must exist.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// WithDefaults returns a copy with unset fields filled in.
func (c ProjectConfig) WithDefaults() ProjectConfig {
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.KuzuPath == "" {
		c.KuzuPath = DefaultKuzuPath
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Tier == "" {
		c.Tier = DefaultTier
	}
	return c
}
