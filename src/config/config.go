package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Retention bounds how many backups the cleanup sweep keeps.
type Retention struct {
	// MaxAgeDays removes backups whose modification time is older.
	MaxAgeDays int `yaml:"max_age_days"`
	// MaxCount removes backups beyond the newest N.
	MaxCount int `yaml:"max_count"`
}

// Defaults applied when the config file omits retention settings.
const (
	DefaultMaxAgeDays = 30
	DefaultMaxCount   = 10
)

// Config is the declarative confsync configuration file.
type Config struct {
	BackupRoot string    `yaml:"backup_root"`
	Retention  Retention `yaml:"retention"`
	Mappings   []Mapping `yaml:"mappings"`
}

// Load reads and decodes the YAML config at path. Paths are expanded
// (~, $VAR); relative repo paths are resolved against the config file's
// directory. Shape errors in individual mappings are not reported here —
// run Registry().ValidateAll() next.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Retention.MaxAgeDays <= 0 {
		cfg.Retention.MaxAgeDays = DefaultMaxAgeDays
	}
	if cfg.Retention.MaxCount <= 0 {
		cfg.Retention.MaxCount = DefaultMaxCount
	}
	if cfg.BackupRoot == "" {
		cfg.BackupRoot = filepath.Join("~", ".confsync", "backups")
	}
	cfg.BackupRoot = ExpandPath(cfg.BackupRoot)

	baseDir := filepath.Dir(path)
	for i := range cfg.Mappings {
		m := &cfg.Mappings[i]
		m.SystemPath = ExpandPath(m.SystemPath)
		m.RepoPath = ExpandPath(m.RepoPath)
		if m.RepoPath != "" && !filepath.IsAbs(m.RepoPath) {
			m.RepoPath = filepath.Join(baseDir, m.RepoPath)
		}
	}
	return &cfg, nil
}

// Registry returns the mapping registry declared by the config.
func (c *Config) Registry() *Registry {
	return NewRegistry(c.Mappings)
}

// ExpandPath expands a leading ~ and any $VAR references.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
