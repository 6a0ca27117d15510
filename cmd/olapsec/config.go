package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

// Config holds the olapsec configuration
type Config struct {
	// Metadata and policy
	CatalogPath string `json:"catalog_path"` // YAML catalog document
	PolicyPath  string `json:"policy_path"`  // Policy document (.yaml, .json or .o)

	// Cache settings
	PolicyCacheTime int `json:"policy_cache_time"` // How long to cache the policy (seconds)
	MemberCacheSize int `json:"member_cache_size"` // Per-hierarchy member memo capacity

	// Logging settings
	AuditLogPath string `json:"audit_log_path,omitempty"` // Optional: grants and decisions
	AppLogPath   string `json:"app_log_path,omitempty"`   // Optional: stdout when empty
	LogLevel     string `json:"log_level,omitempty"`
	LogMaxSize   int64  `json:"log_max_size,omitempty"` // Rotation threshold in bytes
	Debug        bool   `json:"debug,omitempty"`        // Shorthand for log_level debug
}

// LoadConfig loads configuration from a JSON file. Comments and trailing
// commas are allowed.
func LoadConfig(fs afero.Fs, path string, config *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if config.CatalogPath == "" {
		return fmt.Errorf("catalog_path is required")
	}
	if config.PolicyPath == "" {
		return fmt.Errorf("policy_path is required")
	}

	// Relative paths are relative to the config file
	configDir := filepath.Dir(path)
	for _, p := range []*string{&config.CatalogPath, &config.PolicyPath, &config.AuditLogPath, &config.AppLogPath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}

	if config.PolicyCacheTime == 0 {
		config.PolicyCacheTime = 60 // 1 minute
	}
	if config.MemberCacheSize == 0 {
		config.MemberCacheSize = 4096
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Debug {
		config.LogLevel = "debug"
	}

	return nil
}
