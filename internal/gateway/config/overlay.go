package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// overlay is the optional YAML config file, pointed at by CONFIG_FILE.
// Set fields override the environment-derived values; unset fields keep
// them.
type overlay struct {
	Port   string `yaml:"port"`
	Gemini struct {
		Model string `yaml:"model"`
	} `yaml:"gemini"`
	Board struct {
		SnapshotPath string `yaml:"snapshot_path"`
		DatabaseURL  string `yaml:"database_url"`
	} `yaml:"board"`
	Blob struct {
		Endpoint string `yaml:"endpoint"`
		Region   string `yaml:"region"`
		Bucket   string `yaml:"bucket"`
		UseSSL   *bool  `yaml:"use_ssl"`
	} `yaml:"blob"`
	Context struct {
		MaxBytes int `yaml:"max_bytes"`
	} `yaml:"context"`
}

func applyOverlay(cfg *Config) error {
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var ov overlay
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if v := strings.TrimSpace(ov.Port); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		cfg.Port = v
	}
	if v := strings.TrimSpace(ov.Gemini.Model); v != "" {
		cfg.Gemini.Model = v
	}
	if v := strings.TrimSpace(ov.Board.SnapshotPath); v != "" {
		cfg.Board.SnapshotPath = v
	}
	if v := strings.TrimSpace(ov.Board.DatabaseURL); v != "" {
		cfg.Board.DatabaseURL = v
	}
	if v := strings.TrimSpace(ov.Blob.Endpoint); v != "" {
		cfg.Blob.Endpoint = v
		cfg.Blob.Enabled = true
	}
	if v := strings.TrimSpace(ov.Blob.Region); v != "" {
		cfg.Blob.Region = v
	}
	if v := strings.TrimSpace(ov.Blob.Bucket); v != "" {
		cfg.Blob.Bucket = v
	}
	if ov.Blob.UseSSL != nil {
		cfg.Blob.UseSSL = *ov.Blob.UseSSL
	}
	if ov.Context.MaxBytes > 0 {
		cfg.Context.MaxBytes = ov.Context.MaxBytes
	}
	return nil
}
