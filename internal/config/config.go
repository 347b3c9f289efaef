// Package config provides configuration loading and structs for the folio server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Processing ProcessingConfig `yaml:"processing"`
	OCR        OCRConfig        `yaml:"ocr"`
	Search     SearchConfig     `yaml:"search"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, the keyword index, and preview images.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	PreviewPath    string `yaml:"preview_path"`
}

// ProcessingConfig holds limits and external tool settings for the PDF pipeline.
type ProcessingConfig struct {
	// MaxFileSizeBytes fails documents larger than this. Zero disables the check.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
	// MaxPages skips page extraction for documents with more pages.
	MaxPages              int           `yaml:"max_pages"`
	MinEmbeddedTextLength int           `yaml:"min_embedded_text_length"`
	ToolTimeout           time.Duration `yaml:"tool_timeout"`
	Workers               int           `yaml:"workers"`
	PdftotextPath         string        `yaml:"pdftotext_path"`
	PdfinfoPath           string        `yaml:"pdfinfo_path"`
	PdftoppmPath          string        `yaml:"pdftoppm_path"`
	RasterDPI             int           `yaml:"raster_dpi"`
	TempDir               string        `yaml:"temp_dir"`
}

// OCRConfig holds settings for the text recognition service.
type OCRConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Provider string        `yaml:"provider"`
	URL      string        `yaml:"url"`
	Language string        `yaml:"language"`
	MinScore float64       `yaml:"min_score"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EnabledOrDefault returns whether OCR fallback is on; defaults to true when unset.
func (o *OCRConfig) EnabledOrDefault() bool {
	if o.Enabled != nil {
		return *o.Enabled
	}
	return true
}

// SearchConfig holds search pagination and snippet settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	SnippetRadius   int `yaml:"snippet_radius"`
}

// WatchConfig holds upload directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
	OwnerID     string   `yaml:"owner_id"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.PreviewPath = expandPath(cfg.Storage.PreviewPath, configDir)
	if cfg.Processing.TempDir != "" {
		cfg.Processing.TempDir = expandPath(cfg.Processing.TempDir, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
