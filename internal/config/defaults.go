package config

import "time"

// DefaultMaxPages is the page limit above which page extraction is skipped.
const DefaultMaxPages = 250

// DefaultMinEmbeddedTextLength is the shortest page text classified as embedded.
const DefaultMinEmbeddedTextLength = 10

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/folio/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/folio/data/indices/bleve"
	}
	if cfg.Storage.PreviewPath == "" {
		cfg.Storage.PreviewPath = "/usr/local/var/folio/data/previews"
	}
	if cfg.Processing.MaxPages == 0 {
		cfg.Processing.MaxPages = DefaultMaxPages
	}
	if cfg.Processing.MinEmbeddedTextLength == 0 {
		cfg.Processing.MinEmbeddedTextLength = DefaultMinEmbeddedTextLength
	}
	if cfg.Processing.ToolTimeout == 0 {
		cfg.Processing.ToolTimeout = 60 * time.Second
	}
	if cfg.Processing.Workers == 0 {
		cfg.Processing.Workers = 2
	}
	if cfg.Processing.PdftotextPath == "" {
		cfg.Processing.PdftotextPath = "pdftotext"
	}
	if cfg.Processing.PdfinfoPath == "" {
		cfg.Processing.PdfinfoPath = "pdfinfo"
	}
	if cfg.Processing.PdftoppmPath == "" {
		cfg.Processing.PdftoppmPath = "pdftoppm"
	}
	if cfg.Processing.RasterDPI == 0 {
		cfg.Processing.RasterDPI = 300
	}
	if cfg.OCR.Provider == "" {
		cfg.OCR.Provider = "http"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = 2 * time.Minute
	}
	if cfg.Search.DefaultPageSize == 0 {
		cfg.Search.DefaultPageSize = 50
	}
	if cfg.Search.MaxPageSize == 0 {
		cfg.Search.MaxPageSize = 1000
	}
	if cfg.Search.SnippetRadius == 0 {
		cfg.Search.SnippetRadius = 60
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
