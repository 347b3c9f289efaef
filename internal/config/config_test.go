package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// loadYAML writes content to config.yaml in a temp dir and loads it.
func loadYAML(t *testing.T, content string) (*Config, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg, dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config, dir string)
	}{
		{
			name: "server section",
			content: `
server:
  host: "127.0.0.1"
  port: 9000
`,
			check: func(t *testing.T, cfg *Config, _ string) {
				if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
					t.Errorf("server = %+v", cfg.Server)
				}
				if cfg.Debug {
					t.Error("debug should default to false")
				}
			},
		},
		{
			name:    "debug",
			content: "debug: true\n",
			check: func(t *testing.T, cfg *Config, _ string) {
				if !cfg.Debug {
					t.Error("debug should be true")
				}
			},
		},
		{
			name: "dot-slash paths resolve against the config directory",
			content: `
storage:
  database_path: "./data/db/documents.db"
  bleve_index_path: "./data/indices/bleve"
  preview_path: "./data/previews"
processing:
  temp_dir: "./tmp"
watch:
  directories: ["./uploads"]
`,
			check: func(t *testing.T, cfg *Config, dir string) {
				want := map[string]string{
					"database_path":    filepath.Join(dir, "data", "db", "documents.db"),
					"bleve_index_path": filepath.Join(dir, "data", "indices", "bleve"),
					"preview_path":     filepath.Join(dir, "data", "previews"),
					"temp_dir":         filepath.Join(dir, "tmp"),
				}
				got := map[string]string{
					"database_path":    cfg.Storage.DatabasePath,
					"bleve_index_path": cfg.Storage.BleveIndexPath,
					"preview_path":     cfg.Storage.PreviewPath,
					"temp_dir":         cfg.Processing.TempDir,
				}
				for k, v := range want {
					if got[k] != v {
						t.Errorf("%s = %s, want %s", k, got[k], v)
					}
				}
				if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "uploads") {
					t.Errorf("watch directories = %v", cfg.Watch.Directories)
				}
				if !cfg.Watch.RecursiveOrDefault() {
					t.Error("recursive should default to true")
				}
			},
		},
		{
			name: "processing and ocr overrides",
			content: `
ocr:
  enabled: false
  provider: tesseract
  language: deu
processing:
  max_pages: 1
  max_file_size_bytes: 1024
  tool_timeout: 5s
  workers: 4
`,
			check: func(t *testing.T, cfg *Config, _ string) {
				if cfg.OCR.EnabledOrDefault() {
					t.Error("ocr should be disabled")
				}
				if cfg.OCR.Provider != "tesseract" || cfg.OCR.Language != "deu" {
					t.Errorf("ocr = %+v", cfg.OCR)
				}
				p := cfg.Processing
				if p.MaxPages != 1 || p.MaxFileSizeBytes != 1024 || p.ToolTimeout != 5*time.Second || p.Workers != 4 {
					t.Errorf("processing = %+v", p)
				}
				if p.MinEmbeddedTextLength != DefaultMinEmbeddedTextLength {
					t.Errorf("unset fields still get defaults, min_embedded_text_length = %d", p.MinEmbeddedTextLength)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, dir := loadYAML(t, tt.content)
			tt.check(t, cfg, dir)
		})
	}
}

func TestLoad_errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Storage.PreviewPath != "/usr/local/var/folio/data/previews" {
		t.Errorf("preview path = %q", cfg.Storage.PreviewPath)
	}
	p := cfg.Processing
	if p.MaxPages != DefaultMaxPages || p.MinEmbeddedTextLength != DefaultMinEmbeddedTextLength {
		t.Errorf("page limits = %d/%d", p.MaxPages, p.MinEmbeddedTextLength)
	}
	if p.MaxFileSizeBytes != 0 {
		t.Errorf("file size limit should be off by default, got %d", p.MaxFileSizeBytes)
	}
	if p.ToolTimeout != 60*time.Second || p.Workers != 2 || p.RasterDPI != 300 {
		t.Errorf("processing = %+v", p)
	}
	if p.PdftotextPath != "pdftotext" || p.PdfinfoPath != "pdfinfo" || p.PdftoppmPath != "pdftoppm" {
		t.Errorf("tool paths = %+v", p)
	}
	if cfg.Search.DefaultPageSize != 50 || cfg.Search.MaxPageSize != 1000 || cfg.Search.SnippetRadius != 60 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if !cfg.OCR.EnabledOrDefault() || cfg.OCR.Provider != "http" || cfg.OCR.Language != "eng" {
		t.Errorf("ocr = %+v", cfg.OCR)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive stays unset without watch directories")
	}

	withDirs := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(withDirs)
	if withDirs.Watch.Recursive == nil || !*withDirs.Watch.Recursive {
		t.Error("recursive should be set to true when directories are configured")
	}
}

func TestOptionalBools(t *testing.T) {
	yes, no := true, false
	for _, tt := range []struct {
		name string
		v    *bool
		want bool
	}{
		{"unset", nil, true},
		{"true", &yes, true},
		{"false", &no, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := WatchConfig{Recursive: tt.v}
			if got := w.RecursiveOrDefault(); got != tt.want {
				t.Errorf("RecursiveOrDefault() = %v, want %v", got, tt.want)
			}
			o := OCRConfig{Enabled: tt.v}
			if got := o.EnabledOrDefault(); got != tt.want {
				t.Errorf("EnabledOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	off := false
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db", BleveIndexPath: "/tmp/bleve"},
		OCR:     OCRConfig{Enabled: &off},
		Watch:   WatchConfig{Directories: []string{"/srv/uploads"}, OwnerID: "alice"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 || loaded.Storage.DatabasePath != "/tmp/db" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.OCR.EnabledOrDefault() {
		t.Error("explicit ocr.enabled=false should survive a save")
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/srv/uploads" || loaded.Watch.OwnerID != "alice" {
		t.Errorf("watch = %+v", loaded.Watch)
	}
}
