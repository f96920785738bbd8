package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sill-dev/sill/pkg/protocol"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Listen.Port != DefaultPort {
		t.Errorf("Listen.Port = %d, want %d", cfg.Listen.Port, DefaultPort)
	}
	if cfg.Listen.Host != DefaultHost {
		t.Errorf("Listen.Host = %q, want %q", cfg.Listen.Host, DefaultHost)
	}
	if cfg.Listen.Path != DefaultBridgePath {
		t.Errorf("Listen.Path = %q, want %q", cfg.Listen.Path, DefaultBridgePath)
	}
	if cfg.Limits.MaxFrame != protocol.DefaultMaxFrame {
		t.Errorf("Limits.MaxFrame = %d, want %d", cfg.Limits.MaxFrame, protocol.DefaultMaxFrame)
	}
	if cfg.Templates.Dir != DefaultTemplatesDir {
		t.Errorf("Templates.Dir = %q, want %q", cfg.Templates.Dir, DefaultTemplatesDir)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Loading a directory without sill.json must fail.
	_, err := Load(tmpDir)
	if err == nil {
		t.Error("Expected error for missing config")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "name": "dashboard",
  "listen": {
    "host": "0.0.0.0",
    "port": 9000,
    "path": "/live"
  },
  "limits": {
    "max_markup": 8192
  },
  "templates": {
    "dir": "assets/templates",
    "s3": {
      "bucket": "sill-assets",
      "prefix": "tpl/",
      "region": "eu-west-1"
    }
  },
  "log": {
    "level": "debug",
    "format": "json"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "dashboard" {
		t.Errorf("Name = %q, want %q", cfg.Name, "dashboard")
	}
	if cfg.Listen.Host != "0.0.0.0" {
		t.Errorf("Listen.Host = %q, want %q", cfg.Listen.Host, "0.0.0.0")
	}
	if cfg.Listen.Port != 9000 {
		t.Errorf("Listen.Port = %d, want %d", cfg.Listen.Port, 9000)
	}
	if cfg.Listen.Path != "/live" {
		t.Errorf("Listen.Path = %q, want %q", cfg.Listen.Path, "/live")
	}
	if cfg.Limits.MaxMarkup != 8192 {
		t.Errorf("Limits.MaxMarkup = %d, want %d", cfg.Limits.MaxMarkup, 8192)
	}
	// Unset limits fall back to the protocol default.
	if cfg.Limits.MaxFrame != protocol.DefaultMaxFrame {
		t.Errorf("Limits.MaxFrame = %d, want %d", cfg.Limits.MaxFrame, protocol.DefaultMaxFrame)
	}
	if cfg.Templates.S3.Bucket != "sill-assets" {
		t.Errorf("Templates.S3.Bucket = %q, want %q", cfg.Templates.S3.Bucket, "sill-assets")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E120") {
		t.Errorf("error = %v, want E120", err)
	}
}

func TestLoadMissingReportsE121(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	if !strings.Contains(err.Error(), "E121") {
		t.Errorf("error = %v, want E121", err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Name = "kiosk"
	cfg.Listen.Port = 9999

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("saved config should end with a newline")
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Name != "kiosk" {
		t.Errorf("Name = %q, want %q", loaded.Name, "kiosk")
	}
	if loaded.Listen.Port != 9999 {
		t.Errorf("Listen.Port = %d, want %d", loaded.Listen.Port, 9999)
	}

	// Save without a path must fail; after SaveTo the path is set.
	fresh := New()
	if err := fresh.Save(); err == nil {
		t.Error("Save without path should fail")
	}
	loaded.Listen.Port = 9998
	if err := loaded.Save(); err != nil {
		t.Errorf("Save error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"port too large", func(c *Config) { c.Listen.Port = 70000 }, "E122"},
		{"negative port", func(c *Config) { c.Listen.Port = -1 }, "E122"},
		{"path without slash", func(c *Config) { c.Listen.Path = "bridge" }, "E122"},
		{"negative limit", func(c *Config) { c.Limits.MaxFrame = -1 }, "E120"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "E120"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "E120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %s", err, tt.wantErr)
			}
		})
	}
}

func TestListenAddress(t *testing.T) {
	cfg := New()
	cfg.Listen.Host = "0.0.0.0"
	cfg.Listen.Port = 9000

	if got := cfg.ListenAddress(); got != "0.0.0.0:9000" {
		t.Errorf("ListenAddress() = %q, want %q", got, "0.0.0.0:9000")
	}
}

func TestBridgeURL(t *testing.T) {
	cfg := New()
	want := "ws://" + DefaultHost + ":8137" + DefaultBridgePath
	if got := cfg.BridgeURL(); got != want {
		t.Errorf("BridgeURL() = %q, want %q", got, want)
	}
}

func TestProtocolLimits(t *testing.T) {
	cfg := New()
	cfg.Limits.MaxFrame = 1024
	cfg.Limits.MaxMarkup = 512

	l := cfg.ProtocolLimits()
	if l.MaxFrame != 1024 {
		t.Errorf("MaxFrame = %d, want %d", l.MaxFrame, 1024)
	}
	if l.MaxMarkup != 512 {
		t.Errorf("MaxMarkup = %d, want %d", l.MaxMarkup, 512)
	}
	if l.MaxName != protocol.DefaultMaxName {
		t.Errorf("MaxName = %d, want %d", l.MaxName, protocol.DefaultMaxName)
	}
}

func TestTemplatesPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Templates.Dir = "assets/templates"
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(tmpDir, "assets", "templates")
	if got := cfg.TemplatesPath(); got != want {
		t.Errorf("TemplatesPath() = %q, want %q", got, want)
	}

	cfg.Templates.Dir = "/srv/templates"
	if got := cfg.TemplatesPath(); got != "/srv/templates" {
		t.Errorf("TemplatesPath() = %q, want %q", got, "/srv/templates")
	}
}

func TestHasS3(t *testing.T) {
	cfg := New()
	if cfg.HasS3() {
		t.Error("HasS3() should be false without a bucket")
	}
	cfg.Templates.S3.Bucket = "sill-assets"
	if !cfg.HasS3() {
		t.Error("HasS3() should be true with a bucket")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := New()
		cfg.Log.Level = tt.level
		if got := cfg.LogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should be false for empty dir")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should be true after writing sill.json")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if root != tmpDir {
		t.Errorf("root = %q, want %q", root, tmpDir)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Listen.Port != DefaultPort {
		t.Errorf("Listen.Port = %d, want %d", cfg.Listen.Port, DefaultPort)
	}
	if cfg.Listen.Host != DefaultHost {
		t.Errorf("Listen.Host = %q, want %q", cfg.Listen.Host, DefaultHost)
	}
	if cfg.Limits.MaxMarkup != protocol.DefaultMaxMarkup {
		t.Errorf("Limits.MaxMarkup = %d, want %d", cfg.Limits.MaxMarkup, protocol.DefaultMaxMarkup)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}
