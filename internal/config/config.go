package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/pkg/protocol"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "sill.json"

	// DefaultPort is the default bridge server port.
	DefaultPort = 8137

	// DefaultHost is the default bridge server host.
	DefaultHost = "localhost"

	// DefaultBridgePath is the default websocket endpoint path.
	DefaultBridgePath = "/bridge"

	// DefaultTemplatesDir is the default template asset directory.
	DefaultTemplatesDir = "templates"
)

// Config represents the complete sill.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Listen contains bridge server listen configuration.
	Listen ListenConfig `json:"listen,omitempty"`

	// Limits contains wire protocol limits.
	Limits LimitsConfig `json:"limits,omitempty"`

	// Templates contains template asset source configuration.
	Templates TemplatesConfig `json:"templates,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ListenConfig contains bridge server listen settings.
type ListenConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Path is the websocket endpoint path.
	Path string `json:"path,omitempty"`
}

// LimitsConfig contains wire protocol limits. Zero values fall back
// to the protocol defaults.
type LimitsConfig struct {
	// MaxFrame is the whole-frame ceiling in bytes.
	MaxFrame int `json:"max_frame,omitempty"`

	// MaxMarkup caps a single markup string in bytes.
	MaxMarkup int `json:"max_markup,omitempty"`
}

// TemplatesConfig describes where template markup is loaded from.
// Dir serves from the local filesystem; S3 adds a bucket fallback.
type TemplatesConfig struct {
	// Dir is the local template directory, relative to the config file.
	Dir string `json:"dir,omitempty"`

	// S3 configures an optional S3 template source.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains S3 template source settings.
type S3Config struct {
	// Bucket is the S3 bucket name. Empty disables the S3 source.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to template names when building object keys.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region of the bucket.
	Region string `json:"region,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is one of text, json.
	Format string `json:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Listen: ListenConfig{
			Host: DefaultHost,
			Port: DefaultPort,
			Path: DefaultBridgePath,
		},
		Limits: LimitsConfig{
			MaxFrame:  protocol.DefaultMaxFrame,
			MaxMarkup: protocol.DefaultMaxMarkup,
		},
		Templates: TemplatesConfig{
			Dir: DefaultTemplatesDir,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for sill.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No sill.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'sill init' to create one, or create sill.json manually")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse sill.json: " + err.Error()).
			WithSuggestion("Check that sill.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Listen.Host == "" {
		c.Listen.Host = DefaultHost
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = DefaultPort
	}
	if c.Listen.Path == "" {
		c.Listen.Path = DefaultBridgePath
	}
	if c.Limits.MaxFrame == 0 {
		c.Limits.MaxFrame = protocol.DefaultMaxFrame
	}
	if c.Limits.MaxMarkup == 0 {
		c.Limits.MaxMarkup = protocol.DefaultMaxMarkup
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = DefaultTemplatesDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Listen.Port))
	}
	if !strings.HasPrefix(c.Listen.Path, "/") {
		return errors.New("E122").
			WithDetail("Endpoint path must start with '/', got " + strconv.Quote(c.Listen.Path))
	}
	if c.Limits.MaxFrame < 0 || c.Limits.MaxMarkup < 0 {
		return errors.New("E120").
			WithDetail("Limits must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E120").
			WithDetail("Log level must be one of debug, info, warn, error, got " + strconv.Quote(c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E120").
			WithDetail("Log format must be one of text, json, got " + strconv.Quote(c.Log.Format))
	}
	return nil
}

// ListenAddress returns the host:port string for the bridge server.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Listen.Host, strconv.Itoa(c.Listen.Port))
}

// BridgeURL returns the full websocket URL engines connect to.
func (c *Config) BridgeURL() string {
	return "ws://" + c.ListenAddress() + c.Listen.Path
}

// ProtocolLimits converts the configured limits to protocol limits.
// The name ceiling is not configurable and stays at the protocol default.
func (c *Config) ProtocolLimits() protocol.Limits {
	l := protocol.DefaultLimits()
	if c.Limits.MaxFrame > 0 {
		l.MaxFrame = c.Limits.MaxFrame
	}
	if c.Limits.MaxMarkup > 0 {
		l.MaxMarkup = c.Limits.MaxMarkup
	}
	return l
}

// TemplatesPath returns the absolute path to the template directory.
func (c *Config) TemplatesPath() string {
	if filepath.IsAbs(c.Templates.Dir) {
		return c.Templates.Dir
	}
	return filepath.Join(c.Dir(), c.Templates.Dir)
}

// HasS3 reports whether an S3 template source is configured.
func (c *Config) HasS3() bool {
	return c.Templates.S3.Bucket != ""
}

// LogLevel returns the configured level as a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Exists checks if a sill.json file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing sill.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E121").
				WithDetail("No sill.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'sill init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory,
// walking up to the nearest sill.json.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
