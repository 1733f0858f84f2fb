package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nconklindev/tableview/internal/logging"
	"github.com/nconklindev/tableview/internal/types"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// Config holds defaults for the render and serve commands. Flags given on the
// command line take precedence.
type Config struct {
	// Output directory. Empty means ./tableview_<timestamp>
	SaveDir string `yaml:"save_dir,omitempty"`

	// Image storage mode (local, base64, none)
	StoreImage string `yaml:"store_image,omitempty"`

	// Longest image edge in pixels, 0 keeps the original size
	ResizeImage int `yaml:"resize_image,omitempty"`

	// Maximum number of rows rendered, 0 renders all
	MaxRows int `yaml:"max_rows,omitempty"`

	DisplayIndex bool `yaml:"display_index,omitempty"`

	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Log format (text, json)
	LogFormat string `yaml:"log_format,omitempty"`

	// Color mode (auto, always, never)
	Color string `yaml:"color,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StoreImage: string(types.StoreLocal),
		Host:       DefaultHost,
		Port:       DefaultPort,
		LogFormat:  string(logging.FormatText),
		Color:      "auto",
	}
}

// configPathFunc resolves where the config file lives when --config is not
// given.
var configPathFunc = defaultConfigPath

// SetConfigPathFunc swaps the path resolver and hands back the previous one.
func SetConfigPathFunc(fn func() (string, error)) func() (string, error) {
	orig := configPathFunc
	configPathFunc = fn
	return orig
}

// defaultConfigPath returns ~/.config/tableview/config.yaml
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tableview", "config.yaml"), nil
}

func DefaultConfigPath() (string, error) {
	return configPathFunc()
}

// Load reads the config file at the default location. When no location can be
// resolved the built-in defaults are used.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads path over the defaults. A missing file is not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath writes the config as YAML, creating parent directories. It backs
// `tableview config init`.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Validate() error {
	if _, err := types.ParseStoreMode(c.StoreImage); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", c.Color)
	}
	if c.ResizeImage < 0 {
		return fmt.Errorf("resize_image must not be negative")
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must not be negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// RenderConfig converts the file settings into a renderer configuration.
func (c *Config) RenderConfig() (types.RenderConfig, error) {
	mode, err := types.ParseStoreMode(c.StoreImage)
	if err != nil {
		return types.RenderConfig{}, err
	}
	return types.RenderConfig{
		SaveDir:      c.SaveDir,
		StoreImage:   mode,
		ResizeImage:  c.ResizeImage,
		MaxRows:      c.MaxRows,
		DisplayIndex: c.DisplayIndex,
	}, nil
}
