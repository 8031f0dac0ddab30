// Package config loads hard75 settings from an optional YAML file and
// HARD75_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sadopc/hard75/internal/imaging"
)

const (
	AppName   = "hard75"
	EnvPrefix = "HARD75"
)

type Config struct {
	DBPath       string        `mapstructure:"db_path"`
	NoteDebounce time.Duration `mapstructure:"note_debounce"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	Remote       RemoteConfig  `mapstructure:"remote"`
	Images       ImagesConfig  `mapstructure:"images"`
	Log          LogConfig     `mapstructure:"log"`
	Server       ServerConfig  `mapstructure:"server"`
}

// RemoteConfig points the client at a backend.
type RemoteConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ImagesConfig struct {
	MaxDimension int     `mapstructure:"max_dimension"`
	Quality      float64 `mapstructure:"quality"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ServerConfig configures `hard75 serve`.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	DBPath    string `mapstructure:"db_path"`
	PublicURL string `mapstructure:"public_url"`
}

// SyncEnabled reports whether the client should talk to a backend.
func (c *Config) SyncEnabled() bool {
	return c.Remote.Enabled && strings.TrimSpace(c.Remote.URL) != ""
}

func (c *Config) ImageOptions() imaging.Options {
	return imaging.Options{MaxDimension: c.Images.MaxDimension, Quality: c.Images.Quality}
}

// Dir returns the per-user hard75 directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "")
	v.SetDefault("note_debounce", 500*time.Millisecond)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", 20*time.Second)
	v.SetDefault("images.max_dimension", imaging.DefaultMaxDimension)
	v.SetDefault("images.quality", imaging.DefaultQuality)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.db_path", "")
	v.SetDefault("server.public_url", "")
}

// Load reads path if given, otherwise config.yaml in Dir() when present.
// A missing default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, dirErr := Dir()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if dirErr == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.fillPaths(dir, dirErr); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) fillPaths(dir string, dirErr error) error {
	if c.DBPath != "" && c.Server.DBPath != "" && c.Log.File != "" {
		return nil
	}
	if dirErr != nil {
		return fmt.Errorf("locate config directory: %w", dirErr)
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(dir, "hard75.db")
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = filepath.Join(dir, "hard75-server.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, "hard75.log")
	}
	return nil
}

// Validate rejects settings the rest of the program cannot use.
func (c *Config) Validate() error {
	if c.Images.Quality <= 0 || c.Images.Quality > 1 {
		return fmt.Errorf("images.quality must be in (0, 1], got %v", c.Images.Quality)
	}
	if c.Images.MaxDimension <= 0 {
		return fmt.Errorf("images.max_dimension must be positive, got %d", c.Images.MaxDimension)
	}
	if c.NoteDebounce < 0 {
		return fmt.Errorf("note_debounce must not be negative")
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must not be negative")
	}
	return nil
}
