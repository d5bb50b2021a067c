package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	FTP      FTPConfig      `toml:"ftp"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// PublicURL prefixes the download links handed out in task results.
	PublicURL string `toml:"public_url"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig locates the data storage root.
type StorageConfig struct {
	Root string `toml:"root"`
}

// FTPConfig describes the remote drop used by backup exports.
type FTPConfig struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	Directory      string `toml:"directory"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the dial timeout, defaulting to 30 seconds.
func (f FTPConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// LogConfig contains logger settings.
//
// When File is set, the application log is also written there and rotated by size.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports the first missing mandatory setting.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("%w: storage.root is required", ErrInvalidConfig)
	}
	if c.FTP.Enabled && c.FTP.Host == "" {
		return fmt.Errorf("%w: ftp.host is required when ftp is enabled", ErrInvalidConfig)
	}
	return nil
}

// ResolvePaths makes relative database, storage and log file paths absolute against baseDir.
func (c *Config) ResolvePaths(baseDir string) {
	if c.Database.Path != ":memory:" && !filepath.IsAbs(c.Database.Path) {
		c.Database.Path = filepath.Join(baseDir, c.Database.Path)
	}
	if !filepath.IsAbs(c.Storage.Root) {
		c.Storage.Root = filepath.Join(baseDir, c.Storage.Root)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(baseDir, c.Log.File)
	}
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
