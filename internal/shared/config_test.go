package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ecopart.db" {
			t.Errorf("expected database path ./ecopart.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 4000 {
			t.Errorf("expected server port 4000, got %d", config.Server.Port)
		}

		if config.Storage.Root != "./data_storage" {
			t.Errorf("expected storage root ./data_storage, got %s", config.Storage.Root)
		}

		if config.FTP.Enabled {
			t.Error("ftp should be disabled by default")
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20

[server]
host = "0.0.0.0"
port = 8080
public_url = "https://ecopart.example.org"

[storage]
root = "/srv/ecopart"

[ftp]
enabled = true
host = "ftp.example.org:21"
directory = "/drop"
timeout_seconds = 5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Database.MaxIdleConns != 2 {
			t.Errorf("expected unset max_idle_conns to keep default 2, got %d", config.Database.MaxIdleConns)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Storage.Root != "/srv/ecopart" {
			t.Errorf("expected storage root /srv/ecopart, got %s", config.Storage.Root)
		}
		if !config.FTP.Enabled || config.FTP.Timeout() != 5*time.Second {
			t.Errorf("unexpected ftp config: %+v", config.FTP)
		}
	})

	t.Run("LoadConfig rejects ftp without host", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[ftp]\nenabled = true\nhost = \"\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ResolvePaths", func(t *testing.T) {
		config := DefaultConfig()
		config.Log.File = "logs/ecopart.log"
		config.ResolvePaths("/base")

		if config.Database.Path != "/base/ecopart.db" {
			t.Errorf("expected /base/ecopart.db, got %s", config.Database.Path)
		}
		if config.Storage.Root != "/base/data_storage" {
			t.Errorf("expected /base/data_storage, got %s", config.Storage.Root)
		}
		if config.Log.File != "/base/logs/ecopart.log" {
			t.Errorf("expected /base/logs/ecopart.log, got %s", config.Log.File)
		}
	})
}
