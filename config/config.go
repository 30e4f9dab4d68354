package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application-level configuration loaded from disk.
// Scheduler settings that the user changes at runtime (interval, scaling
// mode, all-desktops flag) live in the album repository instead, so this
// struct only carries wiring that is fixed for the lifetime of the process.
type Config struct {
	PhotosLibraryDir string        `json:"photos_library_dir"`
	LightroomBaseURL string        `json:"lightroom_base_url"`
	LightroomAPIKey  string        `json:"lightroom_api_key"`
	CacheMaxBytes    int64         `json:"cache_max_bytes"`
	MaxHistory       int           `json:"max_history"`
	PollInterval     time.Duration `json:"remote_poll_interval"`
	PrefetchCount    int           `json:"prefetch_count"`
	SmartFill        bool          `json:"smart_fill"`
}

// GetWorkingDir returns the per-user working directory, creating it if
// needed. Cache, database and composites all live under it.
func GetWorkingDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, "."+strings.ToLower(AppName))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetFilename returns the path to the user's config file.
func GetFilename() (string, error) {
	dir, err := GetWorkingDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file, falling back to defaults for anything missing.
// A missing file is not an error; the zero config plus defaults is usable.
func Load(filename string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config back to disk with indentation for hand editing.
func (c *Config) Save(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func (c *Config) applyDefaults() {
	if c.CacheMaxBytes <= 0 {
		c.CacheMaxBytes = DefaultCacheMaxBytes
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PrefetchCount <= 0 {
		c.PrefetchCount = DefaultPrefetchCount
	}
	if c.LightroomBaseURL == "" {
		c.LightroomBaseURL = "https://lr.adobe.io"
	}
}
