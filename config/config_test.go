package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, int64(DefaultCacheMaxBytes), cfg.CacheMaxBytes)
	assert.Equal(t, DefaultMaxHistory, cfg.MaxHistory)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultPrefetchCount, cfg.PrefetchCount)
	assert.Equal(t, "https://lr.adobe.io", cfg.LightroomBaseURL)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	want := &Config{
		PhotosLibraryDir: "/photos",
		LightroomAPIKey:  "key",
		CacheMaxBytes:    123,
		MaxHistory:       7,
		SmartFill:        true,
	}
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/photos", got.PhotosLibraryDir)
	assert.Equal(t, "key", got.LightroomAPIKey)
	assert.Equal(t, int64(123), got.CacheMaxBytes)
	assert.Equal(t, 7, got.MaxHistory)
	assert.True(t, got.SmartFill)
	// zero fields still default
	assert.Equal(t, DefaultPollInterval, got.PollInterval)
}
