package applephotos

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwall/driftwall/pkg/source"
)

func makeLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for album, files := range map[string][]string{
		"Vacation": {"beach.jpg", "sunset.jpeg", "notes.txt"},
		"Pets":     {"cat.png"},
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, album), 0755))
		for _, f := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, album, f), []byte("data:"+f), 0644))
		}
	}
	// hidden dirs and loose files must be ignored
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.jpg"), []byte("x"), 0644))
	return dir
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFetchAlbums(t *testing.T) {
	c, err := New(makeLibrary(t))
	require.NoError(t, err)

	albums, err := c.FetchAlbums(context.Background())
	require.NoError(t, err)
	require.Len(t, albums, 2)

	// sorted by name, image files only counted
	assert.Equal(t, "Pets", albums[0].ID)
	assert.Equal(t, 1, albums[0].Count)
	assert.Equal(t, "Vacation", albums[1].ID)
	assert.Equal(t, 2, albums[1].Count, "non-image files must not be counted")
}

func TestFetchAssetIDs(t *testing.T) {
	c, err := New(makeLibrary(t))
	require.NoError(t, err)

	ids, err := c.FetchAssetIDs(context.Background(), "Vacation")
	require.NoError(t, err)
	assert.Equal(t, []string{"Vacation/beach.jpg", "Vacation/sunset.jpeg"}, ids)
}

func TestFetchImageBytes(t *testing.T) {
	c, err := New(makeLibrary(t))
	require.NoError(t, err)

	data, err := c.FetchImageBytes(context.Background(), "Pets/cat.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("data:cat.png"), data)
}

func TestTraversalRejected(t *testing.T) {
	c, err := New(makeLibrary(t))
	require.NoError(t, err)

	for _, id := range []string{
		"../etc/passwd",
		"Vacation/../../etc/passwd",
		"..",
		"Vacation/..",
	} {
		_, err := c.FetchImageBytes(context.Background(), id)
		assert.Error(t, err, "id %q must be rejected", id)
	}
	_, err = c.FetchAssetIDs(context.Background(), "..")
	assert.Error(t, err)
}

func TestSourceIdentity(t *testing.T) {
	c, err := New(makeLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, source.ApplePhotos, c.Source())
	assert.False(t, c.Source().RequiresNetwork())
}
