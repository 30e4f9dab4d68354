// Package applephotos serves assets from a local Apple Photos export
// directory. Each immediate subdirectory is an album; asset IDs are
// "album/filename" paths relative to the library root. Being purely local,
// it is the offline fallback source.
package applephotos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/driftwall/driftwall/pkg/source"
)

// Connector reads albums and images from the library directory.
type Connector struct {
	libraryDir string
}

var _ source.Connector = (*Connector)(nil)

// New returns a Connector rooted at libraryDir. The directory must exist.
func New(libraryDir string) (*Connector, error) {
	info, err := os.Stat(libraryDir)
	if err != nil {
		return nil, fmt.Errorf("photos library %s: %w", libraryDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("photos library %s is not a directory", libraryDir)
	}
	return &Connector{libraryDir: libraryDir}, nil
}

// Source returns the type this connector serves.
func (c *Connector) Source() source.Type {
	return source.ApplePhotos
}

// LibraryDir returns the library root, for the filesystem watcher.
func (c *Connector) LibraryDir() string {
	return c.libraryDir
}

// FetchAlbums lists the album subdirectories with their image counts.
func (c *Connector) FetchAlbums(ctx context.Context) ([]source.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.libraryDir)
	if err != nil {
		return nil, fmt.Errorf("reading photos library: %w", err)
	}

	var albums []source.Album
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ids, err := c.listImages(entry.Name())
		if err != nil {
			return nil, err
		}
		albums = append(albums, source.Album{
			ID:    entry.Name(),
			Name:  entry.Name(),
			Count: len(ids),
		})
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].Name < albums[j].Name })
	return albums, nil
}

// FetchAssetIDs returns the image files of one album, as "album/filename" IDs.
func (c *Connector) FetchAssetIDs(ctx context.Context, albumID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateComponent(albumID); err != nil {
		return nil, err
	}
	return c.listImages(albumID)
}

func (c *Connector) listImages(albumID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.libraryDir, albumID))
	if err != nil {
		return nil, fmt.Errorf("reading album %s: %w", albumID, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		ids = append(ids, albumID+"/"+entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// FetchImageBytes reads the image file for an asset ID.
func (c *Connector) FetchImageBytes(ctx context.Context, assetID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	albumID, name, ok := strings.Cut(assetID, "/")
	if !ok {
		return nil, fmt.Errorf("malformed asset ID %q", assetID)
	}
	if err := validateComponent(albumID); err != nil {
		return nil, err
	}
	if err := validateComponent(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(c.libraryDir, albumID, name))
	if err != nil {
		return nil, fmt.Errorf("reading asset %s: %w", assetID, err)
	}
	return data, nil
}

// validateComponent rejects path components that could escape the library
// root.
func validateComponent(s string) error {
	if s == "" || s == "." || s == ".." ||
		strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid path component %q", s)
	}
	return nil
}

// isImageFile reports whether the file name has a supported image extension.
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
