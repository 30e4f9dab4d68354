// Package cache implements the content-addressed wallpaper cache: files on
// disk named by a hash of the asset ID, bounded by a byte budget with
// oldest-write-first eviction. The filesystem is the source of truth; there
// is no in-memory index.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/driftwall/driftwall/util/log"
)

// ErrNotFound is returned by Retrieve when no entry exists for the key.
var ErrNotFound = errors.New("cache: entry not found")

const (
	keyExt  = ".img"
	tmpExt  = ".tmp"
	dirPerm = 0755
)

// Key derives the cache key for an asset ID: a fixed-length hex token plus
// extension. Hashing makes any ID content (unicode, path separators,
// punctuation) safe to use as a file name.
func Key(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:]) + keyExt
}

// Cache is a byte-budgeted disk cache. All mutation is serialized behind a
// single mutex; concurrent callers queue rather than race (the prefetcher
// and the shuffle cycle share one instance).
type Cache struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
}

// New creates the cache directory if needed and returns a Cache bounded by
// maxBytes.
func New(dir string, maxBytes int64) (*Cache, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &Cache{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Store writes data atomically under key and then evicts if the budget is
// exceeded. It returns the final path of the entry.
func (c *Cache) Store(data []byte, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir, key)
	tmp := path + tmpExt
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("committing cache entry: %w", err)
	}

	if err := c.evictLocked(); err != nil {
		log.Printf("cache eviction after store failed: %v", err)
	}
	return path, nil
}

// Retrieve returns the path for key, or ErrNotFound. It deliberately does
// not touch the entry's modification time: eviction order is write time,
// not access time.
func (c *Cache) Retrieve(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir, key)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// Remove deletes a single entry. A missing entry is not an error.
func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(filepath.Join(c.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveStaleEntries deletes every entry whose key is not in validKeys.
// Used as garbage collection after the album pool changes.
func (c *Cache) RemoveStaleEntries(validKeys map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != keyExt {
			continue
		}
		if validKeys[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			log.Printf("cache: failed to remove stale entry %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Debugf("cache: removed %d stale entries", removed)
	}
	return nil
}

// EvictIfNeeded enforces the byte budget immediately.
func (c *Cache) EvictIfNeeded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked()
}

type entryInfo struct {
	path    string
	size    int64
	modTime int64
}

// evictLocked sums all entry sizes and deletes files in ascending
// last-modified order until the total fits the budget.
// CALLER MUST HOLD c.mu.
func (c *Cache) evictLocked() error {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	var files []entryInfo
	var total int64
	for _, entry := range dirEntries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != keyExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, entryInfo{
			path:    filepath.Join(c.dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime().UnixNano(),
		})
		total += info.Size()
	}

	if total <= c.maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime < files[j].modTime
	})

	for _, f := range files {
		if total <= c.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			log.Printf("cache: failed to evict %s: %v", f.path, err)
			continue
		}
		total -= f.size
	}
	return nil
}
