// Package pool aggregates the selectable asset set across all enabled
// sources and selected albums. The pool is rebuilt from local storage on
// demand; syncing refreshes storage from the connectors without ever blocking
// selection on the network.
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/driftwall/driftwall/pkg/cache"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/source"
	"github.com/driftwall/driftwall/util/log"
)

// Entry is one selectable asset. ID is unique within its source; the
// (Source, ID) pair is globally unique.
type Entry struct {
	ID      string
	Source  source.Type
	AlbumID string
}

// CacheKey returns the cache key for this entry's image bytes. Keys are
// derived from the source-qualified ID so identical IDs from different
// sources never collide.
func (e Entry) CacheKey() string {
	return cache.Key(fmt.Sprintf("%d/%s", int(e.Source), e.ID))
}

// AlbumRecord is a locally persisted album with its curation state.
type AlbumRecord struct {
	ID         string
	Source     source.Type
	Name       string
	AssetCount int
	Selected   bool
}

// Settings is the persisted scheduler configuration.
type Settings struct {
	Interval    time.Duration
	Mode        setter.ScalingMode
	AllDesktops bool
}

// AlbumRepository is the persistence contract for albums, assets, source
// toggles and settings. pkg/store provides the sqlite implementation.
type AlbumRepository interface {
	// SelectedAlbums returns every selected album across all sources.
	SelectedAlbums() ([]AlbumRecord, error)
	// Album returns one album by source and ID.
	Album(src source.Type, albumID string) (*AlbumRecord, error)
	// AlbumsBySource returns every known album for a source.
	AlbumsBySource(src source.Type) ([]AlbumRecord, error)
	// UpsertAlbums inserts or updates album rows, preserving the local
	// Selected flag of existing rows.
	UpsertAlbums(src source.Type, albums []source.Album) error
	// SetAlbumSelected flips the selection flag. It reports whether the
	// stored value actually changed.
	SetAlbumSelected(src source.Type, albumID string, selected bool) (bool, error)
	// SetAssetCount updates the cached album size.
	SetAssetCount(src source.Type, albumID string, count int) error
	// AssetIDs returns the stored asset IDs of an album.
	AssetIDs(src source.Type, albumID string) ([]string, error)
	// InsertAssets replaces the stored asset list of an album.
	InsertAssets(src source.Type, albumID string, assetIDs []string) error
	// DeleteAssets removes all stored assets of an album.
	DeleteAssets(src source.Type, albumID string) error
	// SourceEnabled reports the source toggle. Unknown sources are enabled.
	SourceEnabled(src source.Type) (bool, error)
	// SetSourceEnabled persists the source toggle.
	SetSourceEnabled(src source.Type, enabled bool) error
	// Settings returns the persisted scheduler settings.
	Settings() (Settings, error)
	// SaveSettings persists scheduler settings.
	SaveSettings(Settings) error
}

// AssetPool builds the selectable entry set and keeps local album/asset
// records in sync with the source connectors.
type AssetPool struct {
	repo       AlbumRepository
	connectors map[source.Type]source.Connector
	cache      *cache.Cache
}

// New returns an AssetPool over the given repository, connectors and cache.
func New(repo AlbumRepository, connectors map[source.Type]source.Connector, c *cache.Cache) *AssetPool {
	return &AssetPool{repo: repo, connectors: connectors, cache: c}
}

// BuildPool assembles the current selectable entries from local storage:
// every asset of every selected album whose source is enabled. It touches no
// connector, so it works fully offline; only storage failures are errors.
// Duplicate (source, asset) pairs appearing in several albums collapse to
// one entry.
func (p *AssetPool) BuildPool() ([]Entry, error) {
	albums, err := p.repo.SelectedAlbums()
	if err != nil {
		return nil, fmt.Errorf("loading selected albums: %w", err)
	}

	enabled := make(map[source.Type]bool, len(source.Types()))
	for _, src := range source.Types() {
		on, err := p.repo.SourceEnabled(src)
		if err != nil {
			return nil, fmt.Errorf("loading source state: %w", err)
		}
		enabled[src] = on
	}

	seen := make(map[source.Type]map[string]bool)
	var entries []Entry
	for _, album := range albums {
		if !enabled[album.Source] {
			continue
		}
		ids, err := p.repo.AssetIDs(album.Source, album.ID)
		if err != nil {
			return nil, fmt.Errorf("loading assets of album %s: %w", album.ID, err)
		}
		if seen[album.Source] == nil {
			seen[album.Source] = make(map[string]bool)
		}
		for _, id := range ids {
			if seen[album.Source][id] {
				continue
			}
			seen[album.Source][id] = true
			entries = append(entries, Entry{ID: id, Source: album.Source, AlbumID: album.ID})
		}
	}
	return entries, nil
}

// EmptyReason explains an empty pool for status reporting.
type EmptyReason int

const (
	// ReasonNoAlbumsSelected means the user has not selected any albums.
	ReasonNoAlbumsSelected EmptyReason = iota
	// ReasonSourcesDisabled means albums are selected but every owning
	// source is disabled.
	ReasonSourcesDisabled
	// ReasonNoSyncedAssets means selected, enabled albums exist but no
	// assets have been synced yet.
	ReasonNoSyncedAssets
)

// ClassifyEmpty explains why BuildPool returned nothing.
func (p *AssetPool) ClassifyEmpty() (EmptyReason, error) {
	albums, err := p.repo.SelectedAlbums()
	if err != nil {
		return ReasonNoAlbumsSelected, fmt.Errorf("loading selected albums: %w", err)
	}
	if len(albums) == 0 {
		return ReasonNoAlbumsSelected, nil
	}
	for _, album := range albums {
		on, err := p.repo.SourceEnabled(album.Source)
		if err != nil {
			return ReasonNoAlbumsSelected, fmt.Errorf("loading source state: %w", err)
		}
		if on {
			return ReasonNoSyncedAssets, nil
		}
	}
	return ReasonSourcesDisabled, nil
}

// SyncAssets refreshes one album's asset list from its connector. A
// connector failure leaves local data untouched and comes back as a warning;
// only storage failures are errors.
func (p *AssetPool) SyncAssets(ctx context.Context, src source.Type, albumID string) (string, error) {
	conn, ok := p.connectors[src]
	if !ok {
		return fmt.Sprintf("%s: no connector configured", src), nil
	}

	ids, err := conn.FetchAssetIDs(ctx, albumID)
	if err != nil {
		log.Printf("sync of album %s (%s) failed: %v", albumID, src, err)
		return fmt.Sprintf("%s: album %s not refreshed: %v", src, albumID, err), nil
	}

	if err := p.repo.InsertAssets(src, albumID, ids); err != nil {
		return "", fmt.Errorf("storing assets of album %s: %w", albumID, err)
	}
	if err := p.repo.SetAssetCount(src, albumID, len(ids)); err != nil {
		return "", fmt.Errorf("updating asset count of album %s: %w", albumID, err)
	}
	log.Debugf("synced album %s (%s): %d assets", albumID, src, len(ids))
	return "", nil
}

// SyncSelectedAlbums refreshes every selected album of every enabled source.
// It returns the per-album warnings; a storage failure aborts.
func (p *AssetPool) SyncSelectedAlbums(ctx context.Context) ([]string, error) {
	albums, err := p.repo.SelectedAlbums()
	if err != nil {
		return nil, fmt.Errorf("loading selected albums: %w", err)
	}

	var warnings []string
	for _, album := range albums {
		on, err := p.repo.SourceEnabled(album.Source)
		if err != nil {
			return warnings, fmt.Errorf("loading source state: %w", err)
		}
		if !on {
			continue
		}
		warning, err := p.SyncAssets(ctx, album.Source, album.ID)
		if err != nil {
			return warnings, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}
	return warnings, nil
}

// RefreshAlbums pulls the album list of a source and upserts it locally,
// preserving existing selection flags.
func (p *AssetPool) RefreshAlbums(ctx context.Context, src source.Type) error {
	conn, ok := p.connectors[src]
	if !ok {
		return fmt.Errorf("%s: no connector configured", src)
	}
	albums, err := conn.FetchAlbums(ctx)
	if err != nil {
		return fmt.Errorf("fetching albums from %s: %w", src, err)
	}
	if err := p.repo.UpsertAlbums(src, albums); err != nil {
		return fmt.Errorf("storing albums of %s: %w", src, err)
	}
	return nil
}

// SetAlbumSelection selects or deselects one album and reports whether the
// stored state changed. Selecting syncs the album's assets right away;
// deselecting removes the album's stored assets and their cache entries. An
// asset survives if another selected album still carries it. The toggle is
// idempotent.
func (p *AssetPool) SetAlbumSelection(ctx context.Context, src source.Type, albumID string, selected bool) (bool, error) {
	changed, err := p.repo.SetAlbumSelected(src, albumID, selected)
	if err != nil {
		return false, fmt.Errorf("updating selection of album %s: %w", albumID, err)
	}
	if !changed {
		return false, nil
	}

	if selected {
		warning, err := p.SyncAssets(ctx, src, albumID)
		if err != nil {
			return true, err
		}
		if warning != "" {
			log.Printf("%s", warning)
		}
		return true, nil
	}
	return true, p.ClearAssetsIfAlbumDeselected(src, albumID)
}

// SetAlbumsSelection applies one selection flag to every known album of a
// source, returning the IDs whose state actually changed.
func (p *AssetPool) SetAlbumsSelection(ctx context.Context, src source.Type, selected bool) ([]string, error) {
	albums, err := p.repo.AlbumsBySource(src)
	if err != nil {
		return nil, fmt.Errorf("loading albums of %s: %w", src, err)
	}
	var changedIDs []string
	for _, album := range albums {
		changed, err := p.SetAlbumSelection(ctx, src, album.ID, selected)
		if err != nil {
			return changedIDs, err
		}
		if changed {
			changedIDs = append(changedIDs, album.ID)
		}
	}
	return changedIDs, nil
}

// ClearAssetsIfAlbumDeselected drops the stored assets of a deselected album
// and evicts the cache entries that no remaining selected album references.
func (p *AssetPool) ClearAssetsIfAlbumDeselected(src source.Type, albumID string) error {
	ids, err := p.repo.AssetIDs(src, albumID)
	if err != nil {
		return fmt.Errorf("loading assets of album %s: %w", albumID, err)
	}
	if err := p.repo.DeleteAssets(src, albumID); err != nil {
		return fmt.Errorf("deleting assets of album %s: %w", albumID, err)
	}

	remaining, err := p.BuildPool()
	if err != nil {
		return err
	}
	live := make(map[string]bool, len(remaining))
	for _, e := range remaining {
		if e.Source == src {
			live[e.ID] = true
		}
	}
	for _, id := range ids {
		if live[id] {
			continue
		}
		key := Entry{ID: id, Source: src}.CacheKey()
		if err := p.cache.Remove(key); err != nil {
			log.Printf("removing cached image for %s: %v", id, err)
		}
	}
	return nil
}

// ValidCacheKeys returns the set of cache keys the current pool references.
// The scheduler hands it to the cache's stale-entry sweep.
func (p *AssetPool) ValidCacheKeys() (map[string]bool, error) {
	entries, err := p.BuildPool()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(entries))
	for _, e := range entries {
		keys[e.CacheKey()] = true
	}
	return keys, nil
}
