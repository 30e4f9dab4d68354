package pool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwall/driftwall/pkg/cache"
	"github.com/driftwall/driftwall/pkg/source"
)

// fakeRepo is an in-memory AlbumRepository.
type fakeRepo struct {
	albums   map[string]*AlbumRecord // key: source|albumID
	assets   map[string][]string
	disabled map[source.Type]bool
	settings Settings
	failAll  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		albums:   make(map[string]*AlbumRecord),
		assets:   make(map[string][]string),
		disabled: make(map[source.Type]bool),
	}
}

func repoKey(src source.Type, albumID string) string {
	return fmt.Sprintf("%d|%s", int(src), albumID)
}

func (r *fakeRepo) addAlbum(src source.Type, id string, selected bool, assetIDs ...string) {
	r.albums[repoKey(src, id)] = &AlbumRecord{ID: id, Source: src, Name: id, Selected: selected, AssetCount: len(assetIDs)}
	r.assets[repoKey(src, id)] = assetIDs
}

var errStorage = errors.New("storage broken")

func (r *fakeRepo) SelectedAlbums() ([]AlbumRecord, error) {
	if r.failAll {
		return nil, errStorage
	}
	var out []AlbumRecord
	for _, a := range r.albums {
		if a.Selected {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) Album(src source.Type, albumID string) (*AlbumRecord, error) {
	a, ok := r.albums[repoKey(src, albumID)]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) AlbumsBySource(src source.Type) ([]AlbumRecord, error) {
	var out []AlbumRecord
	for _, a := range r.albums {
		if a.Source == src {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpsertAlbums(src source.Type, albums []source.Album) error {
	for _, a := range albums {
		key := repoKey(src, a.ID)
		if existing, ok := r.albums[key]; ok {
			existing.Name = a.Name
			existing.AssetCount = a.Count
			continue
		}
		r.albums[key] = &AlbumRecord{ID: a.ID, Source: src, Name: a.Name, AssetCount: a.Count}
	}
	return nil
}

func (r *fakeRepo) SetAlbumSelected(src source.Type, albumID string, selected bool) (bool, error) {
	a, ok := r.albums[repoKey(src, albumID)]
	if !ok || a.Selected == selected {
		return false, nil
	}
	a.Selected = selected
	return true, nil
}

func (r *fakeRepo) SetAssetCount(src source.Type, albumID string, count int) error {
	if a, ok := r.albums[repoKey(src, albumID)]; ok {
		a.AssetCount = count
	}
	return nil
}

func (r *fakeRepo) AssetIDs(src source.Type, albumID string) ([]string, error) {
	if r.failAll {
		return nil, errStorage
	}
	return r.assets[repoKey(src, albumID)], nil
}

func (r *fakeRepo) InsertAssets(src source.Type, albumID string, assetIDs []string) error {
	r.assets[repoKey(src, albumID)] = assetIDs
	return nil
}

func (r *fakeRepo) DeleteAssets(src source.Type, albumID string) error {
	delete(r.assets, repoKey(src, albumID))
	return nil
}

func (r *fakeRepo) SourceEnabled(src source.Type) (bool, error) {
	return !r.disabled[src], nil
}

func (r *fakeRepo) SetSourceEnabled(src source.Type, enabled bool) error {
	r.disabled[src] = !enabled
	return nil
}

func (r *fakeRepo) Settings() (Settings, error)   { return r.settings, nil }
func (r *fakeRepo) SaveSettings(s Settings) error { r.settings = s; return nil }

// fakeConnector serves canned asset lists and fails on demand.
type fakeConnector struct {
	src      source.Type
	assetIDs map[string][]string
	fetchErr error
}

func (f *fakeConnector) Source() source.Type { return f.src }

func (f *fakeConnector) FetchAlbums(context.Context) ([]source.Album, error) {
	var out []source.Album
	for id, ids := range f.assetIDs {
		out = append(out, source.Album{ID: id, Name: id, Count: len(ids)})
	}
	return out, nil
}

func (f *fakeConnector) FetchAssetIDs(_ context.Context, albumID string) ([]string, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.assetIDs[albumID], nil
}

func (f *fakeConnector) FetchImageBytes(_ context.Context, assetID string) ([]byte, error) {
	return []byte("image:" + assetID), nil
}

func newTestPool(t *testing.T, repo *fakeRepo, conns map[source.Type]source.Connector) (*AssetPool, *cache.Cache) {
	t.Helper()
	c, err := cache.New(t.TempDir(), 1<<20)
	require.NoError(t, err)
	return New(repo, conns, c), c
}

func TestBuildPoolFiltersDisabledAndUnselected(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.ApplePhotos, "local", true, "l1", "l2")
	repo.addAlbum(source.ApplePhotos, "unselected", false, "u1")
	repo.addAlbum(source.LightroomCloud, "cloud", true, "c1")
	repo.disabled[source.LightroomCloud] = true

	p, _ := newTestPool(t, repo, nil)
	entries, err := p.BuildPool()
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, e := range entries {
		ids[e.ID] = true
	}
	assert.Equal(t, map[string]bool{"l1": true, "l2": true}, ids,
		"disabled-source and unselected-album assets must be excluded")
}

func TestBuildPoolDeduplicatesAcrossAlbums(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.ApplePhotos, "a", true, "shared", "only-a")
	repo.addAlbum(source.ApplePhotos, "b", true, "shared", "only-b")

	p, _ := newTestPool(t, repo, nil)
	entries, err := p.BuildPool()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestBuildPoolStorageFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failAll = true

	p, _ := newTestPool(t, repo, nil)
	_, err := p.BuildPool()
	assert.ErrorIs(t, err, errStorage)
}

func TestSyncAssetsConnectorFailureIsWarning(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.LightroomCloud, "cloud", true, "stale1", "stale2")
	conn := &fakeConnector{src: source.LightroomCloud, fetchErr: errors.New("network down")}

	p, _ := newTestPool(t, repo, map[source.Type]source.Connector{source.LightroomCloud: conn})
	warning, err := p.SyncAssets(context.Background(), source.LightroomCloud, "cloud")
	require.NoError(t, err, "a connector failure is not an error")
	assert.NotEmpty(t, warning)

	// stale-but-available: local data untouched
	ids, err := repo.AssetIDs(source.LightroomCloud, "cloud")
	require.NoError(t, err)
	assert.Equal(t, []string{"stale1", "stale2"}, ids)
}

func TestSyncAssetsReplacesLocalRecords(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.LightroomCloud, "cloud", true, "gone", "kept")
	conn := &fakeConnector{src: source.LightroomCloud, assetIDs: map[string][]string{
		"cloud": {"kept", "new"},
	}}

	p, _ := newTestPool(t, repo, map[source.Type]source.Connector{source.LightroomCloud: conn})
	warning, err := p.SyncAssets(context.Background(), source.LightroomCloud, "cloud")
	require.NoError(t, err)
	assert.Empty(t, warning)

	ids, err := repo.AssetIDs(source.LightroomCloud, "cloud")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kept", "new"}, ids)
	assert.Equal(t, 2, repo.albums[repoKey(source.LightroomCloud, "cloud")].AssetCount)
}

func TestDeselectClearsAssetsAndCache(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.ApplePhotos, "solo", true, "a1", "shared")
	repo.addAlbum(source.ApplePhotos, "other", true, "shared")

	p, c := newTestPool(t, repo, map[source.Type]source.Connector{
		source.ApplePhotos: &fakeConnector{src: source.ApplePhotos},
	})

	soloKey := Entry{ID: "a1", Source: source.ApplePhotos}.CacheKey()
	sharedKey := Entry{ID: "shared", Source: source.ApplePhotos}.CacheKey()
	_, err := c.Store([]byte("a1"), soloKey)
	require.NoError(t, err)
	_, err = c.Store([]byte("shared"), sharedKey)
	require.NoError(t, err)

	changed, err := p.SetAlbumSelection(context.Background(), source.ApplePhotos, "solo", false)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = c.Retrieve(soloKey)
	assert.ErrorIs(t, err, cache.ErrNotFound, "deselected album's exclusive asset must leave the cache")
	_, err = c.Retrieve(sharedKey)
	assert.NoError(t, err, "asset still referenced by another selected album must survive")

	ids, err := repo.AssetIDs(source.ApplePhotos, "solo")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSetAlbumSelectionIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.ApplePhotos, "album", true, "a1")

	p, _ := newTestPool(t, repo, map[source.Type]source.Connector{
		source.ApplePhotos: &fakeConnector{src: source.ApplePhotos, assetIDs: map[string][]string{"album": {"a1"}}},
	})

	changed, err := p.SetAlbumSelection(context.Background(), source.ApplePhotos, "album", true)
	require.NoError(t, err)
	assert.False(t, changed, "selecting an already-selected album changes nothing")
}

func TestSelectingAlbumSyncsFromConnector(t *testing.T) {
	repo := newFakeRepo()
	repo.addAlbum(source.ApplePhotos, "album", false)
	conn := &fakeConnector{src: source.ApplePhotos, assetIDs: map[string][]string{
		"album": {"fresh1", "fresh2"},
	}}

	p, _ := newTestPool(t, repo, map[source.Type]source.Connector{source.ApplePhotos: conn})
	changed, err := p.SetAlbumSelection(context.Background(), source.ApplePhotos, "album", true)
	require.NoError(t, err)
	assert.True(t, changed)

	entries, err := p.BuildPool()
	require.NoError(t, err)
	assert.Len(t, entries, 2, "selection must repopulate assets from the connector")
}

func TestClassifyEmpty(t *testing.T) {
	repo := newFakeRepo()
	p, _ := newTestPool(t, repo, nil)

	reason, err := p.ClassifyEmpty()
	require.NoError(t, err)
	assert.Equal(t, ReasonNoAlbumsSelected, reason)

	repo.addAlbum(source.LightroomCloud, "cloud", true)
	repo.disabled[source.LightroomCloud] = true
	reason, err = p.ClassifyEmpty()
	require.NoError(t, err)
	assert.Equal(t, ReasonSourcesDisabled, reason)

	repo.disabled[source.LightroomCloud] = false
	reason, err = p.ClassifyEmpty()
	require.NoError(t, err)
	assert.Equal(t, ReasonNoSyncedAssets, reason)
}

func TestCacheKeySourceQualified(t *testing.T) {
	local := Entry{ID: "same", Source: source.ApplePhotos}
	cloud := Entry{ID: "same", Source: source.LightroomCloud}
	assert.NotEqual(t, local.CacheKey(), cloud.CacheKey())
}
