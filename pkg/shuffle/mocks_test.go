package shuffle

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftwall/driftwall/pkg/pool"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/source"
)

// fakeRepo is an in-memory pool.AlbumRepository.
type fakeRepo struct {
	mu       sync.Mutex
	albums   map[string]*pool.AlbumRecord
	assets   map[string][]string
	disabled map[source.Type]bool
	settings pool.Settings
	failAll  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		albums:   make(map[string]*pool.AlbumRecord),
		assets:   make(map[string][]string),
		disabled: make(map[source.Type]bool),
	}
}

func repoKey(src source.Type, albumID string) string {
	return fmt.Sprintf("%d|%s", int(src), albumID)
}

func (r *fakeRepo) addAlbum(src source.Type, id string, selected bool, assetIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.albums[repoKey(src, id)] = &pool.AlbumRecord{ID: id, Source: src, Name: id, Selected: selected, AssetCount: len(assetIDs)}
	r.assets[repoKey(src, id)] = assetIDs
}

func (r *fakeRepo) SelectedAlbums() ([]pool.AlbumRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, fmt.Errorf("storage broken")
	}
	var out []pool.AlbumRecord
	for _, a := range r.albums {
		if a.Selected {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) Album(src source.Type, albumID string) (*pool.AlbumRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.albums[repoKey(src, albumID)]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeRepo) AlbumsBySource(src source.Type) ([]pool.AlbumRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pool.AlbumRecord
	for _, a := range r.albums {
		if a.Source == src {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpsertAlbums(src source.Type, albums []source.Album) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range albums {
		key := repoKey(src, a.ID)
		if existing, ok := r.albums[key]; ok {
			existing.Name = a.Name
			continue
		}
		r.albums[key] = &pool.AlbumRecord{ID: a.ID, Source: src, Name: a.Name, AssetCount: a.Count}
	}
	return nil
}

func (r *fakeRepo) SetAlbumSelected(src source.Type, albumID string, selected bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.albums[repoKey(src, albumID)]
	if !ok || a.Selected == selected {
		return false, nil
	}
	a.Selected = selected
	return true, nil
}

func (r *fakeRepo) SetAssetCount(src source.Type, albumID string, count int) error {
	return nil
}

func (r *fakeRepo) AssetIDs(src source.Type, albumID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, fmt.Errorf("storage broken")
	}
	return r.assets[repoKey(src, albumID)], nil
}

func (r *fakeRepo) InsertAssets(src source.Type, albumID string, assetIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[repoKey(src, albumID)] = assetIDs
	return nil
}

func (r *fakeRepo) DeleteAssets(src source.Type, albumID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assets, repoKey(src, albumID))
	return nil
}

func (r *fakeRepo) SourceEnabled(src source.Type) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.disabled[src], nil
}

func (r *fakeRepo) SetSourceEnabled(src source.Type, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[src] = !enabled
	return nil
}

func (r *fakeRepo) Settings() (pool.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings, nil
}

func (r *fakeRepo) SaveSettings(s pool.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	return nil
}

// fakeConnector serves canned bytes or a configured error.
type fakeConnector struct {
	mu       sync.Mutex
	src      source.Type
	assetIDs map[string][]string
	fetchErr error
	fetched  []string
}

func (f *fakeConnector) Source() source.Type { return f.src }

func (f *fakeConnector) FetchAlbums(context.Context) ([]source.Album, error) {
	return nil, nil
}

func (f *fakeConnector) FetchAssetIDs(_ context.Context, albumID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assetIDs[albumID], nil
}

func (f *fakeConnector) FetchImageBytes(_ context.Context, assetID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.fetched = append(f.fetched, assetID)
	return []byte("image:" + assetID), nil
}

func (f *fakeConnector) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// fakeSetter records applications.
type fakeSetter struct {
	mu      sync.Mutex
	applied []string
	warning string
	err     error
}

func (f *fakeSetter) Apply(path string, mode setter.ScalingMode, allDesktops bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.applied = append(f.applied, path)
	return f.warning, nil
}

func (f *fakeSetter) DesktopDimensions() (int, int, error) {
	return 1920, 1080, nil
}

func (f *fakeSetter) applyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}
