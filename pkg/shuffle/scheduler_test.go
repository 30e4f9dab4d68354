package shuffle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwall/driftwall/pkg/cache"
	"github.com/driftwall/driftwall/pkg/history"
	"github.com/driftwall/driftwall/pkg/pool"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/source"
)

type fixture struct {
	repo    *fakeRepo
	local   *fakeConnector
	cloud   *fakeConnector
	setter  *fakeSetter
	cache   *cache.Cache
	history *history.History
	sched   *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	local := &fakeConnector{src: source.ApplePhotos}
	cloud := &fakeConnector{src: source.LightroomCloud}
	set := &fakeSetter{}

	c, err := cache.New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	connectors := map[source.Type]source.Connector{
		source.ApplePhotos:    local,
		source.LightroomCloud: cloud,
	}
	h := history.New(4, 1)

	sched := New(Options{
		Pool:       pool.New(repo, connectors, c),
		History:    h,
		Cache:      c,
		Connectors: connectors,
		Setter:     set,
		Settings:   pool.Settings{Interval: time.Hour, Mode: setter.ModeFill, AllDesktops: true},
		WorkingDir: t.TempDir(),
	})
	return &fixture{repo: repo, local: local, cloud: cloud, setter: set, cache: c, history: h, sched: sched}
}

func TestCycleHappyPath(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")

	f.sched.ShuffleNow()

	assert.Equal(t, 1, f.setter.applyCount())
	state := f.sched.State()
	assert.Equal(t, "Apple Photos", state.CurrentSource)
	assert.Empty(t, state.Status)
	assert.Equal(t, uint64(1), state.Cycles)
	assert.False(t, state.LastShuffle.IsZero())

	// image landed in the cache
	key := pool.Entry{ID: "photo-1", Source: source.ApplePhotos}.CacheKey()
	_, err := f.cache.Retrieve(key)
	assert.NoError(t, err)
}

func TestCycleUsesCacheOnHit(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")

	key := pool.Entry{ID: "photo-1", Source: source.ApplePhotos}.CacheKey()
	_, err := f.cache.Store([]byte("cached"), key)
	require.NoError(t, err)

	f.sched.ShuffleNow()

	assert.Equal(t, 1, f.setter.applyCount())
	assert.Equal(t, 0, f.local.fetchCount(), "a cache hit must not touch the connector")
}

func TestCycleRepositoryFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failAll = true

	f.sched.ShuffleNow()

	assert.Equal(t, StatusErrorLoadingAlbums, f.sched.State().Status)
	assert.Equal(t, 0, f.setter.applyCount())
}

func TestCycleEmptyPoolClassification(t *testing.T) {
	f := newFixture(t)

	f.sched.ShuffleNow()
	assert.Equal(t, StatusNoAlbumsSelected, f.sched.State().Status)

	// selected album, but its source is disabled
	f.repo.addAlbum(source.LightroomCloud, "cloud", true)
	f.repo.disabled[source.LightroomCloud] = true
	f.sched.ShuffleNow()
	assert.Equal(t, StatusSourcesDisabled, f.sched.State().Status)

	// enabled again, but no synced assets and the connector has none either
	f.repo.disabled[source.LightroomCloud] = false
	f.sched.ShuffleNow()
	assert.Equal(t, StatusNoSyncedPhotos, f.sched.State().Status)
}

func TestEmptyPoolTriggersOneSync(t *testing.T) {
	f := newFixture(t)
	// album selected but never synced; connector knows its assets
	f.repo.addAlbum(source.ApplePhotos, "album", true)
	f.local.assetIDs = map[string][]string{"album": {"photo-1"}}

	f.sched.ShuffleNow()

	assert.Equal(t, 1, f.setter.applyCount(), "an empty pool must be synced once before giving up")
	assert.Empty(t, f.sched.State().Status)
}

func TestAuthFailureIsSticky(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.LightroomCloud, "cloud", true, "c1")
	f.cloud.fetchErr = &source.AuthError{Source: source.LightroomCloud, Err: errors.New("token revoked")}

	f.sched.ShuffleNow()
	want := authStatus(source.LightroomCloud)
	assert.Equal(t, want, f.sched.State().Status)
	assert.Equal(t, 0, f.setter.applyCount())

	// status persists across further cycles, no timeout clears it
	f.sched.ShuffleNow()
	assert.Equal(t, want, f.sched.State().Status)

	// a successful unrelated cycle must not clear it either
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")
	f.cloud.fetchErr = nil
	f.repo.disabled[source.LightroomCloud] = true
	f.sched.ShuffleNow()
	assert.Equal(t, want, f.sched.State().Status)

	// only the explicit reauth signal clears it
	f.sched.AuthStateChanged(source.LightroomCloud, true)
	assert.Empty(t, f.sched.State().Status)
}

func TestNetworkFailureFallsBackOffline(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.LightroomCloud, "cloud", true, "c1")
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")
	f.cloud.fetchErr = errors.New("connection refused")

	// park the local entry in the anti-repeat window so the first pick is
	// deterministically the failing cloud entry
	f.history.Add(pool.Entry{ID: "photo-1", Source: source.ApplePhotos, AlbumID: "album"})

	f.sched.ShuffleNow()

	assert.Equal(t, 1, f.setter.applyCount(), "the offline-capable candidate must be retried")
	state := f.sched.State()
	assert.Equal(t, "Apple Photos", state.CurrentSource)
	assert.Empty(t, state.Status)
}

func TestNetworkFailureWithoutOfflineCandidates(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.LightroomCloud, "cloud", true, "c1")
	f.cloud.fetchErr = errors.New("connection refused")

	f.sched.ShuffleNow()

	assert.Equal(t, StatusNetworkOffline, f.sched.State().Status)
	assert.Equal(t, 0, f.setter.applyCount())
}

func TestSetterWarningSurfacesAsStatus(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")
	f.setter.warning = "updated current desktop only"

	f.sched.ShuffleNow()

	state := f.sched.State()
	assert.Equal(t, "updated current desktop only", state.Status)
	assert.Equal(t, uint64(1), state.Cycles, "a warning must not fail the cycle")
}

func TestPrefetchWarmsCache(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "p1", "p2", "p3", "p4", "p5")

	f.sched.ShuffleNow()

	// one applied entry plus up to three prefetched, asynchronously
	require.Eventually(t, func() bool {
		count := 0
		for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
			key := pool.Entry{ID: id, Source: source.ApplePhotos}.CacheKey()
			if _, err := f.cache.Retrieve(key); err == nil {
				count++
			}
		}
		return count >= 4
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartIsIdempotentAndStopStops(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")

	f.sched.Start()
	f.sched.Start() // no-op
	require.Eventually(t, func() bool {
		state := f.sched.State()
		return state.Cycles >= 1 && !state.NextShuffle.IsZero()
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, f.sched.State().Running)

	f.sched.Stop()
	f.sched.Stop() // no-op
	state := f.sched.State()
	assert.False(t, state.Running)
	assert.True(t, state.NextShuffle.IsZero())
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")

	states, cancel := f.sched.Subscribe()
	defer cancel()

	f.sched.ShuffleNow()

	select {
	case state := <-states:
		assert.Equal(t, "Apple Photos", state.CurrentSource)
	case <-time.After(time.Second):
		t.Fatal("expected a state snapshot after a cycle")
	}
}

func TestHandleWakeFiresWhenOverdue(t *testing.T) {
	f := newFixture(t)
	f.repo.addAlbum(source.ApplePhotos, "album", true, "photo-1")

	f.sched.Start()
	require.Eventually(t, func() bool {
		state := f.sched.State()
		return state.Cycles >= 1 && !state.NextShuffle.IsZero()
	}, 5*time.Second, 10*time.Millisecond)
	defer f.sched.Stop()

	// simulate waking up long after the scheduled tick
	f.sched.mu.Lock()
	f.sched.state.NextShuffle = time.Now().Add(-time.Minute)
	f.sched.mu.Unlock()

	before := f.sched.State().Cycles
	f.sched.HandleWake()
	assert.Greater(t, f.sched.State().Cycles, before)
	assert.True(t, f.sched.State().NextShuffle.After(time.Now()), "wake must reschedule the next tick")
}
