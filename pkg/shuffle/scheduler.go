// Package shuffle is the orchestrator: a timer-driven scheduler that builds
// the asset pool, picks an anti-repeat candidate, resolves its image through
// the cache, applies it as the desktop background and prefetches upcoming
// candidates. Failures degrade to status text; nothing here terminates the
// process.
package shuffle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driftwall/driftwall/config"
	"github.com/driftwall/driftwall/pkg/cache"
	"github.com/driftwall/driftwall/pkg/compositor"
	"github.com/driftwall/driftwall/pkg/history"
	"github.com/driftwall/driftwall/pkg/pool"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/source"
	"github.com/driftwall/driftwall/util"
	"github.com/driftwall/driftwall/util/log"
)

// Options carries the explicitly constructed collaborators. There are no
// ambient singletons; tests substitute fakes freely.
type Options struct {
	Pool       *pool.AssetPool
	History    *history.History
	Cache      *cache.Cache
	Connectors map[source.Type]source.Connector
	Compositor *compositor.Compositor
	Setter     setter.Setter
	Settings   pool.Settings
	// WorkingDir receives the composited output image.
	WorkingDir string
	// LibraryDir, when set, is watched for local library changes.
	LibraryDir string
	// PollInterval > 0 enables periodic remote re-sync and cache GC.
	PollInterval time.Duration
	// PrefetchCount bounds the per-cycle background prefetch.
	PrefetchCount int
	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// Scheduler owns the running/stopped state machine. One shuffle cycle runs
// at a time: manual triggers and timer ticks queue behind cycleMu rather
// than racing.
type Scheduler struct {
	pool          *pool.AssetPool
	history       *history.History
	cache         *cache.Cache
	connectors    map[source.Type]source.Connector
	comp          *compositor.Compositor
	setter        setter.Setter
	settings      pool.Settings
	workingDir    string
	libraryDir    string
	pollInterval  time.Duration
	prefetchCount int
	now           func() time.Time

	running *util.SafeFlag
	cycles  *util.SafeCounter
	cycleMu sync.Mutex

	mu           sync.Mutex
	timer        *time.Timer
	stopCh       chan struct{}
	watcher      *libraryWatcher
	subs         map[int]chan State
	nextSub      int
	authRequired map[source.Type]bool
	state        State
}

// New builds a Scheduler from explicitly constructed dependencies.
func New(opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Settings.Interval <= 0 {
		opts.Settings.Interval = config.DefaultShuffleInterval
	}
	if opts.PrefetchCount <= 0 {
		opts.PrefetchCount = config.DefaultPrefetchCount
	}
	return &Scheduler{
		pool:          opts.Pool,
		history:       opts.History,
		cache:         opts.Cache,
		connectors:    opts.Connectors,
		comp:          opts.Compositor,
		setter:        opts.Setter,
		settings:      opts.Settings,
		workingDir:    opts.WorkingDir,
		libraryDir:    opts.LibraryDir,
		pollInterval:  opts.PollInterval,
		prefetchCount: opts.PrefetchCount,
		now:           opts.Now,
		running:       util.NewSafeBool(),
		cycles:        util.NewSafeInt(),
		subs:          make(map[int]chan State),
		authRequired:  make(map[source.Type]bool),
	}
}

// Start transitions Stopped→Running: first cycle, library watching and
// optional remote polling. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running.Value() {
		s.mu.Unlock()
		return
	}
	s.running.Set(true)
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.state.Running = true
	s.notifyLocked()
	s.mu.Unlock()

	if s.libraryDir != "" {
		w, err := watchLibrary(s.libraryDir, 2*time.Second, s.onLibraryChange)
		if err != nil {
			log.Printf("library watcher unavailable: %v", err)
		} else {
			s.mu.Lock()
			s.watcher = w
			s.mu.Unlock()
		}
	}
	if s.pollInterval > 0 {
		go s.pollLoop(stopCh)
	}

	go s.ShuffleNow()
	log.Printf("scheduler started, interval %s", s.settings.Interval)
}

// Stop cancels the pending tick and the observers. An in-flight cycle is
// never interrupted; it finishes naturally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Value() {
		return
	}
	s.running.Set(false)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	s.state.Running = false
	s.state.NextShuffle = time.Time{}
	s.notifyLocked()
	log.Printf("scheduler stopped")
}

// ShuffleNow runs one cycle immediately, mutually exclusive with timer
// ticks: a second trigger while a cycle is in flight waits for completion.
// The next tick is rescheduled afterwards if the scheduler is running.
func (s *Scheduler) ShuffleNow() {
	s.cycleMu.Lock()
	s.runCycle(context.Background())
	s.cycleMu.Unlock()
	s.reschedule()
}

// HandleWake reacts to the host waking from sleep: an already-passed
// NextShuffle fires immediately, otherwise the timer restarts from now.
func (s *Scheduler) HandleWake() {
	s.mu.Lock()
	next := s.state.NextShuffle
	running := s.running.Value()
	s.mu.Unlock()
	if !running {
		return
	}
	if !next.IsZero() && s.now().After(next) {
		s.ShuffleNow()
		return
	}
	s.reschedule()
}

// AuthStateChanged is the external reauth signal. A signed-in source drops
// out of the auth-required set; the sign-in status clears only when no
// source is left waiting. This is the only path that clears an auth status.
func (s *Scheduler) AuthStateChanged(src source.Type, signedIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !signedIn {
		s.authRequired[src] = true
		s.state.Status = authStatus(src)
		s.notifyLocked()
		return
	}
	delete(s.authRequired, src)
	if len(s.authRequired) == 0 {
		if s.state.Status == authStatus(src) {
			s.state.Status = ""
		}
	} else {
		for pending := range s.authRequired {
			s.state.Status = authStatus(pending)
			break
		}
	}
	s.notifyLocked()
}

// Subscribe returns a channel of state snapshots and a cancel func. Delivery
// is non-blocking: a slow subscriber misses intermediate snapshots but
// always gets a later one.
func (s *Scheduler) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 8)
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// State returns the current snapshot.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() State {
	snap := s.state
	snap.Running = s.running.Value()
	snap.Cycles = uint64(s.cycles.Value())
	return snap
}

// notifyLocked fans the current snapshot out to all subscribers.
// CALLER MUST HOLD s.mu.
func (s *Scheduler) notifyLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Scheduler) setStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = status
	s.notifyLocked()
}

// reschedule arms the next tick when running.
func (s *Scheduler) reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Value() {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state.NextShuffle = s.now().Add(s.settings.Interval)
	s.timer = time.AfterFunc(s.settings.Interval, s.ShuffleNow)
	s.notifyLocked()
}

// onLibraryChange refreshes local albums after the watcher reports a change.
func (s *Scheduler) onLibraryChange() {
	ctx := context.Background()
	if err := s.pool.RefreshAlbums(ctx, source.ApplePhotos); err != nil {
		log.Printf("library change: refreshing albums: %v", err)
	}
	warnings, err := s.pool.SyncSelectedAlbums(ctx)
	if err != nil {
		log.Printf("library change: syncing albums: %v", err)
		return
	}
	for _, w := range warnings {
		log.Printf("library change: %s", w)
	}
}

// pollLoop periodically re-syncs remote albums and sweeps cache entries the
// pool no longer references.
func (s *Scheduler) pollLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			warnings, err := s.pool.SyncSelectedAlbums(context.Background())
			if err != nil {
				log.Printf("poll: syncing albums: %v", err)
				continue
			}
			for _, w := range warnings {
				log.Printf("poll: %s", w)
			}
			valid, err := s.pool.ValidCacheKeys()
			if err != nil {
				log.Printf("poll: listing valid cache keys: %v", err)
				continue
			}
			if err := s.cache.RemoveStaleEntries(valid); err != nil {
				log.Printf("poll: cache sweep: %v", err)
			}
		}
	}
}

// authStatus builds the per-source sign-in status text.
func authStatus(src source.Type) string {
	return fmt.Sprintf("%s: please sign in again", src)
}
