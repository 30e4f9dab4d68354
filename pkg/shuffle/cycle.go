package shuffle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/driftwall/driftwall/pkg/cache"
	"github.com/driftwall/driftwall/pkg/pool"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/source"
	"github.com/driftwall/driftwall/util/log"
)

// softError carries status text for failures that only end the current
// cycle. The next tick retries from scratch.
type softError struct {
	status string
	err    error
}

func (e *softError) Error() string {
	if e.err == nil {
		return e.status
	}
	return fmt.Sprintf("%s: %v", e.status, e.err)
}

func (e *softError) Unwrap() error { return e.err }

func soft(status string, err error) error {
	return &softError{status: status, err: err}
}

// runCycle executes one shuffle cycle. CALLER MUST HOLD s.cycleMu.
func (s *Scheduler) runCycle(ctx context.Context) {
	entries, err := s.pool.BuildPool()
	if err != nil {
		log.Printf("cycle: %v", err)
		s.setStatus(StatusErrorLoadingAlbums)
		return
	}

	if len(entries) == 0 {
		warnings, err := s.pool.SyncSelectedAlbums(ctx)
		if err != nil {
			log.Printf("cycle: %v", err)
			s.setStatus(StatusErrorLoadingAlbums)
			return
		}
		for _, w := range warnings {
			log.Printf("cycle: %s", w)
		}
		entries, err = s.pool.BuildPool()
		if err != nil {
			log.Printf("cycle: %v", err)
			s.setStatus(StatusErrorLoadingAlbums)
			return
		}
		if len(entries) == 0 {
			s.setStatus(s.emptyPoolStatus())
			return
		}
	}

	pick := s.history.Select(entries)
	if pick == nil {
		// pool emptied concurrently; nothing to report
		return
	}

	path, data, err := s.resolve(ctx, *pick)
	if err != nil {
		pick, path, data = s.handleResolveFailure(ctx, entries, err)
		if pick == nil {
			return
		}
	}

	warning := s.apply(path, data)

	s.history.Add(*pick)
	s.cycles.Increment()

	s.mu.Lock()
	s.state.LastShuffle = s.now()
	s.state.CurrentSource = pick.Source.String()
	switch {
	case warning != "":
		s.state.Status = warning
	case len(s.authRequired) == 0:
		s.state.Status = ""
	}
	s.notifyLocked()
	s.mu.Unlock()

	log.Debugf("cycle: applied %s from %s", pick.ID, pick.Source)
	s.prefetch(ctx, entries)
}

// handleResolveFailure classifies a step-4 failure into the three tiers and,
// for generic network failure, retries once against an offline-capable
// candidate. It returns the successful pick, or nil when the cycle ends.
func (s *Scheduler) handleResolveFailure(ctx context.Context, entries []pool.Entry, err error) (*pool.Entry, string, []byte) {
	var authErr *source.AuthError
	if errors.As(err, &authErr) {
		log.Printf("cycle: %v", err)
		s.mu.Lock()
		s.authRequired[authErr.Source] = true
		s.state.Status = authStatus(authErr.Source)
		s.notifyLocked()
		s.mu.Unlock()
		return nil, "", nil
	}

	var se *softError
	if errors.As(err, &se) {
		log.Printf("cycle: %v", err)
		s.setStatus(se.status)
		return nil, "", nil
	}

	if ctx.Err() != nil {
		return nil, "", nil
	}

	// Generic network failure: one retry restricted to sources that work
	// without connectivity.
	log.Printf("cycle: %v", err)
	var offline []pool.Entry
	for _, e := range entries {
		if !e.Source.RequiresNetwork() {
			offline = append(offline, e)
		}
	}
	fallback := s.history.Select(offline)
	if fallback == nil {
		s.setStatus(StatusNetworkOffline)
		return nil, "", nil
	}
	path, data, err := s.resolve(ctx, *fallback)
	if err != nil {
		log.Printf("cycle: offline fallback: %v", err)
		s.setStatus(StatusNetworkOffline)
		return nil, "", nil
	}
	return fallback, path, data
}

// emptyPoolStatus classifies why nothing is selectable.
func (s *Scheduler) emptyPoolStatus() string {
	reason, err := s.pool.ClassifyEmpty()
	if err != nil {
		log.Printf("cycle: %v", err)
		return StatusErrorLoadingAlbums
	}
	switch reason {
	case pool.ReasonSourcesDisabled:
		return StatusSourcesDisabled
	case pool.ReasonNoSyncedAssets:
		return StatusNoSyncedPhotos
	default:
		return StatusNoAlbumsSelected
	}
}

// resolve returns a disk path for the entry's image: a cache hit, or a fetch
// from the owning connector stored into the cache. data is non-nil only when
// the bytes were just fetched, saving the compositor a re-read.
func (s *Scheduler) resolve(ctx context.Context, e pool.Entry) (string, []byte, error) {
	key := e.CacheKey()
	path, err := s.cache.Retrieve(key)
	if err == nil {
		return path, nil, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		return "", nil, soft("error reading image cache", err)
	}

	conn, ok := s.connectors[e.Source]
	if !ok {
		return "", nil, soft(fmt.Sprintf("%s is not configured", e.Source), nil)
	}
	data, err := conn.FetchImageBytes(ctx, e.ID)
	if err != nil {
		return "", nil, err
	}
	path, err = s.cache.Store(data, key)
	if err != nil {
		return "", nil, soft("error caching image", err)
	}
	return path, data, nil
}

// apply optionally composites and then sets the wallpaper. Its return value
// is status text for non-fatal degradation; a hard setter failure also comes
// back as status text, since the cycle has nothing left to do either way.
func (s *Scheduler) apply(path string, data []byte) string {
	mode := s.settings.Mode
	applyPath := path

	needsCompose := mode.NeedsMatte() || (mode == setter.ModeFill && s.comp != nil && s.comp.SmartFillEnabled())
	if needsCompose && s.comp != nil {
		if composed, err := s.compose(path, data, mode); err != nil {
			log.Printf("compositing failed, applying raw image: %v", err)
		} else {
			applyPath = composed
		}
	}

	warning, err := s.setter.Apply(applyPath, mode, s.settings.AllDesktops)
	if err != nil {
		log.Printf("setting wallpaper: %v", err)
		return "failed to set wallpaper"
	}
	if warning != "" {
		log.Printf("setting wallpaper: %s", warning)
	}
	return warning
}

// compose renders the image for the active mode and writes it to a stable
// path in the working directory, outside the cache so the stale-entry sweep
// never collects it.
func (s *Scheduler) compose(path string, data []byte, mode setter.ScalingMode) (string, error) {
	width, height, err := s.setter.DesktopDimensions()
	if err != nil {
		return "", fmt.Errorf("getting desktop dimensions: %w", err)
	}
	if data == nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading cached image: %w", err)
		}
	}

	var out []byte
	if mode.NeedsMatte() {
		out, err = s.comp.Matte(data, width, height)
	} else {
		out, err = s.comp.Fill(data, width, height)
	}
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.workingDir, "current.jpg")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return "", fmt.Errorf("writing composited image: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("committing composited image: %w", err)
	}
	return target, nil
}

// prefetch warms the cache with up to prefetchCount entries that are neither
// cached nor in the anti-repeat window. It reads a history snapshot and
// never mutates the window; every error is swallowed.
func (s *Scheduler) prefetch(ctx context.Context, entries []pool.Entry) {
	recent := make(map[string]bool)
	for _, e := range s.history.Snapshot() {
		recent[e.CacheKey()] = true
	}

	var targets []pool.Entry
	for _, e := range entries {
		if len(targets) >= s.prefetchCount {
			break
		}
		key := e.CacheKey()
		if recent[key] {
			continue
		}
		if _, err := s.cache.Retrieve(key); err == nil {
			continue
		}
		targets = append(targets, e)
	}
	if len(targets) == 0 {
		return
	}

	go func() {
		g := new(errgroup.Group)
		g.SetLimit(2)
		for _, e := range targets {
			e := e
			g.Go(func() error {
				conn, ok := s.connectors[e.Source]
				if !ok {
					return nil
				}
				data, err := conn.FetchImageBytes(ctx, e.ID)
				if err != nil {
					log.Debugf("prefetch of %s failed: %v", e.ID, err)
					return nil
				}
				if _, err := s.cache.Store(data, e.CacheKey()); err != nil {
					log.Debugf("prefetch store of %s failed: %v", e.ID, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}
