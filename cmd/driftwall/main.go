// Driftwall is a desktop-background shuffler over a local Apple Photos
// export and Adobe Lightroom cloud albums.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwall/driftwall/config"
	"github.com/driftwall/driftwall/pkg/cache"
	"github.com/driftwall/driftwall/pkg/compositor"
	"github.com/driftwall/driftwall/pkg/history"
	"github.com/driftwall/driftwall/pkg/pool"
	"github.com/driftwall/driftwall/pkg/setter"
	"github.com/driftwall/driftwall/pkg/shuffle"
	"github.com/driftwall/driftwall/pkg/source"
	"github.com/driftwall/driftwall/pkg/source/applephotos"
	"github.com/driftwall/driftwall/pkg/source/lightroom"
	"github.com/driftwall/driftwall/pkg/store"
	"github.com/driftwall/driftwall/util/log"
)

var rootCmd = &cobra.Command{
	Use:           "driftwall",
	Short:         "Shuffle your desktop background from your own photo albums",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the explicitly constructed dependencies every command works
// with. Nothing here is a singleton.
type app struct {
	cfg        *config.Config
	workingDir string
	store      *store.Store
	cache      *cache.Cache
	pool       *pool.AssetPool
	connectors map[source.Type]source.Connector
	tokens     lightroom.TokenStore
	settings   pool.Settings
}

// newApp loads the config and opens the storage and cache layers.
func newApp() (*app, error) {
	workingDir, err := config.GetWorkingDir()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	cfgPath, err := config.GetFilename()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(filepath.Join(workingDir, "driftwall.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	c, err := cache.New(filepath.Join(workingDir, "cache"), cfg.CacheMaxBytes)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		workingDir: workingDir,
		store:      st,
		cache:      c,
		connectors: make(map[source.Type]source.Connector),
	}

	if cfg.PhotosLibraryDir != "" {
		ap, err := applephotos.New(cfg.PhotosLibraryDir)
		if err != nil {
			log.Printf("photos library unavailable: %v", err)
		} else {
			a.connectors[source.ApplePhotos] = ap
		}
	}
	if cfg.LightroomAPIKey != "" {
		tokens, err := lightroom.NewKeyringTokens()
		if err != nil {
			log.Printf("keyring unavailable, Lightroom disabled: %v", err)
		} else {
			a.tokens = tokens
			a.connectors[source.LightroomCloud] = lightroom.New(
				cfg.LightroomBaseURL, cfg.LightroomAPIKey, tokens, newHTTPClient())
		}
	}

	a.pool = pool.New(st, a.connectors, c)
	a.settings, err = st.Settings()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return a, nil
}

// Close releases the storage layer.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("closing database: %v", err)
	}
}

// newScheduler wires a Scheduler over the app's collaborators.
func (a *app) newScheduler() *shuffle.Scheduler {
	return shuffle.New(shuffle.Options{
		Pool:          a.pool,
		History:       history.New(a.cfg.MaxHistory, time.Now().UnixNano()),
		Cache:         a.cache,
		Connectors:    a.connectors,
		Compositor:    compositor.New(a.cfg.SmartFill),
		Setter:        setter.ForCurrentOS(),
		Settings:      a.settings,
		WorkingDir:    a.workingDir,
		LibraryDir:    a.cfg.PhotosLibraryDir,
		PollInterval:  a.cfg.PollInterval,
		PrefetchCount: a.cfg.PrefetchCount,
	})
}

// newHTTPClient builds the cloud connector's HTTP client with the standard
// dial/TLS budgets.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: config.HTTPClientRequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   config.HTTPClientDialerTimeout,
				KeepAlive: config.HTTPClientKeepAlive,
			}).DialContext,
			ResponseHeaderTimeout: config.HTTPClientResponseHeaderTimeout,
			TLSHandshakeTimeout:   config.HTTPClientTLSHandshakeTimeout,
		},
	}
}

// parseSource maps a user-typed source name to its type.
func parseSource(s string) (source.Type, error) {
	switch s {
	case "photos", "apple", "applephotos", "apple-photos":
		return source.ApplePhotos, nil
	case "lightroom", "lr":
		return source.LightroomCloud, nil
	default:
		return 0, fmt.Errorf("unknown source %q (use \"photos\" or \"lightroom\")", s)
	}
}
