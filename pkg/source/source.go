// Package source defines the closed set of asset sources and the connector
// contract the rest of the system consumes. Concrete connectors live in
// subpackages; persistence of source names is confined to pkg/store.
package source

import (
	"context"
	"fmt"
)

// Type identifies an asset source. It is a closed enum; do not persist the
// numeric value, the storage layer owns the string mapping.
type Type int

const (
	// ApplePhotos is the local photo library source. It never needs the
	// network and serves as the offline fallback.
	ApplePhotos Type = iota
	// LightroomCloud is the Adobe Lightroom cloud source.
	LightroomCloud
)

// Types returns all known source types.
func Types() []Type {
	return []Type{ApplePhotos, LightroomCloud}
}

func (t Type) String() string {
	switch t {
	case ApplePhotos:
		return "Apple Photos"
	case LightroomCloud:
		return "Lightroom"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// RequiresNetwork reports whether fetching from this source needs
// connectivity. The scheduler uses it to pick offline fallback candidates.
func (t Type) RequiresNetwork() bool {
	return t == LightroomCloud
}

// Album is a source-reported album summary.
type Album struct {
	ID    string
	Name  string
	Count int
}

// Connector is the per-source access contract. Implementations must be safe
// for concurrent use; all blocking calls take a context.
type Connector interface {
	// Source returns the type this connector serves.
	Source() Type
	// FetchAlbums lists the albums the user can curate from.
	FetchAlbums(ctx context.Context) ([]Album, error)
	// FetchAssetIDs returns the authoritative asset ID list for an album.
	FetchAssetIDs(ctx context.Context, albumID string) ([]string, error)
	// FetchImageBytes downloads the full-size image for an asset.
	FetchImageBytes(ctx context.Context, assetID string) ([]byte, error)
}

// AuthError reports that a source can no longer authenticate and needs the
// user to sign in again. It is never retried automatically.
type AuthError struct {
	Source Type
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: authentication required", e.Source)
	}
	return fmt.Sprintf("%s: authentication required: %v", e.Source, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
