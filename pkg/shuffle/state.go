package shuffle

import (
	"time"
)

// Status texts the scheduler reports. Auth statuses are per-source and built
// with authStatus.
const (
	StatusErrorLoadingAlbums = "error loading albums"
	StatusNoAlbumsSelected   = "no albums selected"
	StatusSourcesDisabled    = "selected albums are disabled in sources"
	StatusNoSyncedPhotos     = "no synced photos yet"
	StatusNetworkOffline     = "network offline"
)

// State is a snapshot of the scheduler, delivered to subscribers after every
// mutation. Subscribers receive the whole snapshot; there is no payload-free
// ping to chase.
type State struct {
	Running       bool
	LastShuffle   time.Time
	NextShuffle   time.Time
	CurrentSource string
	Status        string
	Cycles        uint64
}
