package ports

import (
	"context"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// Producer is any source of network samples that the consolidation model
// can absorb: the TZSP receiver (C2) and the SSH scan-table/sniffer driver
// (C3) both implement it.
type Producer interface {
	// Start runs the producer's receive loop until ctx is cancelled or an
	// unrecoverable error occurs. Samples are delivered to Records as they
	// are decoded; Start does not return until the loop has fully stopped.
	Start(ctx context.Context) error

	// Records returns the channel samples are delivered on. It must be
	// called before Start and remains valid for the producer's lifetime.
	Records() <-chan domain.NetworkRecord

	// Close releases any held resources (sockets, SSH sessions).
	Close() error
}

// UpdateEvent pairs a changed record with the reason an observer is being
// told about it, so a UI collaborator can decide whether to repaint,
// highlight or sound an alarm without a second lookup.
type UpdateEvent struct {
	Kind   domain.UpdateKind
	Record domain.NetworkRecord
}

// Consolidation is the single-writer in-memory table (C5) that folds
// producer samples into per-BSSID records. Every method, including reads
// like Snapshot and Lookup, is answered by one internal dispatcher
// goroutine started by Run, so a Snapshot issued after a Stage/Drain call
// from the same goroutine never races that call's effect.
type Consolidation interface {
	// Run owns the dispatcher goroutine and blocks until ctx is cancelled.
	Run(ctx context.Context) error

	// Stage appends a freshly observed sample to the staging buffer. No
	// merge happens yet; Stage never blocks on a merge completing.
	Stage(sample domain.NetworkRecord)

	// Drain runs one heartbeat cycle: every staged sample is merged into
	// the table in FIFO arrival order, ages are advanced, and the set of
	// records that changed -- together with the reason -- is returned.
	Drain() []UpdateEvent

	// Snapshot returns every record currently held, independent of
	// Activity state.
	Snapshot() []domain.NetworkRecord

	// Lookup returns one record by BSSID.
	Lookup(address [6]byte) (domain.NetworkRecord, bool)

	// Clear empties the table.
	Clear()
}
