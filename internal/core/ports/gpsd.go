package ports

import (
	"context"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// GPSDEvent is either a state transition or a fresh fix, delivered on the
// same channel so a consumer can update both without racing two streams.
type GPSDEvent struct {
	State domain.GPSDState
	Fix   *domain.GPSFix // nil unless a TPV report just arrived
}

// GPSDClient maintains a reconnecting TCP/JSON session against gpsd,
// surfacing state transitions and position fixes for the consolidation
// model to annotate samples with.
type GPSDClient interface {
	Start(ctx context.Context) error
	Events() <-chan GPSDEvent
	Close() error
}
