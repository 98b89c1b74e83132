// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/pilatus-bridge/internal/camserver"
	"github.com/tamzrod/pilatus-bridge/internal/hw"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	Name string
	At   time.Time

	Status    hw.StatusType
	Frames    int // frames the camserver finished
	Requested int // frames the host asked for

	// Server is the camserver state, when the source exposes it.
	Server camserver.State

	// RawErrorCode is 0 on success, otherwise the hw error code when known.
	RawErrorCode uint16

	Err error // non-nil means the poll cycle failed
}
