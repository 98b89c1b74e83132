// internal/status/tracker.go
package status

import (
	"github.com/tamzrod/pilatus-bridge/internal/hw"
	"github.com/tamzrod/pilatus-bridge/internal/poller"
)

// Tracker owns the snapshot between poll results and the 1 Hz error tick.
// It is not safe for concurrent use; one goroutine drives it.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current snapshot.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Apply folds one poll result and reports whether anything changed.
// seconds_in_error is not touched on error: it advances on Tick only.
func (t *Tracker) Apply(res poller.PollResult) (Snapshot, bool) {
	next := t.snap

	if res.Err == nil {
		// Recovery / OK
		next.Health = HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0
	} else {
		next.Health = HealthError
		code := res.RawErrorCode
		if code == 0 {
			code = 1
		}
		next.LastErrorCode = code
	}

	// A fault still carries a valid status pair; a failed read does not.
	if res.Err == nil || res.Status.Acq == hw.AcqFault {
		next.DetStatus = uint16(res.Status.Det)
		next.AcqStatus = uint16(res.Status.Acq)
		next.FramesAcquired = clamp32(res.Frames)
		next.FramesRequested = clamp32(res.Requested)
	}
	next.ServerState = uint16(res.Server)

	changed := next != t.snap
	t.snap = next
	return next, changed
}

// Tick advances seconds_in_error while not OK. It saturates at 65535.
func (t *Tracker) Tick() (Snapshot, bool) {
	if t.snap.Health == HealthOK || t.snap.SecondsInError == 65535 {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

func clamp32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if uint64(n) > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(n)
}
