// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/pilatus-bridge/internal/camserver"
	"github.com/tamzrod/pilatus-bridge/internal/hw"
)

// Source is what the poller reads each cycle.
type Source interface {
	Status() (hw.StatusType, error)
	NbHwAcquiredFrames() int
	NbRequestedFrames() int
}

// ServerStater optionally exposes the camserver state.
type ServerStater interface {
	ServerState() camserver.State
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Name     string
	Interval time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg Config
	src Source
}

// New creates a poller with immutable config.
func New(cfg Config, src Source) (*Poller, error) {
	if cfg.Name == "" {
		return nil, errors.New("poller: name required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if src == nil {
		return nil, errors.New("poller: source required")
	}
	return &Poller{cfg: cfg, src: src}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: a status failure leaves the frame counters zero.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		Name: p.cfg.Name,
		At:   time.Now(),
	}

	if ss, ok := p.src.(ServerStater); ok {
		res.Server = ss.ServerState()
	}

	st, err := p.src.Status()
	if err != nil {
		res.Err = err
		res.RawErrorCode = errorCode(err)
		return res
	}

	res.Status = st
	res.Frames = p.src.NbHwAcquiredFrames()
	res.Requested = p.src.NbRequestedFrames()

	if st.Acq == hw.AcqFault {
		res.Err = fmt.Errorf("poller: acquisition fault (det=%s server=%s)", st.Det, res.Server)
		res.RawErrorCode = hw.ErrHardware.Code()
	}
	return res
}

// errorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 1 (generic error).
func errorCode(err error) uint16 {
	if err == nil {
		return 0
	}
	var c interface{ Code() uint16 }
	if errors.As(err, &c) {
		return c.Code()
	}
	return 1
}
