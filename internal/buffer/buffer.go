// internal/buffer/buffer.go
package buffer

import (
	"sync"

	"github.com/tamzrod/pilatus-bridge/internal/hw"
	"github.com/tamzrod/pilatus-bridge/internal/logging"
)

// DefaultMaxNbBuffers is used when no limit is configured.
const DefaultMaxNbBuffers = 1024

// FrameCounter reports how many images the camserver finished.
type FrameCounter interface {
	NbAcquiredImages() int
}

// Ctrl is the buffer capability. The camserver writes frames to its own
// disk, so Ctrl only tracks parameters, the fault flag and frame progress.
type Ctrl struct {
	src FrameCounter

	mu         sync.Mutex
	dim        hw.FrameDim
	dimSet     bool
	nbBuffers  int
	maxBuffers int
	cb         func(hw.FrameInfo) bool
	running    bool
	fault      bool
	dispatched int
}

// New builds a buffer whose frame geometry comes from det.
// maxBuffers <= 0 selects DefaultMaxNbBuffers.
func New(src FrameCounter, det hw.DetInfoCtrl, maxBuffers int) *Ctrl {
	if maxBuffers <= 0 {
		maxBuffers = DefaultMaxNbBuffers
	}
	c := &Ctrl{src: src, maxBuffers: maxBuffers}

	size := det.MaxImageSize()
	if t, err := det.CurrImageType(); err == nil && !size.IsZero() {
		c.dim = hw.FrameDim{Size: size, Type: t}
		c.dimSet = true
	} else {
		logging.Logf("buffer: no frame geometry from detector info (size=%dx%d)", size.Width, size.Height)
	}
	return c
}

func (c *Ctrl) SetFrameDim(d hw.FrameDim) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dim = d
	c.dimSet = !d.Size.IsZero()
}

func (c *Ctrl) FrameDim() hw.FrameDim {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

func (c *Ctrl) SetNbBuffers(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 || n > c.maxBuffers {
		return hw.InvalidValue("nb buffers %d not in 1..%d", n, c.maxBuffers)
	}
	c.nbBuffers = n
	return nil
}

// NbBuffers returns the configured count, or MaxNbBuffers when unset.
func (c *Ctrl) NbBuffers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nbBuffers == 0 {
		return c.maxBuffers
	}
	return c.nbBuffers
}

func (c *Ctrl) SetNbConcatFrames(n int) error {
	if n != 1 {
		return hw.NotSupported("concatenated frames (%d)", n)
	}
	return nil
}

func (c *Ctrl) NbConcatFrames() int { return 1 }

func (c *Ctrl) MaxNbBuffers() int { return c.maxBuffers }

func (c *Ctrl) RegisterFrameCallback(cb func(hw.FrameInfo) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = cb
}

func (c *Ctrl) UnregisterFrameCallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = nil
}

// Start arms frame tracking. Without a frame geometry the buffer faults.
func (c *Ctrl) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dimSet {
		logging.Logf("buffer: start without frame geometry")
		c.fault = true
	}
	c.running = true
}

func (c *Ctrl) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// Reset clears the fault flag and the frame progress.
func (c *Ctrl) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = false
	c.running = false
	c.dispatched = 0
}

// Quit stops tracking and drops the frame callback.
func (c *Ctrl) Quit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.cb = nil
}

func (c *Ctrl) IsError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

func (c *Ctrl) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LastAcquiredFrame is the index of the newest finished frame, -1 if none.
func (c *Ctrl) LastAcquiredFrame() int {
	return c.src.NbAcquiredImages() - 1
}

// Dispatch hands every finished frame not yet seen to the frame callback
// and returns how many were delivered. A callback returning false stops
// delivery until the next Reset.
func (c *Ctrl) Dispatch() int {
	last := c.LastAcquiredFrame()

	c.mu.Lock()
	cb, from, dim := c.cb, c.dispatched, c.dim
	if cb == nil || c.fault || from > last {
		c.mu.Unlock()
		return 0
	}
	c.mu.Unlock()

	n := 0
	next := from
	for ; next <= last; next++ {
		n++
		if !cb(hw.FrameInfo{AcqFrameNb: next, Dim: dim}) {
			next = maxFrame
			break
		}
	}

	c.mu.Lock()
	if c.dispatched == from {
		c.dispatched = next
	}
	c.mu.Unlock()
	return n
}

// maxFrame parks dispatch after a callback asked to stop.
const maxFrame = int(^uint(0) >> 1)
