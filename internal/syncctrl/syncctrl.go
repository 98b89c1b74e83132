// internal/syncctrl/syncctrl.go
package syncctrl

import (
	"context"
	"fmt"
	"sync"

	"github.com/tamzrod/pilatus-bridge/internal/camserver"
	"github.com/tamzrod/pilatus-bridge/internal/hw"
)

// Camserver is the part of the camserver client SyncCtrl drives.
type Camserver interface {
	SetTriggerMode(m camserver.TriggerMode)
	SetExposure(ctx context.Context, seconds float64) error
	SetExposurePeriod(ctx context.Context, seconds float64) error
	SetNbImages(ctx context.Context, n int) error
}

var trigModes = map[hw.TrigMode]camserver.TriggerMode{
	hw.IntTrig:       camserver.InternalSingle,
	hw.IntTrigMult:   camserver.InternalMulti,
	hw.ExtTrigSingle: camserver.ExternalStart,
	hw.ExtTrigMult:   camserver.ExternalMultiStart,
	hw.ExtGate:       camserver.ExternalGate,
}

// Ctrl holds trigger and timing parameters until PrepareAcq pushes them.
type Ctrl struct {
	cam    Camserver
	ranges hw.ValidRanges

	mu       sync.Mutex
	trig     hw.TrigMode
	exp      float64
	lat      float64
	nbFrames int
}

// New builds a sync capability bounded by ranges.
func New(cam Camserver, ranges hw.ValidRanges) *Ctrl {
	return &Ctrl{
		cam:      cam,
		ranges:   ranges,
		trig:     hw.IntTrig,
		exp:      1,
		nbFrames: 1,
	}
}

func (c *Ctrl) CheckTrigMode(m hw.TrigMode) bool {
	_, ok := trigModes[m]
	return ok
}

func (c *Ctrl) SetTrigMode(m hw.TrigMode) error {
	if !c.CheckTrigMode(m) {
		return hw.InvalidValue("trigger mode %s", m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trig = m
	return nil
}

func (c *Ctrl) TrigMode() hw.TrigMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trig
}

// SetExpTime accepts values inside the valid range. In gate mode zero is
// also accepted: the gate signal sets the exposure.
func (c *Ctrl) SetExpTime(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	gate := c.trig == hw.ExtGate && seconds == 0
	if !gate && (seconds < c.ranges.MinExpTime || seconds > c.ranges.MaxExpTime) {
		return hw.InvalidValue("exposure %gs not in %g..%g", seconds, c.ranges.MinExpTime, c.ranges.MaxExpTime)
	}
	c.exp = seconds
	return nil
}

func (c *Ctrl) ExpTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exp
}

// SetLatTime accepts 0 (shortest possible) or a value inside the valid range.
func (c *Ctrl) SetLatTime(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seconds != 0 && (seconds < c.ranges.MinLatTime || seconds > c.ranges.MaxLatTime) {
		return hw.InvalidValue("latency %gs not in %g..%g", seconds, c.ranges.MinLatTime, c.ranges.MaxLatTime)
	}
	c.lat = seconds
	return nil
}

func (c *Ctrl) LatTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lat
}

func (c *Ctrl) SetNbHwFrames(n int) error {
	if n < 1 {
		return hw.InvalidValue("nb frames %d", n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nbFrames = n
	return nil
}

func (c *Ctrl) NbHwFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nbFrames
}

// NbFrames is the frame count the host requested.
func (c *Ctrl) NbFrames() int { return c.NbHwFrames() }

func (c *Ctrl) ValidRanges() hw.ValidRanges { return c.ranges }

// ExposurePeriod is exposure plus the effective latency.
func (c *Ctrl) ExposurePeriod() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.periodLocked()
}

func (c *Ctrl) periodLocked() float64 {
	lat := c.lat
	if lat < c.ranges.MinLatTime {
		lat = c.ranges.MinLatTime
	}
	return c.exp + lat
}

// PrepareAcq pushes trigger mode, exposure, period and image count.
func (c *Ctrl) PrepareAcq(ctx context.Context) error {
	c.mu.Lock()
	mode := trigModes[c.trig]
	exp, period, n := c.exp, c.periodLocked(), c.nbFrames
	c.mu.Unlock()

	c.cam.SetTriggerMode(mode)
	if err := c.cam.SetExposure(ctx, exp); err != nil {
		return fmt.Errorf("syncctrl: exposure: %w", err)
	}
	if err := c.cam.SetExposurePeriod(ctx, period); err != nil {
		return fmt.Errorf("syncctrl: exposure period: %w", err)
	}
	if err := c.cam.SetNbImages(ctx, n); err != nil {
		return fmt.Errorf("syncctrl: nb images: %w", err)
	}
	return nil
}
