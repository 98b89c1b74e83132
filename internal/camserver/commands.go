// internal/camserver/commands.go
package camserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// StartAcquisition starts an exposure sequence whose first file is named
// from the file pattern and imageNumber.
func (c *Client) StartAcquisition(ctx context.Context, imageNumber int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nbAcquired = 0
	if c.state == StateRunning {
		return ErrBusy
	}
	if err := c.waitIdleLocked(ctx, "start acquisition"); err != nil {
		return err
	}

	if len(c.cfg.TemperatureMax) > 0 || len(c.cfg.HumidityMax) > 0 {
		if err := c.readTHLocked(ctx); err != nil {
			return err
		}
		if err := c.checkLimitsLocked(); err != nil {
			return err
		}
	}

	file := fmt.Sprintf(c.filePattern, imageNumber)
	c.errMsg = ""
	c.state = StateRunning
	c.notifyLocked()
	return c.sendLocked(c.trigger.startCommand() + " " + file)
}

// StopAcquisition kills a running exposure. It is a no-op otherwise.
func (c *Client) StopAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return nil
	}
	c.state = StateKilling
	c.notifyLocked()
	return c.sendLocked("k")
}

// HardReset asks the server to reset the detector head.
func (c *Client) HardReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked("resetcam")
}

// SoftReset forgets the last error. A closed socket stays Disconnected.
func (c *Client) SoftReset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errMsg = ""
	if c.conn == nil {
		c.state = StateDisconnected
	} else {
		c.state = StateOK
	}
	c.notifyLocked()
}

// set waits for idle, enters a settling state and sends cmd.
func (c *Client) set(ctx context.Context, what string, next State, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitIdleLocked(ctx, what); err != nil {
		return err
	}
	c.state = next
	c.notifyLocked()
	return c.sendLocked(cmd)
}

func (c *Client) SetEnergy(ctx context.Context, ev float64) error {
	return c.set(ctx, "set energy", StateSettingEnergy, "setenergy "+formatFloat(ev))
}

// SetThresholdGain sets the threshold in eV. DefaultGain keeps the current gain.
func (c *Client) SetThresholdGain(ctx context.Context, ev int, gain Gain) error {
	cmd := "setthreshold " + strconv.Itoa(ev)
	if gain != DefaultGain {
		name, ok := gainToServer[gain]
		if !ok {
			return fmt.Errorf("camserver: unknown gain %d", int(gain))
		}
		cmd = "setthreshold " + name + " " + strconv.Itoa(ev)
	}
	if err := c.set(ctx, "set threshold", StateSettingThreshold, cmd); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gapfill {
		return c.sendLocked("gapfill -1")
	}
	return nil
}

// SetExposure sets the exposure time in seconds. In gate mode a
// non-positive exposure is ignored: the gate defines it.
func (c *Client) SetExposure(ctx context.Context, seconds float64) error {
	c.mu.Lock()
	gate := c.trigger == ExternalGate
	c.mu.Unlock()
	if gate && seconds <= 0 {
		return nil
	}
	return c.set(ctx, "set exposure", StateSettingExposure, "exptime "+formatFloat(seconds))
}

func (c *Client) SetExposurePeriod(ctx context.Context, seconds float64) error {
	return c.set(ctx, "set exposure period", StateSettingExposurePeriod, "expperiod "+formatFloat(seconds))
}

func (c *Client) SetNbImages(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("camserver: negative image count %d", n)
	}
	return c.set(ctx, "set nb images", StateSettingNbImages, "nimages "+strconv.Itoa(n))
}

func (c *Client) SetHardwareTriggerDelay(ctx context.Context, seconds float64) error {
	return c.set(ctx, "set trigger delay", StateSettingTriggerDelay, "delay "+formatFloat(seconds))
}

func (c *Client) SetNbExposurePerFrame(ctx context.Context, n int) error {
	return c.set(ctx, "set exposures per frame", StateSettingExposurePerFrame, "nexpframe "+strconv.Itoa(n))
}

// SetImgpath changes the directory the server writes images into.
// It clears a pending error state, matching what data collectors expect.
func (c *Client) SetImgpath(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitIdleLocked(ctx, "set imgpath"); err != nil {
		return err
	}
	c.state = StateOK
	c.imgpath = path
	c.notifyLocked()
	return c.sendLocked("imgpath " + path)
}

// SetFileName sets the printf-style file pattern, e.g. "image_%.5d.cbf".
func (c *Client) SetFileName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filePattern = name
}

func (c *Client) SetGapfill(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitIdleLocked(ctx, "set gapfill"); err != nil {
		return err
	}
	c.gapfill = on
	v := "0"
	if on {
		v = "-1"
	}
	return c.sendLocked("gapfill " + v)
}

func (c *Client) SetTriggerMode(m TriggerMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trigger = m
}

// ReadTemperatureHumidity queries every sensor channel and returns the
// readings once the server answered.
func (c *Client) ReadTemperatureHumidity(ctx context.Context) (temperature, humidity []float64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitIdleLocked(ctx, "read temperature"); err != nil {
		return nil, nil, err
	}
	if err := c.readTHLocked(ctx); err != nil {
		return nil, nil, err
	}
	return append([]float64(nil), c.temperature...), append([]float64(nil), c.humidity...), nil
}

func (c *Client) readTHLocked(ctx context.Context) error {
	c.state = StateReadingTH
	c.notifyLocked()
	if err := c.sendLocked("th"); err != nil {
		return err
	}
	if err := c.waitIdleLocked(ctx, "read temperature"); err != nil {
		return err
	}
	if c.state == StateError {
		return fmt.Errorf("camserver: read temperature: %s", c.errMsg)
	}
	return nil
}

func (c *Client) checkLimitsLocked() error {
	for i := 0; i < len(c.cfg.TemperatureMax) && i < len(c.temperature); i++ {
		if c.temperature[i] >= c.cfg.TemperatureMax[i] {
			return fmt.Errorf("camserver: temperature channel %d = %g is out of limit %g",
				i, c.temperature[i], c.cfg.TemperatureMax[i])
		}
	}
	for i := 0; i < len(c.cfg.HumidityMax) && i < len(c.humidity); i++ {
		if c.humidity[i] >= c.cfg.HumidityMax[i] {
			return fmt.Errorf("camserver: humidity channel %d = %g is out of limit %g",
				i, c.humidity[i], c.cfg.HumidityMax[i])
		}
	}
	return nil
}

// SendAnyCommand sends a raw command once the server is idle.
func (c *Client) SendAnyCommand(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitIdleLocked(ctx, "send command"); err != nil {
		return err
	}
	return c.sendLocked(cmd)
}

// SendAnyCommandAndWait sends a raw command and waits for its outcome.
// An error reply is returned as an error carrying the server text.
func (c *Client) SendAnyCommandAndWait(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.waitIdleLocked(ctx, "send command"); err != nil {
		return err
	}
	c.state = StateAnyCommand
	c.notifyLocked()
	if err := c.sendLocked(cmd); err != nil {
		return err
	}
	err := c.waitLocked(ctx, "send command", func(s State) bool {
		return s == StateOK || s == StateError || s == StateDisconnected
	})
	if err != nil {
		return err
	}
	switch c.state {
	case StateError:
		return errors.New("camserver: " + c.errMsg)
	case StateDisconnected:
		return ErrNotConnected
	}
	return nil
}

// Cached values, as last reported by the server.

func (c *Client) Energy() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.energy
}

func (c *Client) Threshold() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

func (c *Client) Gain() Gain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gain
}

func (c *Client) Exposure() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure
}

func (c *Client) ExposurePeriod() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposurePeriod
}

func (c *Client) NbImagesInSequence() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nImages
}

func (c *Client) HardwareTriggerDelay() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggerDelay
}

func (c *Client) NbExposurePerFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expPerFrame
}

func (c *Client) Gapfill() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gapfill
}

func (c *Client) TriggerMode() TriggerMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger
}

func (c *Client) Imgpath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imgpath
}

func (c *Client) FileName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filePattern
}

// NbAcquiredImages is the image count of the last completed sequence.
func (c *Client) NbAcquiredImages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nbAcquired
}
