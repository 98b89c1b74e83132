// internal/camserver/apply.go
package camserver

import (
	"strings"

	"github.com/tamzrod/pilatus-bridge/internal/logging"
)

// applyLocked folds one reply into the client state.
//
// An error state is sticky: replies are ignored until an explicit command
// (start, stop, setter, soft reset) moves the state away from it.
func (c *Client) applyLocked(r Reply) {
	if c.state == StateError {
		return
	}
	defer c.notifyLocked()
	running := c.state == StateRunning || c.state == StateKilling

	switch r.Code {
	case CodeGeneric:
		if !r.OK {
			c.failLocked(r)
			return
		}
		c.applyGenericLocked(r.Text, running)

	case CodeKill:
		c.state = StateOK

	case CodeExposure:
		switch {
		case r.OK:
			c.state = StateOK
			c.nbAcquired = c.nImages
		case strings.HasPrefix(r.Text, "*** killing exposure"):
			c.state = StateOK
		default:
			c.failLocked(r)
		}

	case CodeError:
		if !r.OK {
			c.failLocked(r)
		}

	case CodeImgpath:
		if !r.OK {
			c.failLocked(r)
			return
		}
		if r.Text != "" {
			c.imgpath = r.Text
		}
		if !running {
			c.state = StateOK
		}

	case CodeTemperature:
		if !r.OK {
			c.failLocked(r)
			return
		}
		c.temperature, c.humidity = decodeTH(r.Text)
		c.state = StateOK
	}
}

func (c *Client) failLocked(r Reply) {
	logging.Logf("camserver: error reply in state %s: %s", c.state, r.Raw)
	c.errMsg = r.Text
	c.state = StateError
}

// applyGenericLocked handles "15 OK ..." acknowledgements.
func (c *Client) applyGenericLocked(text string, running bool) {
	switch {
	case strings.Contains(text, "Settings:"):
		gain, thr, ok := thresholdSettings(text)
		if ok {
			c.gain = gain
			c.threshold = thr
		}
		if !running {
			c.state = StateOK
		}

	case strings.Contains(text, "/tmp/setthreshold"):
		if !running {
			c.state = StateOK
		}
		if err := c.reinitLocked(); err != nil {
			logging.Logf("camserver: resync after threshold: %v", err)
		}

	case strings.Contains(text, "Energy"):
		if v, ok := valueAfterColon(text); ok {
			c.energy = v
		} else {
			c.energy = -1
			c.threshold = -1
			c.gain = DefaultGain
		}

	case strings.HasPrefix(text, "Exposure time"):
		if v, ok := valueAfterColon(text); ok {
			c.exposure = v
		}
	case strings.HasPrefix(text, "Exposure period"):
		if v, ok := valueAfterColon(text); ok {
			c.exposurePeriod = v
		}
	case strings.HasPrefix(text, "Exposures per frame"):
		if v, ok := valueAfterColon(text); ok {
			c.expPerFrame = int(v)
		}

	case strings.Contains(text, "Delay"):
		if v, ok := valueAfterColon(text); ok {
			c.triggerDelay = v
		}

	case strings.Contains(text, "N images"):
		if v, ok := valueAfterColon(text); ok {
			c.nImages = int(v)
		}
	}

	if !running && c.state.settling() {
		c.state = StateOK
	}
}
