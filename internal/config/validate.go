// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tamzrod/pilatus-bridge/internal/detinfo"
)

// statusBlockSlots is the register count of one published status block.
const statusBlockSlots = 20

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	b := cfg.Bridge

	// ------------------------------------------------------------
	// CAMSERVER
	// ------------------------------------------------------------

	cs := b.Camserver
	if cs.Port < 0 || cs.Port > 65535 {
		return fmt.Errorf("camserver: port %d out of range", cs.Port)
	}
	if cs.TimeoutMs < 0 {
		return fmt.Errorf("camserver: timeout_ms must be >= 0, got %d", cs.TimeoutMs)
	}
	if cs.FilePattern != "" && strings.Count(cs.FilePattern, "%") != 1 {
		return fmt.Errorf("camserver: file_pattern %q must hold exactly one integer verb", cs.FilePattern)
	}
	for i, v := range cs.TemperatureMax {
		if v <= 0 {
			return fmt.Errorf("camserver: temperature_max[%d] must be > 0", i)
		}
	}
	for i, v := range cs.HumidityMax {
		if v <= 0 {
			return fmt.Errorf("camserver: humidity_max[%d] must be > 0", i)
		}
	}

	// ------------------------------------------------------------
	// DESCRIPTOR
	// ------------------------------------------------------------

	if b.Descriptor.ParseMode != "" {
		if _, err := detinfo.ParseModeFromString(b.Descriptor.ParseMode); err != nil {
			return fmt.Errorf("descriptor: %w", err)
		}
	}

	if b.Buffer.MaxBuffers < 0 {
		return fmt.Errorf("buffer: max_buffers must be >= 0, got %d", b.Buffer.MaxBuffers)
	}

	// ------------------------------------------------------------
	// STATUS PUBLISH (OPT-IN)
	// ------------------------------------------------------------

	if b.Status.IntervalMs < 0 {
		return fmt.Errorf("status: interval_ms must be >= 0, got %d", b.Status.IntervalMs)
	}
	if p := b.Status.Publish; p != nil {
		if p.Endpoint == "" {
			return errors.New("status.publish: endpoint required")
		}
		if _, _, err := net.SplitHostPort(p.Endpoint); err != nil {
			return fmt.Errorf("status.publish: endpoint %q: %w", p.Endpoint, err)
		}
		if p.TimeoutMs < 0 {
			return fmt.Errorf("status.publish: timeout_ms must be >= 0, got %d", p.TimeoutMs)
		}
		// device_name sanity (ASCII only)
		for i := 0; i < len(p.DeviceName); i++ {
			if p.DeviceName[i] > 0x7F {
				return errors.New("status.publish: device_name must contain ASCII characters only")
			}
		}
		// the whole block must stay addressable
		if end := (int(p.Slot)+1)*statusBlockSlots - 1; end > 0xFFFF {
			return fmt.Errorf("status.publish: slot %d puts the block past register 65535", p.Slot)
		}
	}

	if j := b.Journal; j != nil && j.Path == "" {
		return errors.New("journal: path required when journal is set")
	}

	return nil
}
