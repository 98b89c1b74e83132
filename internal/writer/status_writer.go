// internal/writer/status_writer.go
package writer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/pilatus-bridge/internal/status"
)

// StatusWriter is the delivery-only contract for detector status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the bridge.
type deviceStatusWriter struct {
	plan *StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16 // live slots as last delivered
	nameRegs []uint16
}

// NewDeviceStatusWriter builds a status writer if publishing is enabled.
// If plan.Status is nil, status is disabled.
func NewDeviceStatusWriter(plan Plan, clients map[string]endpointClient) (*deviceStatusWriter, bool) {
	if plan.Status == nil {
		return nil, false
	}

	sp := plan.Status
	return &deviceStatusWriter{
		plan:     sp,
		cli:      clients[sp.Endpoint],
		needFull: true, // full re-assert on first successful write
		nameRegs: encodeDeviceNameRegs(sp.DeviceName),
	}, true
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next call re-asserts the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	regs := status.Encode(s)
	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		full := sw.withName(regs)
		if err := sw.cli.WriteRegisters(statusAreaHoldingRegisters, unitID, baseAddr, full); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = regs[:status.SlotDeviceNameStart]
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: one write per run of changed live slots
	// ------------------------------------------------------------
	var errs []string
	live := regs[:status.SlotDeviceNameStart]

	for start := 0; start < len(live); {
		if live[start] == sw.last[start] {
			start++
			continue
		}
		end := start
		for end+1 < len(live) && live[end+1] != sw.last[end+1] {
			end++
		}

		if err := sw.cli.WriteRegisters(
			statusAreaHoldingRegisters,
			unitID,
			baseAddr+uint16(start),
			live[start:end+1],
		); err != nil {
			errs = append(errs, fmt.Sprintf("slots %d-%d write failed: %v", start, end, err))
		} else {
			copy(sw.last[start:end+1], live[start:end+1])
		}
		start = end + 1
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each detector owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}

func (sw *deviceStatusWriter) withName(regs []uint16) []uint16 {
	full := append([]uint16(nil), regs...)
	copy(full[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameRegs)
	return full
}

// encodeDeviceNameRegs packs the name into SlotDeviceNameSlots registers,
// two ASCII bytes per register, high byte first. Non-printable bytes become '?'
// and anything past DeviceNameMaxChars is dropped.
func encodeDeviceNameRegs(name string) []uint16 {
	var buf [status.DeviceNameMaxChars]byte
	for i := 0; i < len(name) && i < len(buf); i++ {
		c := name[i]
		if c < 0x20 || c > 0x7E {
			c = '?'
		}
		buf[i] = c
	}

	out := make([]uint16, status.SlotDeviceNameSlots)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(buf[2*i:])
	}
	return out
}
