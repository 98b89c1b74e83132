// internal/hw/types.go
package hw

import "fmt"

// ResetLevel selects how deep Interface.Reset goes.
type ResetLevel int

const (
	SoftReset ResetLevel = iota
	HardReset
)

func (l ResetLevel) String() string {
	switch l {
	case SoftReset:
		return "soft"
	case HardReset:
		return "hard"
	default:
		return fmt.Sprintf("ResetLevel(%d)", int(l))
	}
}

// DetStatus is a bit set describing what the detector head is doing.
type DetStatus uint16

const (
	DetIdle     DetStatus = 0
	DetExposure DetStatus = 1 << 0
	DetReadout  DetStatus = 1 << 1
	DetLatency  DetStatus = 1 << 2
	DetFault    DetStatus = 1 << 3
)

func (s DetStatus) String() string {
	switch s {
	case DetIdle:
		return "idle"
	case DetExposure:
		return "exposure"
	case DetReadout:
		return "readout"
	case DetLatency:
		return "latency"
	case DetFault:
		return "fault"
	default:
		return fmt.Sprintf("DetStatus(0x%x)", uint16(s))
	}
}

// AcqStatus is the acquisition-level status reported to the host.
type AcqStatus uint16

const (
	AcqReady AcqStatus = iota
	AcqRunning
	AcqFault
)

func (s AcqStatus) String() string {
	switch s {
	case AcqReady:
		return "ready"
	case AcqRunning:
		return "running"
	case AcqFault:
		return "fault"
	default:
		return fmt.Sprintf("AcqStatus(%d)", uint16(s))
	}
}

// StatusType is the status pair returned by Interface.Status.
// DetMask tells the host which DetStatus bits the adapter is able to report.
type StatusType struct {
	Acq     AcqStatus
	Det     DetStatus
	DetMask DetStatus
}

// ImageType is the pixel encoding of a frame.
type ImageType int

const (
	Bpp8 ImageType = iota
	Bpp8S
	Bpp16
	Bpp16S
	Bpp32
	Bpp32S
)

func (t ImageType) String() string {
	switch t {
	case Bpp8:
		return "Bpp8"
	case Bpp8S:
		return "Bpp8S"
	case Bpp16:
		return "Bpp16"
	case Bpp16S:
		return "Bpp16S"
	case Bpp32:
		return "Bpp32"
	case Bpp32S:
		return "Bpp32S"
	default:
		return fmt.Sprintf("ImageType(%d)", int(t))
	}
}

// Depth returns the number of bytes per pixel.
func (t ImageType) Depth() int {
	switch t {
	case Bpp8, Bpp8S:
		return 1
	case Bpp16, Bpp16S:
		return 2
	default:
		return 4
	}
}

// Size is a frame geometry in pixels.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether neither dimension is set.
func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// FrameDim is the geometry plus pixel encoding of one frame.
type FrameDim struct {
	Size Size
	Type ImageType
}

// MemSize is the number of bytes one frame occupies.
func (d FrameDim) MemSize() int {
	if d.Size.IsZero() {
		return 0
	}
	return d.Size.Width * d.Size.Height * d.Type.Depth()
}

// TrigMode selects how exposures are triggered.
type TrigMode int

const (
	IntTrig TrigMode = iota
	IntTrigMult
	ExtTrigSingle
	ExtTrigMult
	ExtGate
	ExtStartStop
	ExtTrigReadout
)

func (m TrigMode) String() string {
	switch m {
	case IntTrig:
		return "IntTrig"
	case IntTrigMult:
		return "IntTrigMult"
	case ExtTrigSingle:
		return "ExtTrigSingle"
	case ExtTrigMult:
		return "ExtTrigMult"
	case ExtGate:
		return "ExtGate"
	case ExtStartStop:
		return "ExtStartStop"
	case ExtTrigReadout:
		return "ExtTrigReadout"
	default:
		return fmt.Sprintf("TrigMode(%d)", int(m))
	}
}

// ValidRanges are the exposure and latency limits in seconds.
type ValidRanges struct {
	MinExpTime float64
	MaxExpTime float64
	MinLatTime float64
	MaxLatTime float64
}
