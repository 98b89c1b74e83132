// internal/detinfo/detinfo.go
package detinfo

import (
	"strings"

	"github.com/tamzrod/pilatus-bridge/internal/hw"
)

const (
	// PixelSize is the Pilatus pixel pitch in meters (square pixels).
	PixelSize = 172e-6

	DetectorType = "Pilatus"
	UnknownModel = "Pilatus unknown"

	// Exposure and latency limits in seconds. Approximate values, not
	// measured against the hardware.
	MinExposure = 1e-6
	MaxExposure = 3600
	MinLatency  = 0.003
	MaxLatency  = 1 << 31
)

// Ctrl answers detector info queries from a descriptor loaded once.
type Ctrl struct {
	desc Descriptor
}

var _ hw.DetInfoCtrl = (*Ctrl)(nil)

// New wraps an already-loaded descriptor.
func New(d Descriptor) *Ctrl {
	return &Ctrl{desc: d}
}

// Open loads the descriptor at path and wraps it.
func Open(path string, mode ParseMode) (*Ctrl, error) {
	d, err := Load(path, mode)
	if err != nil {
		return nil, err
	}
	return New(d), nil
}

// Descriptor returns the loaded fields, including which ones are unset.
func (c *Ctrl) Descriptor() Descriptor { return c.desc }

// MaxImageSize returns the descriptor geometry. Unset dimensions are zero.
func (c *Ctrl) MaxImageSize() hw.Size {
	var s hw.Size
	if c.desc.Width != nil {
		s.Width = *c.desc.Width
	}
	if c.desc.Height != nil {
		s.Height = *c.desc.Height
	}
	return s
}

func (c *Ctrl) DetectorImageSize() hw.Size { return c.MaxImageSize() }

// DefImageType is Bpp32S for a 32 bit descriptor. Anything else is unsupported.
func (c *Ctrl) DefImageType() (hw.ImageType, error) {
	if c.desc.Bpp != nil && *c.desc.Bpp == 32 {
		return hw.Bpp32S, nil
	}
	if c.desc.Bpp == nil {
		return 0, hw.NotSupported("detinfo: bit depth unset")
	}
	return 0, hw.NotSupported("detinfo: bit depth %d", *c.desc.Bpp)
}

func (c *Ctrl) CurrImageType() (hw.ImageType, error) { return c.DefImageType() }

// SetCurrImageType always fails: the detector has a single readout mode.
func (c *Ctrl) SetCurrImageType(t hw.ImageType) error {
	return hw.NotSupported("detinfo: cannot change image type to %s", t)
}

func (c *Ctrl) PixelSize() (x, y float64) { return PixelSize, PixelSize }

func (c *Ctrl) DetectorType() string { return DetectorType }

// DetectorModel is the last word of the name after its first comma,
// e.g. "Dectris, Pilatus 300K" gives "300K".
func (c *Ctrl) DetectorModel() string {
	if c.desc.Name == nil {
		return UnknownModel
	}
	return modelFromName(*c.desc.Name)
}

func modelFromName(name string) string {
	if _, after, ok := strings.Cut(name, ","); ok {
		name = after
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return UnknownModel
	}
	return fields[len(fields)-1]
}

// Image size never changes, so callbacks are never invoked.

func (c *Ctrl) RegisterMaxImageSizeCallback(func(hw.Size))   {}
func (c *Ctrl) UnregisterMaxImageSizeCallback(func(hw.Size)) {}

func (c *Ctrl) MinExposureTime() float64 { return MinExposure }
func (c *Ctrl) MaxExposureTime() float64 { return MaxExposure }
func (c *Ctrl) MinLatency() float64      { return MinLatency }
func (c *Ctrl) MaxLatency() float64      { return MaxLatency }

// ValidRanges bundles the exposure and latency limits.
func (c *Ctrl) ValidRanges() hw.ValidRanges {
	return hw.ValidRanges{
		MinExpTime: MinExposure,
		MaxExpTime: MaxExposure,
		MinLatTime: MinLatency,
		MaxLatTime: MaxLatency,
	}
}
