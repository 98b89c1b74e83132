// internal/hw/interface.go
package hw

import "context"

// DetInfoCtrl exposes detector identity and geometry.
type DetInfoCtrl interface {
	MaxImageSize() Size
	DetectorImageSize() Size

	DefImageType() (ImageType, error)
	CurrImageType() (ImageType, error)
	SetCurrImageType(t ImageType) error

	PixelSize() (x, y float64)
	DetectorType() string
	DetectorModel() string

	RegisterMaxImageSizeCallback(cb func(Size))
	UnregisterMaxImageSizeCallback(cb func(Size))
}

// SyncCtrl holds trigger and timing parameters.
type SyncCtrl interface {
	CheckTrigMode(m TrigMode) bool
	SetTrigMode(m TrigMode) error
	TrigMode() TrigMode

	SetExpTime(seconds float64) error
	ExpTime() float64

	SetLatTime(seconds float64) error
	LatTime() float64

	SetNbHwFrames(n int) error
	NbHwFrames() int

	ValidRanges() ValidRanges
}

// FrameInfo describes one frame handed to a frame callback.
type FrameInfo struct {
	AcqFrameNb int
	Dim        FrameDim
}

// BufferCtrl holds frame buffer parameters.
type BufferCtrl interface {
	SetFrameDim(d FrameDim)
	FrameDim() FrameDim

	SetNbBuffers(n int) error
	NbBuffers() int

	SetNbConcatFrames(n int) error
	NbConcatFrames() int

	MaxNbBuffers() int

	RegisterFrameCallback(cb func(FrameInfo) bool)
	UnregisterFrameCallback()
}

// Cap is one capability advertised by an Interface.
// Exactly one field is non-nil.
type Cap struct {
	DetInfo DetInfoCtrl
	Sync    SyncCtrl
	Buffer  BufferCtrl
}

// Interface is the acquisition contract the host drives.
// The host calls lifecycle methods serially.
type Interface interface {
	CapList() []Cap
	Reset(ctx context.Context, level ResetLevel) error
	PrepareAcq(ctx context.Context) error
	StartAcq(ctx context.Context) error
	StopAcq(ctx context.Context) error
	Status() (StatusType, error)
	NbHwAcquiredFrames() int
}
