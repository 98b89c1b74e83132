// internal/pilatus/interface.go
package pilatus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tamzrod/pilatus-bridge/internal/buffer"
	"github.com/tamzrod/pilatus-bridge/internal/camserver"
	"github.com/tamzrod/pilatus-bridge/internal/detinfo"
	"github.com/tamzrod/pilatus-bridge/internal/hw"
	"github.com/tamzrod/pilatus-bridge/internal/logging"
	"github.com/tamzrod/pilatus-bridge/internal/syncctrl"
)

// Communication is the camserver client surface the Interface drives.
type Communication interface {
	Status() camserver.State
	Connect(ctx context.Context) error
	Quit() error
	StartAcquisition(ctx context.Context, imageNumber int) error
	StopAcquisition() error
	HardReset() error
	SoftReset()
	NbAcquiredImages() int
}

// Recorder receives acquisition runs. Failures are logged, never returned.
type Recorder interface {
	StartRun(runID string, imageIndex, frames int) error
	FinishRun(runID string, frames int) error
}

// DetMask lists the detector status bits this adapter reports.
const DetMask = hw.DetExposure | hw.DetFault

// Interface adapts one camserver to the hw.Interface contract.
type Interface struct {
	comm Communication
	det  *detinfo.Ctrl
	buf  *buffer.Ctrl
	sync *syncctrl.Ctrl

	mu       sync.Mutex
	started  bool
	index    int
	recorder Recorder
	runID    string
}

var _ hw.Interface = (*Interface)(nil)

func New(comm Communication, det *detinfo.Ctrl, buf *buffer.Ctrl, sc *syncctrl.Ctrl) *Interface {
	return &Interface{comm: comm, det: det, buf: buf, sync: sc}
}

// SetRecorder installs a run recorder. Nil disables recording.
func (i *Interface) SetRecorder(r Recorder) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.recorder = r
}

func (i *Interface) CapList() []hw.Cap {
	return []hw.Cap{
		{DetInfo: i.det},
		{Sync: i.sync},
		{Buffer: i.buf},
	}
}

// Reset clears buffer and camserver errors. HardReset also resets the
// detector head first.
func (i *Interface) Reset(ctx context.Context, level hw.ResetLevel) error {
	if level == hw.HardReset {
		if err := i.comm.HardReset(); err != nil {
			return hw.Wrap(err, "hard reset")
		}
	}
	i.buf.Reset()
	i.comm.SoftReset()
	return nil
}

// PrepareAcq reconnects when needed, pushes the sync parameters and rewinds
// the image index.
func (i *Interface) PrepareAcq(ctx context.Context) error {
	if i.comm.Status() == camserver.StateDisconnected {
		if err := i.comm.Connect(ctx); err != nil {
			return hw.Wrap(err, "connect")
		}
	}

	i.buf.Reset()
	if err := i.sync.PrepareAcq(ctx); err != nil {
		return hw.Wrap(err, "prepare")
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.finishRunLocked()
	i.index = 0
	return nil
}

// StartAcq starts one sequence named after the current image index.
// The index advances only when the camserver accepted the start.
func (i *Interface) StartAcq(ctx context.Context) error {
	i.mu.Lock()
	i.started = true
	index := i.index
	i.mu.Unlock()

	if err := i.comm.StartAcquisition(ctx, index); err != nil {
		return hw.Wrap(err, "start acquisition %d", index)
	}

	i.mu.Lock()
	i.index++
	i.startRunLocked(index)
	i.mu.Unlock()

	i.buf.Start()
	return nil
}

func (i *Interface) StopAcq(ctx context.Context) error {
	err := i.comm.StopAcquisition()
	i.buf.Stop()

	i.mu.Lock()
	i.started = false
	i.finishRunLocked()
	i.mu.Unlock()

	if err != nil {
		return hw.Wrap(err, "stop acquisition")
	}
	return nil
}

// Status maps the buffer fault flag and the camserver state onto the
// host status pair. Newly finished frames are dispatched on the way.
func (i *Interface) Status() (hw.StatusType, error) {
	st := hw.StatusType{DetMask: DetMask}
	server := i.comm.Status()

	switch {
	case i.buf.IsError():
		logging.Logf("pilatus: buffer is in fault state")
		st.Det, st.Acq = hw.DetFault, hw.AcqFault

	case server == camserver.StateError:
		logging.Logf("pilatus: detector is in fault state")
		st.Det, st.Acq = hw.DetFault, hw.AcqFault

	case server != camserver.StateOK:
		st.Det, st.Acq = hw.DetExposure, hw.AcqRunning

	default:
		i.buf.Dispatch()
		st.Det = hw.DetIdle

		last := i.buf.LastAcquiredFrame()
		requested := i.sync.NbFrames()

		i.mu.Lock()
		started := i.started
		i.mu.Unlock()

		if !started || (last >= 0 && last == requested-1) {
			st.Acq = hw.AcqReady
		} else {
			st.Acq = hw.AcqRunning
		}
	}
	return st, nil
}

// NbAcquiredFrames is the number of frames the camserver finished.
func (i *Interface) NbAcquiredFrames() int {
	return i.buf.LastAcquiredFrame() + 1
}

func (i *Interface) NbHwAcquiredFrames() int { return i.NbAcquiredFrames() }

// NbRequestedFrames is the frame count PrepareAcq pushes.
func (i *Interface) NbRequestedFrames() int { return i.sync.NbFrames() }

// ImageIndex is the number the next StartAcq uses for its file name.
func (i *Interface) ImageIndex() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index
}

// ServerState is the current camserver state.
func (i *Interface) ServerState() camserver.State { return i.comm.Status() }

// DetectorModel is the model name from the detector descriptor.
func (i *Interface) DetectorModel() string { return i.det.DetectorModel() }

// Quit closes the camserver socket and stops the buffer.
func (i *Interface) Quit() error {
	i.mu.Lock()
	i.finishRunLocked()
	i.mu.Unlock()

	i.buf.Quit()
	if err := i.comm.Quit(); err != nil {
		return fmt.Errorf("pilatus: quit: %w", err)
	}
	return nil
}

func (i *Interface) Communication() Communication { return i.comm }

func (i *Interface) Buffer() *buffer.Ctrl { return i.buf }

func (i *Interface) Sync() *syncctrl.Ctrl { return i.sync }

func (i *Interface) DetInfo() *detinfo.Ctrl { return i.det }

func (i *Interface) startRunLocked(index int) {
	if i.recorder == nil {
		return
	}
	i.finishRunLocked()
	i.runID = uuid.NewString()
	if err := i.recorder.StartRun(i.runID, index, i.sync.NbFrames()); err != nil {
		logging.Logf("pilatus: record run start: %v", err)
	}
}

func (i *Interface) finishRunLocked() {
	if i.recorder == nil || i.runID == "" {
		return
	}
	if err := i.recorder.FinishRun(i.runID, i.buf.LastAcquiredFrame()+1); err != nil {
		logging.Logf("pilatus: record run finish: %v", err)
	}
	i.runID = ""
}
