// internal/pilatus/interface_test.go
package pilatus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/pilatus-bridge/internal/buffer"
	"github.com/tamzrod/pilatus-bridge/internal/camserver"
	"github.com/tamzrod/pilatus-bridge/internal/detinfo"
	"github.com/tamzrod/pilatus-bridge/internal/hw"
	"github.com/tamzrod/pilatus-bridge/internal/syncctrl"
)

// fakeComm stands in for the camserver client.
type fakeComm struct {
	state    camserver.State
	acquired int
	startErr error

	connects   int
	starts     []int
	stops      int
	hardResets int
	softResets int
	nImages    int
}

func (f *fakeComm) Status() camserver.State { return f.state }

func (f *fakeComm) Connect(context.Context) error {
	f.connects++
	f.state = camserver.StateOK
	return nil
}

func (f *fakeComm) Quit() error {
	f.state = camserver.StateDisconnected
	return nil
}

func (f *fakeComm) StartAcquisition(_ context.Context, n int) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, n)
	return nil
}

func (f *fakeComm) StopAcquisition() error { f.stops++; return nil }
func (f *fakeComm) HardReset() error { f.hardResets++; return nil }
func (f *fakeComm) SoftReset() { f.softResets++ }
func (f *fakeComm) NbAcquiredImages() int { return f.acquired }

func (f *fakeComm) SetTriggerMode(camserver.TriggerMode) {}
func (f *fakeComm) SetExposure(context.Context, float64) error { return nil }
func (f *fakeComm) SetExposurePeriod(context.Context, float64) error { return nil }
func (f *fakeComm) SetNbImages(_ context.Context, n int) error { f.nImages = n; return nil }

type fakeRecorder struct {
	started  []string
	finished map[string]int
}

func (r *fakeRecorder) StartRun(id string, _, _ int) error {
	r.started = append(r.started, id)
	return nil
}

func (r *fakeRecorder) FinishRun(id string, frames int) error {
	if r.finished == nil {
		r.finished = map[string]int{}
	}
	r.finished[id] = frames
	return nil
}

func intp(v int) *int { return &v }

func newInterface(comm *fakeComm, desc detinfo.Descriptor) *Interface {
	det := detinfo.New(desc)
	buf := buffer.New(comm, det, 0)
	sc := syncctrl.New(comm, det.ValidRanges())
	return New(comm, det, buf, sc)
}

func geometry() detinfo.Descriptor {
	return detinfo.Descriptor{Width: intp(487), Height: intp(195), Bpp: intp(32)}
}

func TestCapList(t *testing.T) {
	i := newInterface(&fakeComm{}, geometry())
	caps := i.CapList()
	require.Len(t, caps, 3)
	assert.NotNil(t, caps[0].DetInfo)
	assert.NotNil(t, caps[1].Sync)
	assert.NotNil(t, caps[2].Buffer)
}

func TestPrepareAcq_ReconnectsOnlyWhenDisconnected(t *testing.T) {
	comm := &fakeComm{state: camserver.StateDisconnected}
	i := newInterface(comm, geometry())
	require.NoError(t, i.Sync().SetNbHwFrames(4))

	require.NoError(t, i.PrepareAcq(context.Background()))
	assert.Equal(t, 1, comm.connects)
	assert.Equal(t, 4, comm.nImages)

	require.NoError(t, i.PrepareAcq(context.Background()))
	assert.Equal(t, 1, comm.connects)
}

func TestImageIndex(t *testing.T) {
	comm := &fakeComm{state: camserver.StateOK}
	i := newInterface(comm, geometry())
	ctx := context.Background()

	require.NoError(t, i.PrepareAcq(ctx))
	for n := 0; n < 3; n++ {
		require.NoError(t, i.StartAcq(ctx))
		require.NoError(t, i.StopAcq(ctx))
	}
	assert.Equal(t, []int{0, 1, 2}, comm.starts)
	assert.Equal(t, 3, i.ImageIndex())

	// Reset and stop leave the index alone; only PrepareAcq rewinds it.
	require.NoError(t, i.Reset(ctx, hw.SoftReset))
	assert.Equal(t, 3, i.ImageIndex())

	require.NoError(t, i.PrepareAcq(ctx))
	assert.Equal(t, 0, i.ImageIndex())
	require.NoError(t, i.StartAcq(ctx))
	assert.Equal(t, []int{0, 1, 2, 0}, comm.starts)
}

func TestStartAcq_FailureKeepsIndex(t *testing.T) {
	comm := &fakeComm{state: camserver.StateOK, startErr: camserver.ErrBusy}
	i := newInterface(comm, geometry())

	err := i.StartAcq(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, camserver.ErrBusy))
	assert.True(t, errors.Is(err, hw.ErrHardware))
	assert.Equal(t, 0, i.ImageIndex())
}

func TestReset(t *testing.T) {
	comm := &fakeComm{state: camserver.StateOK}
	i := newInterface(comm, detinfo.Descriptor{})
	ctx := context.Background()

	require.NoError(t, i.StartAcq(ctx))
	require.True(t, i.Buffer().IsError(), "start without geometry faults the buffer")

	require.NoError(t, i.Reset(ctx, hw.SoftReset))
	assert.Equal(t, 0, comm.hardResets)
	assert.Equal(t, 1, comm.softResets)
	assert.False(t, i.Buffer().IsError())

	require.NoError(t, i.Reset(ctx, hw.HardReset))
	assert.Equal(t, 1, comm.hardResets)
	assert.Equal(t, 2, comm.softResets)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name        string
		bufferFault bool
		server      camserver.State
		started     bool
		acquired    int
		requested   int
		wantDet     hw.DetStatus
		wantAcq     hw.AcqStatus
	}{
		{name: "buffer fault wins", bufferFault: true, server: camserver.StateOK, wantDet: hw.DetFault, wantAcq: hw.AcqFault},
		{name: "buffer fault over running", bufferFault: true, server: camserver.StateRunning, wantDet: hw.DetFault, wantAcq: hw.AcqFault},
		{name: "server error", server: camserver.StateError, wantDet: hw.DetFault, wantAcq: hw.AcqFault},
		{name: "server running", server: camserver.StateRunning, started: true, wantDet: hw.DetExposure, wantAcq: hw.AcqRunning},
		{name: "server setting", server: camserver.StateSettingExposure, wantDet: hw.DetExposure, wantAcq: hw.AcqRunning},
		{name: "disconnected", server: camserver.StateDisconnected, wantDet: hw.DetExposure, wantAcq: hw.AcqRunning},
		{name: "idle not started", server: camserver.StateOK, requested: 5, wantDet: hw.DetIdle, wantAcq: hw.AcqReady},
		{name: "all frames done", server: camserver.StateOK, started: true, acquired: 5, requested: 5, wantDet: hw.DetIdle, wantAcq: hw.AcqReady},
		{name: "frames missing", server: camserver.StateOK, started: true, acquired: 3, requested: 5, wantDet: hw.DetIdle, wantAcq: hw.AcqRunning},
		{name: "nothing acquired yet", server: camserver.StateOK, started: true, acquired: 0, requested: 1, wantDet: hw.DetIdle, wantAcq: hw.AcqRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := geometry()
			if tt.bufferFault {
				desc = detinfo.Descriptor{}
			}
			comm := &fakeComm{state: camserver.StateOK}
			i := newInterface(comm, desc)
			if tt.requested > 0 {
				require.NoError(t, i.Sync().SetNbHwFrames(tt.requested))
			}
			if tt.started || tt.bufferFault {
				require.NoError(t, i.StartAcq(context.Background()))
			}
			if !tt.started {
				i.mu.Lock()
				i.started = false
				i.mu.Unlock()
			}
			comm.state = tt.server
			comm.acquired = tt.acquired

			st, err := i.Status()
			require.NoError(t, err)
			assert.Equal(t, tt.wantDet, st.Det)
			assert.Equal(t, tt.wantAcq, st.Acq)
			assert.Equal(t, hw.DetExposure|hw.DetFault, st.DetMask)
		})
	}
}

func TestNbAcquiredFrames(t *testing.T) {
	comm := &fakeComm{state: camserver.StateOK}
	i := newInterface(comm, geometry())

	assert.Equal(t, 0, i.NbAcquiredFrames())
	comm.acquired = 7
	assert.Equal(t, 7, i.NbAcquiredFrames())
	assert.Equal(t, 7, i.NbHwAcquiredFrames())
}

func TestStatus_DispatchesFrames(t *testing.T) {
	comm := &fakeComm{state: camserver.StateOK}
	i := newInterface(comm, geometry())

	var frames []int
	i.Buffer().RegisterFrameCallback(func(fi hw.FrameInfo) bool {
		frames = append(frames, fi.AcqFrameNb)
		return true
	})

	require.NoError(t, i.StartAcq(context.Background()))
	comm.state = camserver.StateRunning
	_, _ = i.Status()
	assert.Empty(t, frames)

	comm.state = camserver.StateOK
	comm.acquired = 2
	_, _ = i.Status()
	assert.Equal(t, []int{0, 1}, frames)
}

func TestRecorder(t *testing.T) {
	comm := &fakeComm{state: camserver.StateOK}
	i := newInterface(comm, geometry())
	rec := &fakeRecorder{}
	i.SetRecorder(rec)
	ctx := context.Background()

	require.NoError(t, i.StartAcq(ctx))
	comm.acquired = 1
	require.NoError(t, i.StopAcq(ctx))

	require.Len(t, rec.started, 1)
	assert.Len(t, rec.started[0], 36)
	assert.Equal(t, map[string]int{rec.started[0]: 1}, rec.finished)

	require.NoError(t, i.StartAcq(ctx))
	require.NoError(t, i.Quit())
	require.Len(t, rec.started, 2)
	assert.NotEqual(t, rec.started[0], rec.started[1])
	assert.Contains(t, rec.finished, rec.started[1])
}
