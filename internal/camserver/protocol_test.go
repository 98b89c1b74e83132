// internal/camserver/protocol_test.go
package camserver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		in   string
		want Reply
		ok   bool
	}{
		{
			in:   "15 OK Exposure time set to: 1.000000 sec.",
			want: Reply{Code: 15, OK: true, Text: "Exposure time set to: 1.000000 sec.", Raw: "15 OK Exposure time set to: 1.000000 sec."},
			ok:   true,
		},
		{
			in:   "\n7 ERR *** killing exposure\r\n",
			want: Reply{Code: 7, OK: false, Text: "*** killing exposure", Raw: "7 ERR *** killing exposure"},
			ok:   true,
		},
		{
			in:   "13 OK",
			want: Reply{Code: 13, OK: true, Raw: "13 OK"},
			ok:   true,
		},
		{
			in:   "10 /ramdisk/images/",
			want: Reply{Code: 10, OK: false, Text: "/ramdisk/images/", Raw: "10 /ramdisk/images/"},
			ok:   true,
		},
		{in: "", ok: false},
		{in: "hello world", ok: false},
	}

	for _, tt := range tests {
		got, ok := Decode(tt.in)
		require.Equal(t, tt.ok, ok, "Decode(%q)", tt.in)
		if !ok {
			continue
		}
		if d := cmp.Diff(tt.want, got); d != "" {
			t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.in, d)
		}
	}
}

func TestThresholdSettings(t *testing.T) {
	gain, thr, ok := thresholdSettings("Settings: mid gain; threshold: 6300 eV; vcmp: 0.654 V")
	require.True(t, ok)
	assert.Equal(t, MidGain, gain)
	assert.Equal(t, 6300, thr)

	gain, thr, ok = thresholdSettings("Settings: ultra high gain; threshold: 4000 eV; vcmp: 0.2 V")
	require.True(t, ok)
	assert.Equal(t, UltraHighGain, gain)
	assert.Equal(t, 4000, thr)

	_, _, ok = thresholdSettings("Settings: nothing useful")
	assert.False(t, ok)
}

func TestDecodeTH(t *testing.T) {
	text := "Channel 0: Temperature = 30.9C, Rel. Humidity = 28.3%\n" +
		"Channel 1: Temperature = 27.1C, Rel. Humidity = 20.0%\n" +
		"garbage line"

	temp, hum := decodeTH(text)
	assert.Equal(t, []float64{30.9, 27.1}, temp)
	assert.Equal(t, []float64{28.3, 20.0}, hum)
}

func TestParseGain(t *testing.T) {
	for in, want := range map[string]Gain{
		"low":        LowGain,
		"midG":       MidGain,
		"HIGH":       HighGain,
		"uhighG":     UltraHighGain,
		"ultra high": UltraHighGain,
		"":           DefaultGain,
	} {
		got, ok := ParseGain(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseGain("loud")
	assert.False(t, ok)
}

func TestTriggerModeStartCommand(t *testing.T) {
	assert.Equal(t, "exposure", InternalSingle.startCommand())
	assert.Equal(t, "exposure", InternalMulti.startCommand())
	assert.Equal(t, "exttrigger", ExternalStart.startCommand())
	assert.Equal(t, "extmtrigger", ExternalMultiStart.startCommand())
	assert.Equal(t, "extenable", ExternalGate.startCommand())
}

func applyText(c *Client, records ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range records {
		r, ok := Decode(rec)
		if ok {
			c.applyLocked(r)
		}
	}
}

func withState(c *Client, s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func TestApply_SettersUpdateCache(t *testing.T) {
	c := New(Config{})
	withState(c, StateSettingExposure)

	applyText(c,
		"15 OK Exposure time set to: 0.500000 sec.",
		"15 OK Exposure period set to: 0.510000 sec",
		"15 OK N images set to: 10",
		"15 OK Delay time set to: 0.001000 sec",
		"15 OK Exposures per frame set to: 2",
		"15 OK Energy setting: 12000 eV",
		"15 OK Settings: high gain; threshold: 7000 eV; vcmp: 0.3 V",
		"10 OK /data/run1/",
	)

	assert.Equal(t, StateOK, c.Status())
	assert.Equal(t, 0.5, c.Exposure())
	assert.Equal(t, 0.51, c.ExposurePeriod())
	assert.Equal(t, 10, c.NbImagesInSequence())
	assert.Equal(t, 0.001, c.HardwareTriggerDelay())
	assert.Equal(t, 2, c.NbExposurePerFrame())
	assert.Equal(t, 12000.0, c.Energy())
	assert.Equal(t, HighGain, c.Gain())
	assert.Equal(t, 7000, c.Threshold())
	assert.Equal(t, "/data/run1/", c.Imgpath())
}

func TestApply_SettlingReturnsToOK(t *testing.T) {
	c := New(Config{})
	withState(c, StateSettingNbImages)
	applyText(c, "15 OK N images set to: 3")
	assert.Equal(t, StateOK, c.Status())
}

func TestApply_RunningIgnoresAcks(t *testing.T) {
	c := New(Config{})
	withState(c, StateRunning)
	applyText(c, "15 OK Exposure time set to: 1.0 sec.")
	assert.Equal(t, StateRunning, c.Status())
}

func TestApply_ExposureDone(t *testing.T) {
	c := New(Config{})
	applyText(c, "15 OK N images set to: 4")
	withState(c, StateRunning)

	applyText(c, "7 OK /ramdisk/images/image_00000.cbf")
	assert.Equal(t, StateOK, c.Status())
	assert.Equal(t, 4, c.NbAcquiredImages())
}

func TestApply_KillingExposureIsNotAnError(t *testing.T) {
	c := New(Config{})
	withState(c, StateKilling)
	applyText(c, "7 ERR *** killing exposure")
	assert.Equal(t, StateOK, c.Status())
	assert.Empty(t, c.ErrorMessage())
}

func TestApply_ErrorIsSticky(t *testing.T) {
	c := New(Config{})
	withState(c, StateSettingEnergy)

	applyText(c, "15 ERR /tmp/setthreshold: invalid energy")
	assert.Equal(t, StateError, c.Status())
	assert.Equal(t, "/tmp/setthreshold: invalid energy", c.ErrorMessage())

	applyText(c, "13 OK", "15 OK N images set to: 9")
	assert.Equal(t, StateError, c.Status())
	assert.Equal(t, 1, c.NbImagesInSequence())

	c.SoftReset()
	assert.Equal(t, StateDisconnected, c.Status(), "soft reset without a socket")
	assert.Empty(t, c.ErrorMessage())
}

func TestApply_EnergyFailureClearsThreshold(t *testing.T) {
	c := New(Config{})
	applyText(c,
		"15 OK Settings: low gain; threshold: 5000 eV; vcmp: 0.1 V",
		"15 OK Energy setting: unknown",
	)
	assert.Equal(t, -1.0, c.Energy())
	assert.Equal(t, -1, c.Threshold())
	assert.Equal(t, DefaultGain, c.Gain())
}

func TestApply_TemperatureReply(t *testing.T) {
	c := New(Config{})
	withState(c, StateReadingTH)
	applyText(c, "215 OK Channel 0: Temperature = 24.5C, Rel. Humidity = 2.0%\n")
	assert.Equal(t, StateOK, c.Status())

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, []float64{24.5}, c.temperature)
	assert.Equal(t, []float64{2.0}, c.humidity)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ok", StateOK.String())
	assert.Equal(t, "setting-threshold", StateSettingThreshold.String())
	assert.Equal(t, "State(99)", State(99).String())
}
