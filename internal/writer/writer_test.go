// internal/writer/writer_test.go
package writer

import (
	"errors"
	"testing"

	cfg "github.com/tamzrod/pilatus-bridge/internal/config"
)

// ---- fake endpoint client ----

type fakeEndpointClient struct {
	writes []writeCall
	fail   bool

	lastRegsAddr uint16
	lastRegs     []uint16
}

type writeCall struct {
	area   byte
	unitID uint8
	addr   uint16
	qty    int
}

func (f *fakeEndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if f.fail {
		return errors.New("link down")
	}
	f.writes = append(f.writes, writeCall{area: area, unitID: unitID, addr: addr, qty: len(regs)})
	f.lastRegsAddr = addr
	f.lastRegs = append([]uint16(nil), regs...)
	return nil
}

// ---- tests ----

func TestBuildPlan_Disabled(t *testing.T) {
	plan, err := BuildPlan("det1", cfg.StatusConfig{IntervalMs: 1000}, "300K")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status != nil {
		t.Fatalf("status must be disabled without publish")
	}

	clients, closeFn, err := BuildEndpointClient(plan, cfg.StatusConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clients) != 0 {
		t.Fatalf("expected no clients, got %d", len(clients))
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuildPlan_DeviceNameFallback(t *testing.T) {
	sc := cfg.StatusConfig{Publish: &cfg.PublishConfig{Endpoint: "plc:502", UnitID: 2, Slot: 4}}

	plan, err := BuildPlan("det1", sc, "300K")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status == nil || plan.Status.DeviceName != "300K" {
		t.Fatalf("expected detector model as device name, got %+v", plan.Status)
	}
	if plan.Status.UnitID != 2 || plan.Status.BaseSlot != 4 || plan.Status.Endpoint != "plc:502" {
		t.Fatalf("plan not copied from config: %+v", plan.Status)
	}

	sc.Publish.DeviceName = "HUTCH-A"
	plan, _ = BuildPlan("det1", sc, "300K")
	if plan.Status.DeviceName != "HUTCH-A" {
		t.Fatalf("configured device name must win, got %q", plan.Status.DeviceName)
	}
}

func TestBuildPlan_NameRequired(t *testing.T) {
	if _, err := BuildPlan("", cfg.StatusConfig{}, ""); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestEncodeDeviceNameRegs(t *testing.T) {
	got := encodeDeviceNameRegs("300K")
	want := []uint16{0x3330, 0x304B, 0, 0, 0, 0, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reg %d = %#04x, want %#04x", i, got[i], want[i])
		}
	}

	got = encodeDeviceNameRegs("\x01A0123456789ABCDEFGH")
	if got[0] != 0x3F41 {
		t.Fatalf("non-printable not replaced: %#04x", got[0])
	}
	if got[7] != 0x4344 {
		t.Fatalf("name not truncated at 16 chars: last reg %#04x", got[7])
	}
}
