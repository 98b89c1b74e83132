// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// helper to build a config quickly
func bridge(mut func(b *BridgeConfig)) *Config {
	cfg := &Config{
		Bridge: BridgeConfig{
			Camserver: CamserverConfig{
				Host: "det1",
				Port: 41234,
			},
			Descriptor: DescriptorConfig{
				Path:      "/tmp/camera.def",
				ParseMode: "strict",
			},
		},
	}
	if mut != nil {
		mut(&cfg.Bridge)
	}
	return cfg
}

func publish(endpoint string, slot uint16) *PublishConfig {
	return &PublishConfig{Endpoint: endpoint, UnitID: 1, Slot: slot}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	if err := Validate(bridge(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := bridge(func(b *BridgeConfig) { b.Camserver.Port = 70000 })
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected port error, got nil")
	}
}

func TestValidate_BadParseMode(t *testing.T) {
	cfg := bridge(func(b *BridgeConfig) { b.Descriptor.ParseMode = "forgiving" })
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected parse mode error, got nil")
	}
}

func TestValidate_FilePatternNeedsOneVerb(t *testing.T) {
	for _, p := range []string{"image.cbf", "image_%d_%d.cbf"} {
		cfg := bridge(func(b *BridgeConfig) { b.Camserver.FilePattern = p })
		if err := Validate(cfg); err == nil {
			t.Fatalf("pattern %q: expected error, got nil", p)
		}
	}
}

func TestValidate_PublishEndpointRequired(t *testing.T) {
	cfg := bridge(func(b *BridgeConfig) { b.Status.Publish = publish("", 0) })
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected endpoint error, got nil")
	}

	cfg = bridge(func(b *BridgeConfig) { b.Status.Publish = publish("no-port", 0) })
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected host:port error, got nil")
	}
}

func TestValidate_PublishSlotRange(t *testing.T) {
	cfg := bridge(func(b *BridgeConfig) { b.Status.Publish = publish("plc:502", 3275) })
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg = bridge(func(b *BridgeConfig) { b.Status.Publish = publish("plc:502", 3276) })
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected slot range error, got nil")
	}
}

func TestValidate_DeviceNameASCII(t *testing.T) {
	cfg := bridge(func(b *BridgeConfig) {
		b.Status.Publish = publish("plc:502", 0)
		b.Status.Publish.DeviceName = "détecteur"
	})
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected ascii error, got nil")
	}
}

func TestValidate_JournalPath(t *testing.T) {
	cfg := bridge(func(b *BridgeConfig) { b.Journal = &JournalConfig{} })
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected journal path error, got nil")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.Bridge.Status.Publish = &PublishConfig{Endpoint: "plc:502", DeviceName: "PILATUS-300K-BEAMLINE"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	cs := cfg.Bridge.Camserver
	if cs.Host != "localhost" || cs.Port != 41234 || cs.TimeoutMs != 10000 {
		t.Fatalf("camserver defaults not applied: %+v", cs)
	}
	if cs.ImagePath != "/ramdisk/images/" || cs.FilePattern != "image_%.5d.cbf" {
		t.Fatalf("naming defaults not applied: %+v", cs)
	}
	if cfg.Bridge.Descriptor.ParseMode != "lenient" {
		t.Fatalf("parse mode default not applied: %q", cfg.Bridge.Descriptor.ParseMode)
	}
	if cfg.Bridge.Status.IntervalMs != 1000 {
		t.Fatalf("interval default not applied: %d", cfg.Bridge.Status.IntervalMs)
	}
	if got := cfg.Bridge.Status.Publish.DeviceName; got != "PILATUS-300K-BEA" {
		t.Fatalf("device name not truncated: %q", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	doc := `
bridge:
  camserver:
    host: det1
    port: 41234
    temperature_max: [35, 36]
  descriptor:
    path: /etc/camera.def
    parse_mode: strict
  status:
    interval_ms: 500
    publish:
      endpoint: plc:502
      unit_id: 3
      slot: 2
  journal:
    path: bridge.db
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Bridge.Camserver.Host != "det1" || len(cfg.Bridge.Camserver.TemperatureMax) != 2 {
		t.Fatalf("camserver not decoded: %+v", cfg.Bridge.Camserver)
	}
	if p := cfg.Bridge.Status.Publish; p == nil || p.UnitID != 3 || p.Slot != 2 {
		t.Fatalf("publish not decoded: %+v", p)
	}
	if cfg.Bridge.Journal == nil || cfg.Bridge.Journal.Path != "bridge.db" {
		t.Fatalf("journal not decoded: %+v", cfg.Bridge.Journal)
	}
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("bridge:\n  camserver:\n    hots: det1\n"))
	if err == nil || !strings.Contains(err.Error(), "hots") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}
