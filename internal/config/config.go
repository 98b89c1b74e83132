// internal/config/config.go
package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	Camserver  CamserverConfig  `yaml:"camserver"`
	Descriptor DescriptorConfig `yaml:"descriptor"`
	Buffer     BufferConfig     `yaml:"buffer"`
	Status     StatusConfig     `yaml:"status"`
	Journal    *JournalConfig   `yaml:"journal"` // optional
}

// ---- CAMSERVER ----

type CamserverConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TimeoutMs int    `yaml:"timeout_ms"`

	ImagePath   string `yaml:"image_path"`
	FilePattern string `yaml:"file_pattern"` // printf style, e.g. image_%05d.cbf

	// Per-channel limits checked before each start (optional)
	TemperatureMax []float64 `yaml:"temperature_max"`
	HumidityMax    []float64 `yaml:"humidity_max"`
}

// ---- DESCRIPTOR ----

type DescriptorConfig struct {
	Path      string `yaml:"path"`
	ParseMode string `yaml:"parse_mode"` // lenient | strict
}

// ---- BUFFER ----

type BufferConfig struct {
	MaxBuffers int `yaml:"max_buffers"`
}

// ---- STATUS ----

type StatusConfig struct {
	IntervalMs int            `yaml:"interval_ms"`
	Publish    *PublishConfig `yaml:"publish"` // optional Modbus status block
}

type PublishConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	DeviceName string `yaml:"device_name"` // defaults to the detector model
}

// ---- JOURNAL ----

type JournalConfig struct {
	Path string `yaml:"path"`
}
