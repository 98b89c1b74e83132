// internal/config/normalize.go
package config

import "github.com/tamzrod/pilatus-bridge/internal/camserver"

// Defaults applied by Normalize.
const (
	DefaultHost           = "localhost"
	DefaultTimeoutMs      = 10000
	DefaultImagePath      = "/ramdisk/images/"
	DefaultFilePattern    = "image_%.5d.cbf"
	DefaultDescriptorPath = "/home/det/p2_det/config/cam_data/camera.def"
	DefaultParseMode      = "lenient"
	DefaultIntervalMs     = 1000
	DefaultPublishTimeout = 1000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	cs := &b.Camserver
	if cs.Host == "" {
		cs.Host = DefaultHost
	}
	if cs.Port == 0 {
		cs.Port = camserver.DefaultPort
	}
	if cs.TimeoutMs == 0 {
		cs.TimeoutMs = DefaultTimeoutMs
	}
	if cs.ImagePath == "" {
		cs.ImagePath = DefaultImagePath
	}
	if cs.FilePattern == "" {
		cs.FilePattern = DefaultFilePattern
	}

	if b.Descriptor.Path == "" {
		b.Descriptor.Path = DefaultDescriptorPath
	}
	if b.Descriptor.ParseMode == "" {
		b.Descriptor.ParseMode = DefaultParseMode
	}

	if b.Status.IntervalMs == 0 {
		b.Status.IntervalMs = DefaultIntervalMs
	}

	// Publishing is opt-in; only trim what was given.
	if p := b.Status.Publish; p != nil {
		if p.TimeoutMs == 0 {
			p.TimeoutMs = DefaultPublishTimeout
		}
		// Truncate to max 16 characters (ASCII already validated)
		if len(p.DeviceName) > 16 {
			p.DeviceName = p.DeviceName[:16]
		}
	}
}
