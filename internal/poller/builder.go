// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/pilatus-bridge/internal/config"
)

// Build constructs a Poller from the status section of the config.
// Normalize must have run so the interval is set.
func Build(name string, sc cfg.StatusConfig, src Source) (*Poller, error) {
	return New(
		Config{
			Name:     name,
			Interval: time.Duration(sc.IntervalMs) * time.Millisecond,
		},
		src,
	)
}
