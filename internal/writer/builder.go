// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/pilatus-bridge/internal/config"
	wmodbus "github.com/tamzrod/pilatus-bridge/internal/writer/modbus"
)

// BuildPlan converts the status section into a write Plan.
// deviceName is used when the config sets none, typically the detector model.
// Assumes config has already passed Validate and Normalize.
func BuildPlan(name string, sc cfg.StatusConfig, deviceName string) (Plan, error) {
	if name == "" {
		return Plan{}, errors.New("writer: name required")
	}

	plan := Plan{Name: name}
	if sc.Publish == nil {
		return plan, nil
	}

	p := sc.Publish
	if p.DeviceName != "" {
		deviceName = p.DeviceName
	}
	plan.Status = &StatusPlan{
		Endpoint:   p.Endpoint,
		UnitID:     p.UnitID,
		BaseSlot:   p.Slot,
		DeviceName: deviceName,
	}
	return plan, nil
}

// BuildEndpointClient connects to the status endpoint of plan.
// The returned closer is a no-op when publishing is disabled.
func BuildEndpointClient(plan Plan, sc cfg.StatusConfig) (map[string]endpointClient, func() error, error) {
	clients := make(map[string]endpointClient)
	if plan.Status == nil || sc.Publish == nil {
		return clients, func() error { return nil }, nil
	}

	c, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: plan.Status.Endpoint,
		Timeout:  time.Duration(sc.Publish.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}
	clients[plan.Status.Endpoint] = c
	return clients, c.Close, nil
}
