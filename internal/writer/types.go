// internal/writer/types.go
package writer

// StatusPlan is where one detector status block lives.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16 // block index; register address = BaseSlot * SlotsPerDevice
	DeviceName string
}

// Plan is the fully-built write plan for one bridge.
// A nil Status means publishing is disabled.
type Plan struct {
	Name   string
	Status *StatusPlan
}
