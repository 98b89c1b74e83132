// internal/writer/writer.go
package writer

// endpointClient is the exact contract the writer uses.
// writer/modbus.EndpointClient satisfies it; tests use a fake.
type endpointClient interface {
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

// statusAreaHoldingRegisters is the Modbus area status blocks are written to.
const statusAreaHoldingRegisters byte = 3
