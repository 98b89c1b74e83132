// internal/status/encode.go
package status

// Encode converts a Snapshot into a full status block without the device name.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotDetStatus] = s.DetStatus
	regs[SlotAcqStatus] = s.AcqStatus
	regs[SlotFramesAcquiredHi], regs[SlotFramesAcquiredLo] = split32(s.FramesAcquired)
	regs[SlotFramesRequestedHi], regs[SlotFramesRequestedLo] = split32(s.FramesRequested)
	regs[SlotServerState] = s.ServerState

	return regs
}

func split32(v uint32) (hi, lo uint16) {
	return uint16(v >> 16), uint16(v)
}
