// internal/status/constants.go
package status

// Detector status block layout constants.
// These values define the published register map and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per detector block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the bridge health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code (hw error code, 1 if unknown).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the bridge has been in error.
const SlotSecondsInError = 2

// SlotDetStatus holds the hw.DetStatus bits.
const SlotDetStatus = 3

// SlotAcqStatus holds the hw.AcqStatus value.
const SlotAcqStatus = 4

// SlotFramesAcquiredHi and Lo hold the acquired frame count (32 bit, big-endian word order).
const (
	SlotFramesAcquiredHi = 5
	SlotFramesAcquiredLo = 6
)

// SlotFramesRequestedHi and Lo hold the requested frame count.
const (
	SlotFramesRequestedHi = 7
	SlotFramesRequestedLo = 8
)

// SlotServerState holds the camserver state code.
const SlotServerState = 9

// Slot 10 is reserved.
const SlotReserved = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

const (
	HealthUnknown  uint16 = 0
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3
	HealthDisabled uint16 = 4
)
