// internal/camserver/state.go
package camserver

import "strconv"

// State is the camserver connection and activity state.
//
// Disconnected, OK and Error are the health tokens callers compare against.
// Every other state means a command or exposure is in progress.
type State int

const (
	StateDisconnected State = iota
	StateOK
	StateError
	StateRunning
	StateKilling
	StateSettingEnergy
	StateSettingThreshold
	StateSettingExposure
	StateSettingNbImages
	StateSettingExposurePeriod
	StateSettingTriggerDelay
	StateSettingExposurePerFrame
	StateReadingTH
	StateAnyCommand
)

var stateNames = [...]string{
	StateDisconnected:            "disconnected",
	StateOK:                      "ok",
	StateError:                   "error",
	StateRunning:                 "running",
	StateKilling:                 "killing",
	StateSettingEnergy:           "setting-energy",
	StateSettingThreshold:        "setting-threshold",
	StateSettingExposure:         "setting-exposure",
	StateSettingNbImages:         "setting-nb-images",
	StateSettingExposurePeriod:   "setting-exposure-period",
	StateSettingTriggerDelay:     "setting-trigger-delay",
	StateSettingExposurePerFrame: "setting-exposure-per-frame",
	StateReadingTH:               "reading-th",
	StateAnyCommand:              "any-command",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// settling reports whether s waits for a plain acknowledgement.
func (s State) settling() bool {
	switch s {
	case StateSettingEnergy, StateSettingThreshold, StateSettingExposure,
		StateSettingNbImages, StateSettingExposurePeriod, StateSettingTriggerDelay,
		StateSettingExposurePerFrame, StateAnyCommand:
		return true
	}
	return false
}
