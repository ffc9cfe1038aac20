// Package rules contains the actuator control logic: an illumination
// threshold rule and a temperature hysteresis rule with delayed shutoff.
//
// Each rule instance has two writers: the event-dispatch goroutine (on
// incoming readings) and, for the temperature rule, the periodic shutoff
// checker. A per-rule mutex covers every read-modify-write so the checker
// never fires on a timestamp the event handler is clearing.
package rules

// Actuator names used in confirmation messages.
const (
	ActuatorLights = "luzes"
	ActuatorHVAC   = "ar_condicionado"
)

// State change reasons used in confirmation messages.
const (
	ReasonThreshold  = "limiar"
	ReasonHysteresis = "histerese"
	ReasonTimer      = "temporizador"
	ReasonManual     = "manual"
)

// Change describes an actuator transition, for confirmation publishing.
type Change struct {
	Actuator string
	On       bool
	Reason   string
}

func stateWord(on bool) string {
	if on {
		return "ligado"
	}
	return "desligado"
}

// StateWord returns the wire word for an output level.
func (c Change) StateWord() string { return stateWord(c.On) }
