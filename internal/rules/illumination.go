package rules

import (
	"sync"

	"github.com/cfern/casa-central/internal/gpio"
)

// Illumination turns the lighting output on below a threshold and off at
// or above it. No hysteresis, no delay: output is purely a function of
// the latest reading.
type Illumination struct {
	mu        sync.Mutex
	out       gpio.Output
	threshold int
	on        bool
}

// NewIllumination creates the rule. The output is assumed to start low.
func NewIllumination(out gpio.Output, threshold int) *Illumination {
	return &Illumination{out: out, threshold: threshold}
}

// HandleReading evaluates one reading and drives the output. The level
// is written on every sample; a Change is returned only on transitions.
func (r *Illumination) HandleReading(v int) (*Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := v < r.threshold
	if err := r.out.Set(want); err != nil {
		return nil, err
	}

	if want == r.on {
		return nil, nil
	}
	r.on = want
	return &Change{Actuator: ActuatorLights, On: want, Reason: ReasonThreshold}, nil
}

// On reports the current output level.
func (r *Illumination) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}
