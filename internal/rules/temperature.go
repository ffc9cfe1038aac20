package rules

import (
	"sync"
	"time"

	"github.com/cfern/casa-central/internal/gpio"
)

// Temperature drives the HVAC output with hysteresis and a delayed
// shutoff. Readings above the high threshold switch the output on;
// readings below the low threshold arm a countdown, and the periodic
// checker switches the output off once the countdown has run for the
// configured delay without being cancelled.
//
// The countdown is armed only by the first qualifying low reading;
// subsequent low readings neither re-arm nor extend it. Readings inside
// the band or above the high threshold cancel it. This reproduces the
// installed behavior, which treats a single excursion back into the band
// as "conditions recovered".
type Temperature struct {
	mu       sync.Mutex
	out      gpio.Output
	high     int
	low      int
	delay    time.Duration
	on       bool
	lowSince time.Time // zero = countdown not armed; nonzero only while on
}

// NewTemperature creates the rule. The output is assumed to start low.
func NewTemperature(out gpio.Output, high, low int, delay time.Duration) *Temperature {
	return &Temperature{out: out, high: high, low: low, delay: delay}
}

// HandleReading evaluates one reading. A Change is returned only when
// the output level actually transitions.
func (r *Temperature) HandleReading(v int, now time.Time) (*Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case v > r.high:
		r.lowSince = time.Time{}
		if r.on {
			return nil, nil
		}
		if err := r.out.Set(true); err != nil {
			return nil, err
		}
		r.on = true
		return &Change{Actuator: ActuatorHVAC, On: true, Reason: ReasonHysteresis}, nil

	case v < r.low:
		if !r.on {
			r.lowSince = time.Time{}
			return nil, nil
		}
		if r.lowSince.IsZero() {
			r.lowSince = now
		}
		return nil, nil

	default:
		// Inside the band: cancel any pending shutoff.
		r.lowSince = time.Time{}
		return nil, nil
	}
}

// CheckShutoff enforces the countdown. Called by the periodic checker.
// If the output is off, any leftover countdown is cleared so a stale
// timer cannot survive an out-of-band shutoff.
func (r *Temperature) CheckShutoff(now time.Time) (*Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.on {
		r.lowSince = time.Time{}
		return nil, nil
	}
	if r.lowSince.IsZero() {
		return nil, nil
	}
	if now.Sub(r.lowSince) < r.delay {
		return nil, nil
	}

	if err := r.out.Set(false); err != nil {
		return nil, err
	}
	r.on = false
	r.lowSince = time.Time{}
	return &Change{Actuator: ActuatorHVAC, On: false, Reason: ReasonTimer}, nil
}

// ForceSet applies a manual override. Turning the output off clears any
// armed countdown.
func (r *Temperature) ForceSet(on bool) (*Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !on {
		r.lowSince = time.Time{}
	}
	if on == r.on {
		return nil, nil
	}
	if err := r.out.Set(on); err != nil {
		return nil, err
	}
	r.on = on
	return &Change{Actuator: ActuatorHVAC, On: on, Reason: ReasonManual}, nil
}

// Status returns the output level and the countdown start time
// (zero when unarmed).
func (r *Temperature) Status() (on bool, lowSince time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on, r.lowSince
}
