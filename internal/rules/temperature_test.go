package rules

import (
	"testing"
	"time"

	"github.com/cfern/casa-central/internal/gpio"
)

func tempRule(out gpio.Output) *Temperature {
	return NewTemperature(out, 23, 20, 10*time.Minute)
}

func TestTemperatureHysteresisTurnsOn(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	ch, err := r.HandleReading(25, now)
	if err != nil {
		t.Fatal(err)
	}
	if ch == nil || !ch.On || ch.Actuator != ActuatorHVAC || ch.Reason != ReasonHysteresis {
		t.Fatalf("high reading: got %+v", ch)
	}
	if !out.Level() {
		t.Error("output should be ON after high reading")
	}

	// A second high reading is not a transition.
	ch, _ = r.HandleReading(26, now.Add(time.Minute))
	if ch != nil {
		t.Errorf("repeated high reading must not report a change, got %+v", ch)
	}
}

func TestTemperatureDelayedShutoff(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	r.HandleReading(25, now)

	// Low readings at one minute spacing. The first arms the
	// countdown; the rest must not re-arm it.
	for i := 1; i <= 3; i++ {
		r.HandleReading(19, now.Add(time.Duration(i)*time.Minute))
	}
	_, armedAt := r.Status()
	if !armedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("countdown armed at %v, want %v (first low reading)", armedAt, now.Add(time.Minute))
	}

	// Just short of the delay: still on.
	armed := now.Add(time.Minute)
	if ch, _ := r.CheckShutoff(armed.Add(10*time.Minute - time.Second)); ch != nil {
		t.Fatalf("shutoff fired early: %+v", ch)
	}
	if !out.Level() {
		t.Fatal("output should still be ON before the delay elapses")
	}

	ch, err := r.CheckShutoff(armed.Add(10 * time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if ch == nil || ch.On || ch.Reason != ReasonTimer {
		t.Fatalf("shutoff: got %+v", ch)
	}
	if out.Level() {
		t.Error("output should be OFF after shutoff")
	}
	if on, armedAt := r.Status(); on || !armedAt.IsZero() {
		t.Errorf("state after shutoff: on=%v armed=%v", on, armedAt)
	}
}

func TestTemperatureBandReadingCancelsCountdown(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	r.HandleReading(25, now)
	r.HandleReading(19, now.Add(time.Minute))
	r.HandleReading(21, now.Add(2*time.Minute)) // back in the band

	if _, armedAt := r.Status(); !armedAt.IsZero() {
		t.Fatalf("band reading should cancel the countdown, armed at %v", armedAt)
	}
	if ch, _ := r.CheckShutoff(now.Add(time.Hour)); ch != nil {
		t.Errorf("cancelled countdown still fired: %+v", ch)
	}
	if !out.Level() {
		t.Error("output should remain ON")
	}
}

func TestTemperatureHighReadingCancelsCountdown(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	r.HandleReading(25, now)
	r.HandleReading(19, now.Add(time.Minute))
	r.HandleReading(24, now.Add(2*time.Minute))

	if _, armedAt := r.Status(); !armedAt.IsZero() {
		t.Fatalf("high reading should cancel the countdown, armed at %v", armedAt)
	}
}

func TestTemperatureLowReadingWhileOffDoesNotArm(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	r.HandleReading(19, now)
	if out.Level() {
		t.Error("low reading must not switch the output on")
	}
	if _, armedAt := r.Status(); !armedAt.IsZero() {
		t.Error("countdown must not arm while the output is off")
	}
}

func TestTemperatureStaleTimerClearedWhenOff(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	r.HandleReading(25, now)
	r.HandleReading(19, now.Add(time.Minute))

	// Out-of-band shutoff while the countdown is armed.
	ch, err := r.ForceSet(false)
	if err != nil {
		t.Fatal(err)
	}
	if ch == nil || ch.On || ch.Reason != ReasonManual {
		t.Fatalf("manual off: got %+v", ch)
	}

	// The checker must not act on the leftover timestamp, and the
	// next on-cycle starts with a clean countdown.
	if ch, _ := r.CheckShutoff(now.Add(time.Hour)); ch != nil {
		t.Errorf("stale timer fired: %+v", ch)
	}
	r.HandleReading(25, now.Add(2*time.Hour))
	if on, armedAt := r.Status(); !on || !armedAt.IsZero() {
		t.Errorf("fresh on-cycle: on=%v armed=%v", on, armedAt)
	}
}

func TestTemperatureForceSet(t *testing.T) {
	out := gpio.NewFakeOutput()
	r := tempRule(out)

	ch, _ := r.ForceSet(true)
	if ch == nil || !ch.On || ch.Reason != ReasonManual {
		t.Fatalf("manual on: got %+v", ch)
	}
	if ch, _ := r.ForceSet(true); ch != nil {
		t.Errorf("repeated manual on must not report a change, got %+v", ch)
	}
	if !out.Level() {
		t.Error("output should be ON")
	}
}
