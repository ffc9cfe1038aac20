package gpio

import (
	"errors"
	"testing"
)

func TestFakeOutputRecordsWrites(t *testing.T) {
	f := NewFakeOutput()

	for _, on := range []bool{true, true, false, true} {
		if err := f.Set(on); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if !f.Level() {
		t.Error("Level: got false, want true")
	}
	want := []bool{true, true, false, true}
	if len(f.Writes) != len(want) {
		t.Fatalf("Writes: got %d entries, want %d", len(f.Writes), len(want))
	}
	for i, w := range want {
		if f.Writes[i] != w {
			t.Errorf("Writes[%d]: got %v, want %v", i, f.Writes[i], w)
		}
	}
}

func TestFakeOutputSetError(t *testing.T) {
	f := NewFakeOutput()
	f.SetErr = errors.New("line stuck")

	if err := f.Set(true); err == nil {
		t.Error("expected scripted error")
	}
	if f.Level() {
		t.Error("failed Set must not change the level")
	}
	if len(f.Writes) != 0 {
		t.Error("failed Set must not be recorded")
	}
}

func TestFakeOutputClose(t *testing.T) {
	f := NewFakeOutput()
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.Closed {
		t.Error("Closed not set")
	}
}
