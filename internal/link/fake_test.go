package link

import (
	"errors"
	"testing"
)

func TestFakeLinkState(t *testing.T) {
	f := NewFakeLink(-55)

	up, err := f.State()
	if err != nil || up {
		t.Errorf("State: got (%v, %v), want (false, nil)", up, err)
	}

	f.SetUp(true)
	up, err = f.State()
	if err != nil || !up {
		t.Errorf("State after SetUp: got (%v, %v), want (true, nil)", up, err)
	}
}

func TestFakeLinkSignal(t *testing.T) {
	f := NewFakeLink(-62)

	v, err := f.SignalStrength()
	if err != nil || v != -62 {
		t.Errorf("SignalStrength: got (%d, %v), want (-62, nil)", v, err)
	}

	f.SignalErr = errors.New("radio gone")
	v, err = f.SignalStrength()
	if err == nil {
		t.Error("expected scripted error")
	}
	if v != SignalNone {
		t.Errorf("failed query must return SignalNone, got %d", v)
	}
}

func TestFakeLinkConnectCounts(t *testing.T) {
	f := NewFakeLink(0)
	for i := 0; i < 3; i++ {
		if err := f.Connect(); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	if f.ConnectCalls != 3 {
		t.Errorf("ConnectCalls: got %d, want 3", f.ConnectCalls)
	}
}
