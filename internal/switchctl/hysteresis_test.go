package switchctl

import (
	"testing"
	"time"
)

func testThresholds() Thresholds {
	return Thresholds{
		DayBrightness:   70,
		NightBrightness: 50,
		DwellDown:       1 * time.Second,
		DwellUp:         10 * time.Second,
		PollDay:         250 * time.Millisecond,
		PollNight:       5 * time.Second,
	}
}

func TestHysteresisFirstSampleCommitsImmediately(t *testing.T) {
	h := NewHysteresis(testThresholds())
	now := time.Now()
	state, changed := h.Observe(120, now)
	if !changed || state != StateDay {
		t.Fatalf("first bright sample should commit Day immediately: state=%v changed=%v", state, changed)
	}
}

func TestHysteresisStartCommitsWithoutDwell(t *testing.T) {
	h := NewHysteresis(testThresholds())
	h.Start(StateDay)
	if h.State() != StateDay {
		t.Fatalf("Start should commit the given state, got %v", h.State())
	}
}

func TestHysteresisDayToNightRequiresFullDwell(t *testing.T) {
	h := NewHysteresis(testThresholds())
	base := time.Now()
	h.Observe(120, base)  // commits Day
	h.Observe(30, base)   // darkness candidate starts now

	// Sub-dwell darkness: must not switch.
	state, changed := h.Observe(30, base.Add(500*time.Millisecond))
	if changed || state != StateDay {
		t.Fatalf("sub-dwell darkness must not switch: state=%v changed=%v", state, changed)
	}

	// Exactly at/after the dwell window (measured from when the candidate
	// first started qualifying): must switch.
	state, changed = h.Observe(30, base.Add(1*time.Second))
	if !changed || state != StateNight {
		t.Fatalf("full dwell darkness must switch to Night: state=%v changed=%v", state, changed)
	}
}

func TestHysteresisBriefDipDoesNotSwitch(t *testing.T) {
	h := NewHysteresis(testThresholds())
	base := time.Now()
	h.Observe(120, base) // Day

	h.Observe(40, base.Add(100*time.Millisecond))
	state, changed := h.Observe(120, base.Add(600*time.Millisecond))
	if changed {
		t.Fatalf("a brief dip that recovers before the dwell window must not switch")
	}
	if state != StateDay {
		t.Fatalf("state should remain Day after a suppressed dip, got %v", state)
	}
}

func TestHysteresisNightToDayRequiresLongDwell(t *testing.T) {
	h := NewHysteresis(testThresholds())
	h.Start(StateNight)
	base := time.Now()
	h.Observe(100, base) // brightening candidate starts now

	state, changed := h.Observe(100, base.Add(9*time.Second))
	if changed || state != StateNight {
		t.Fatalf("9s of brightness is under the 10s up-dwell and must not switch yet")
	}

	state, changed = h.Observe(100, base.Add(10*time.Second))
	if !changed || state != StateDay {
		t.Fatalf("10s of sustained brightness must switch back to Day: state=%v changed=%v", state, changed)
	}
}

func TestHysteresisCandidateResetsOnReversal(t *testing.T) {
	h := NewHysteresis(testThresholds())
	base := time.Now()
	h.Observe(120, base) // Day

	h.Observe(30, base.Add(200*time.Millisecond))  // candidate Night, 200ms in
	h.Observe(120, base.Add(400*time.Millisecond)) // reverses to Day-qualifying, resets candidate
	state, changed := h.Observe(30, base.Add(600*time.Millisecond))
	if changed {
		t.Fatalf("candidate dwell must restart after a reversal, got an early switch")
	}
	if state != StateDay {
		t.Fatalf("state should still be Day mid-candidate, got %v", state)
	}
}

func TestPollIntervalAdaptsToState(t *testing.T) {
	h := NewHysteresis(testThresholds())
	h.Start(StateDay)
	if got := h.PollInterval(); got != 250*time.Millisecond {
		t.Fatalf("Day poll interval = %v, want 250ms", got)
	}
	h.Start(StateNight)
	if got := h.PollInterval(); got != 5*time.Second {
		t.Fatalf("Night poll interval = %v, want 5s", got)
	}
}
