package switchctl

import "time"

// State is the switch controller's active-camera state.
type State int

const (
	StateUninitialised State = iota
	StateDay
	StateNight
)

func (s State) String() string {
	switch s {
	case StateDay:
		return "DAY"
	case StateNight:
		return "NIGHT"
	default:
		return "UNINITIALISED"
	}
}

// Thresholds parameterises the hysteresis state machine.
type Thresholds struct {
	DayBrightness   uint8 // at/above this, day is eligible
	NightBrightness uint8 // at/below this, night is eligible
	DwellDown       time.Duration // short dwell before dropping to night
	DwellUp         time.Duration // long dwell before rising back to day
	PollDay         time.Duration // poll cadence while in Day
	PollNight       time.Duration // poll cadence while in Night
}

// Hysteresis tracks brightness samples and decides when to switch the
// active camera, with asymmetric dwell windows: night is entered
// quickly (a brief dark spell should not be second-guessed) but day is
// only re-entered after sustained brightness, to avoid flapping on a
// momentary highlight.
type Hysteresis struct {
	thresholds Thresholds
	state      State

	candidate      State
	candidateSince time.Time
}

// NewHysteresis creates a state machine starting Uninitialised.
func NewHysteresis(t Thresholds) *Hysteresis {
	return &Hysteresis{thresholds: t, state: StateUninitialised}
}

// Start commits the initial state without a dwell window (spec §4.4:
// "At start-up, set state to the preferred initial camera, write the
// corresponding index to the control region, then enter the poll loop").
func (h *Hysteresis) Start(initial State) {
	h.state = initial
	h.candidate = StateUninitialised
}

// State returns the current committed state.
func (h *Hysteresis) State() State {
	return h.state
}

// PollInterval returns the cadence the caller should next sample
// brightness at, adaptive to the current state (spec §4.4: "250ms while
// Day, 5s while Night").
func (h *Hysteresis) PollInterval() time.Duration {
	if h.state == StateNight {
		return h.thresholds.PollNight
	}
	return h.thresholds.PollDay
}

// Observe feeds a new brightness sample at time now and returns the
// resulting state plus whether it just changed.
func (h *Hysteresis) Observe(brightness uint8, now time.Time) (State, bool) {
	wantsDay := brightness >= h.thresholds.DayBrightness
	wantsNight := brightness <= h.thresholds.NightBrightness

	if h.state == StateUninitialised {
		// First sample commits immediately; no dwell window applies
		// before the system has ever picked an active camera.
		if wantsDay {
			h.state = StateDay
			return h.state, true
		}
		h.state = StateNight
		return h.state, true
	}

	switch {
	case h.state == StateDay && wantsNight:
		return h.trackCandidate(StateNight, h.thresholds.DwellDown, now)
	case h.state == StateNight && wantsDay:
		return h.trackCandidate(StateDay, h.thresholds.DwellUp, now)
	default:
		h.candidate = StateUninitialised
		return h.state, false
	}
}

func (h *Hysteresis) trackCandidate(target State, dwell time.Duration, now time.Time) (State, bool) {
	if h.candidate != target {
		h.candidate = target
		h.candidateSince = now
		return h.state, false
	}
	if now.Sub(h.candidateSince) >= dwell {
		h.state = target
		h.candidate = StateUninitialised
		return h.state, true
	}
	return h.state, false
}
