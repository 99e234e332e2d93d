// Package statemachine implements the debounced per-zone open/closed/
// unknown state machine and its left-open timer.
package statemachine

import "time"

// ZoneState is the semantic state of a single zone.
type ZoneState string

const (
	Unknown ZoneState = "unknown"
	Open    ZoneState = "open"
	Closed  ZoneState = "closed"
)

// Output carries the events (if any) produced by one Update call.
type Output struct {
	TransitionEvent string // "" if no state transition occurred
	LeftOpenEvent   string // "" unless the left-open timer just fired
}

// Machine is a single zone's debounced state machine. N consecutive
// observations of the same non-unknown state are required before the
// machine actually transitions; unknown observations never themselves
// transition the machine, but they are still tracked as their own
// debounce run (see Update).
type Machine struct {
	ZoneName        string
	OpenEvent       string
	CloseEvent      string
	LeftOpenEvent   string
	LeftOpenSeconds float64
	OpenRequired    int
	ClosedRequired  int

	state           ZoneState
	candidate       ZoneState
	hasCandidate    bool
	candidateCount  int
	openSince       time.Time
	hasOpenSince    bool
	leftOpenEmitted bool
}

// New builds a Machine starting in the unknown state, with the
// reference implementation's default debounce depth of 3.
func New(zoneName, openEvent, closeEvent, leftOpenEvent string, leftOpenSeconds float64) *Machine {
	return &Machine{
		ZoneName:        zoneName,
		OpenEvent:       openEvent,
		CloseEvent:      closeEvent,
		LeftOpenEvent:   leftOpenEvent,
		LeftOpenSeconds: leftOpenSeconds,
		OpenRequired:    3,
		ClosedRequired:  3,
		state:           Unknown,
	}
}

// State returns the machine's current settled state.
func (m *Machine) State() ZoneState {
	return m.state
}

// Update feeds one new observation into the machine at timestamp ts.
//
// An unknown observation never drives a transition; it only advances
// its own candidate run (so consecutive unknowns don't keep resetting
// each other) and still re-checks the left-open timer against whatever
// state the machine is already settled in. Because there is a single
// candidate slot, an unknown observation does end an in-progress open or
// closed run: the next open/closed observation starts counting from 1.
func (m *Machine) Update(observed ZoneState, ts time.Time) Output {
	if observed == Unknown {
		if m.hasCandidate && m.candidate == Unknown {
			m.candidateCount++
		} else {
			m.candidate = Unknown
			m.hasCandidate = true
			m.candidateCount = 1
		}
		return Output{LeftOpenEvent: m.checkLeftOpen(ts)}
	}

	if m.hasCandidate && m.candidate == observed {
		m.candidateCount++
	} else {
		m.candidate = observed
		m.hasCandidate = true
		m.candidateCount = 1
	}

	required := m.ClosedRequired
	if observed == Open {
		required = m.OpenRequired
	}

	var transitionEvent string
	if m.candidateCount >= required && m.state != observed {
		m.state = observed
		switch observed {
		case Open:
			m.openSince = ts
			m.hasOpenSince = true
			m.leftOpenEmitted = false
			transitionEvent = m.OpenEvent
		case Closed:
			m.hasOpenSince = false
			m.leftOpenEmitted = false
			transitionEvent = m.CloseEvent
		}
	}

	return Output{TransitionEvent: transitionEvent, LeftOpenEvent: m.checkLeftOpen(ts)}
}

func (m *Machine) checkLeftOpen(ts time.Time) string {
	if m.state != Open {
		return ""
	}
	if !m.hasOpenSince {
		m.openSince = ts
		m.hasOpenSince = true
		return ""
	}
	if m.leftOpenEmitted {
		return ""
	}
	if ts.Sub(m.openSince).Seconds() >= m.LeftOpenSeconds {
		m.leftOpenEmitted = true
		return m.LeftOpenEvent
	}
	return ""
}
