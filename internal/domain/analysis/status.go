package analysis

import (
	"errors"
	"fmt"
)

// Status enum
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusSearching Status = "SEARCHING"
	StatusAnalyzing Status = "ANALYZING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists every allowed move. COMPLETED is reachable from the
// resting states because selecting a stored report displays it directly.
var transitions = map[Status][]Status{
	StatusIdle:      {StatusSearching, StatusCompleted},
	StatusSearching: {StatusAnalyzing, StatusError},
	StatusAnalyzing: {StatusCompleted, StatusError},
	StatusCompleted: {StatusSearching, StatusIdle, StatusCompleted},
	StatusError:     {StatusSearching, StatusIdle, StatusCompleted},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns to, or ErrInvalidTransition wrapped with both states.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// InFlight is true while a generation call or its post-processing is running.
func (s Status) InFlight() bool {
	return s == StatusSearching || s == StatusAnalyzing
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}
