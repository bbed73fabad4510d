// Package state provides the server lifecycle state.
package state

// Phase represents the server lifecycle phase.
type Phase int

const (
	PhaseStarting   Phase = iota // Components built, loops not running yet
	PhaseActive                  // Loops running, requests served
	PhaseTerminated              // Shut down
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// AcceptingState represents whether playback requests are being accepted.
type AcceptingState int

const (
	NotAccepting AcceptingState = iota // Not accepting requests
	Accepting                          // Accepting requests
)

// String returns the string representation of the accepting state.
func (a AcceptingState) String() string {
	switch a {
	case NotAccepting:
		return "not_accepting"
	case Accepting:
		return "accepting"
	default:
		return "unknown"
	}
}
