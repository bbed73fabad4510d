// Package playback provides the controller that owns the single playback
// session and drives autoplay from the queue.
package playback

// State represents the controller state.
type State int

const (
	StateIdle     State = iota // No session
	StatePlaying               // Session live, not stopping
	StateStopping              // Stop requested, waiting for the device to confirm
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
