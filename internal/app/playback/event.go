package playback

import (
	"time"

	"github.com/osa030/castbox/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventDispatched     EventType = iota // A session was created and play was issued
	EventStopRequested                   // Stop or next was requested on a live session
	EventStopped                         // The device confirmed the stop
	EventStopTimedOut                    // The device never confirmed; advanced anyway
	EventTrackFinished                   // The device stopped on its own
	EventDeviceNotFound                  // Dispatch target is not in the registry
	EventInvalidItem                     // Dispatch aborted on a malformed or unsupported item
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventDispatched:
		return "dispatched"
	case EventStopRequested:
		return "stop_requested"
	case EventStopped:
		return "stopped"
	case EventStopTimedOut:
		return "stop_timed_out"
	case EventTrackFinished:
		return "track_finished"
	case EventDeviceNotFound:
		return "device_not_found"
	case EventInvalidItem:
		return "invalid_item"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	SessionID  string // Empty when no session was involved
	DeviceName string
	Item       track.Item
	State      State // Controller state after the event
	Time       time.Time
}
