// Package track provides the queue item domain entity.
package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind is the playback kind derived from an item's shape.
type Kind string

const (
	KindInvalid   Kind = ""
	KindStreaming Kind = "streaming" // played by the streaming service
	KindFile      Kind = "file"      // played from a media URL
)

// ErrInvalidItem is returned when an item has neither or both of TrackRef and MediaURL.
var ErrInvalidItem = errors.New("item must set exactly one of track ref or media url")

// Item represents one entry in the playback queue.
type Item struct {
	DeviceName string    // Target device name
	TrackRef   string    // Streaming-service URI (spotify:track:..., spotify:album:...)
	MediaURL   string    // Directly fetchable media URL
	Title      string    // Display title
	Artist     string    // Artist name, if known
	Album      string    // Album name, if known
	AddedAt    time.Time // Time when added to queue
}

// Kind returns the playback kind implied by the item's shape.
func (i Item) Kind() Kind {
	hasRef := strings.TrimSpace(i.TrackRef) != ""
	hasURL := strings.TrimSpace(i.MediaURL) != ""
	switch {
	case hasRef && !hasURL:
		return KindStreaming
	case hasURL && !hasRef:
		return KindFile
	default:
		return KindInvalid
	}
}

// Validate checks that the item can be dispatched.
func (i Item) Validate() error {
	if i.Kind() == KindInvalid {
		return ErrInvalidItem
	}
	return nil
}

// IsTrackURI reports whether the reference points at a single track rather than
// a context such as an album or playlist.
func (i Item) IsTrackURI() bool {
	return strings.HasPrefix(i.TrackRef, "spotify:track:")
}

// DisplayTitle returns the title or a fallback derived from the reference.
func (i Item) DisplayTitle() string {
	if i.Title != "" {
		return i.Title
	}
	if i.TrackRef != "" {
		return i.TrackRef
	}
	return i.MediaURL
}

// SameTarget reports whether two items would play the same content on the same device.
func (i Item) SameTarget(other Item) bool {
	return i.DeviceName == other.DeviceName &&
		i.TrackRef == other.TrackRef &&
		i.MediaURL == other.MediaURL
}
