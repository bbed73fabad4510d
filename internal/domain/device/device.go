// Package device provides the Device domain entity.
package device

// Kind is the family of a playback device.
type Kind string

const (
	KindCast      Kind = "cast"      // Chromecast-style receiver
	KindSpeaker   Kind = "speaker"   // Sonos-style networked speaker
	KindStreaming Kind = "streaming" // Device registered with the streaming service
)

// Device is a playback target discovered during a scan.
// Name is the unique key within a snapshot.
type Device struct {
	Name string
	Kind Kind
	// Handle is what the backend needs to reach the device: a host:port for
	// cast receivers, a control base URL for speakers, a device ID for streaming.
	Handle string
	// Model is informational only.
	Model string
}

// Valid reports whether the kind is one of the known families.
func (k Kind) Valid() bool {
	switch k {
	case KindCast, KindSpeaker, KindStreaming:
		return true
	}
	return false
}

// Snapshot indexes devices by name; later entries replace earlier ones.
func Snapshot(devices ...[]Device) map[string]Device {
	out := make(map[string]Device)
	for _, list := range devices {
		for _, d := range list {
			out[d.Name] = d
		}
	}
	return out
}
