package mqtt

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

func (t Topics) base() string {
	if t.Prefix == "" {
		return "castbox"
	}
	return t.Prefix
}

// Status is the retained online/offline topic.
func (t Topics) Status() string { return t.base() + "/system/status" }

// PlaybackState is the retained topic holding the latest playback state.
func (t Topics) PlaybackState() string { return t.base() + "/playback/state" }

// PlaybackEvent carries one message per playback event.
func (t Topics) PlaybackEvent() string { return t.base() + "/playback/event" }

// Devices is the retained topic holding the latest device snapshot.
func (t Topics) Devices() string { return t.base() + "/devices" }
