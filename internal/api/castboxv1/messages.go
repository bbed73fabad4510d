// Package castboxv1 defines the castbox.v1 PlaybackService messages and their
// Connect bindings. Messages are plain structs carried by a JSON codec.
package castboxv1

// Device is a playback target from the latest registry snapshot.
type Device struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Model string `json:"model,omitempty"`
}

// QueueItem is an item to play. Exactly one of TrackRef and MediaURL is set.
type QueueItem struct {
	DeviceName string `json:"device_name"`
	TrackRef   string `json:"track_ref,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	AddedAt    string `json:"added_at,omitempty"` // RFC 3339
}

// Status is a snapshot of the controller and its surroundings.
type Status struct {
	State           string     `json:"state"`
	SessionID       string     `json:"session_id,omitempty"`
	DeviceName      string     `json:"device_name,omitempty"`
	CurrentItem     *QueueItem `json:"current_item,omitempty"`
	Kind            string     `json:"kind,omitempty"`
	Backend         string     `json:"backend,omitempty"`
	StartedAt       string     `json:"started_at,omitempty"`
	StopRequestedAt string     `json:"stop_requested_at,omitempty"`
	SkipRequested   bool       `json:"skip_requested"`
	AdvanceOnStop   bool       `json:"advance_on_stop"`
	QueueSize       int        `json:"queue_size"`
	DeviceCount     int        `json:"device_count"`
	LastScan        string     `json:"last_scan,omitempty"`
	SubscriberCount int        `json:"subscriber_count"`
}

// Notification types.
const (
	NotificationTypeInitialState = "initial_state"
)

// Notification is pushed to subscribers whenever the controller emits an
// event. Type carries the event name, or NotificationTypeInitialState for the
// first message of a subscription.
type Notification struct {
	SequenceNo uint64 `json:"sequence_no"`
	Type       string `json:"type"`
	State      string `json:"state"`
	SessionID  string `json:"session_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	Title      string `json:"title,omitempty"`
	QueueSize  int    `json:"queue_size"`
	Time       string `json:"time"` // RFC 3339
}

// Folder is a library directory.
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// File is a library audio file.
type File struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

type ListDevicesRequest struct{}

type ListDevicesResponse struct {
	Devices  []*Device `json:"devices"`
	LastScan string    `json:"last_scan,omitempty"`
}

type ListQueueRequest struct{}

type ListQueueResponse struct {
	Items []*QueueItem `json:"items"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Status *Status `json:"status"`
}

type PlayNowRequest struct {
	Item *QueueItem `json:"item"`
}

type PlayNowResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type EnqueueRequest struct {
	Item *QueueItem `json:"item"`
}

type EnqueueResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	QueueSize int    `json:"queue_size"`
}

// EnqueueFolderRequest queues every audio file of a library folder.
// Path is relative to the media root.
type EnqueueFolderRequest struct {
	DeviceName string `json:"device_name"`
	Path       string `json:"path"`
}

type EnqueueFolderResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Added     int    `json:"added"`
	QueueSize int    `json:"queue_size"`
}

type NextRequest struct{}

type NextResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StopRequest struct{}

type StopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type BrowseRequest struct {
	Path string `json:"path"`
}

type BrowseResponse struct {
	Path    string    `json:"path"`
	Parent  string    `json:"parent"`
	Folders []*Folder `json:"folders"`
	Files   []*File   `json:"files"`
}

type SubscribeNotificationsRequest struct{}
