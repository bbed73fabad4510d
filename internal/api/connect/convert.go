package connect

import (
	"time"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	"github.com/osa030/castbox/internal/app/session"
	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/media"
	"github.com/osa030/castbox/internal/domain/track"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toDevice(d device.Device) *castboxv1.Device {
	return &castboxv1.Device{
		Name:  d.Name,
		Kind:  string(d.Kind),
		Model: d.Model,
	}
}

func toQueueItem(item track.Item) *castboxv1.QueueItem {
	return &castboxv1.QueueItem{
		DeviceName: item.DeviceName,
		TrackRef:   item.TrackRef,
		MediaURL:   item.MediaURL,
		Title:      item.Title,
		Artist:     item.Artist,
		Album:      item.Album,
		AddedAt:    formatTime(item.AddedAt),
	}
}

// fromQueueItem converts a request item. AddedAt is assigned by the server.
func fromQueueItem(item *castboxv1.QueueItem) track.Item {
	return track.Item{
		DeviceName: item.DeviceName,
		TrackRef:   item.TrackRef,
		MediaURL:   item.MediaURL,
		Title:      item.Title,
		Artist:     item.Artist,
		Album:      item.Album,
	}
}

func toStatus(st session.Status) *castboxv1.Status {
	pb := st.Playback
	out := &castboxv1.Status{
		State:           pb.State.String(),
		SessionID:       pb.SessionID,
		DeviceName:      pb.DeviceName,
		Kind:            string(pb.Kind),
		Backend:         pb.Backend,
		StartedAt:       formatTime(pb.StartedAt),
		StopRequestedAt: formatTime(pb.StopRequestedAt),
		SkipRequested:   pb.SkipRequested,
		AdvanceOnStop:   pb.AdvanceOnStop,
		QueueSize:       st.QueueSize,
		DeviceCount:     st.DeviceCount,
		LastScan:        formatTime(st.LastScan),
		SubscriberCount: st.SubscriberCount,
	}
	if pb.SessionID != "" {
		out.CurrentItem = toQueueItem(pb.Item)
	}
	return out
}

func toBrowseResponse(l *media.Listing) *castboxv1.BrowseResponse {
	resp := &castboxv1.BrowseResponse{
		Path:    l.Path,
		Parent:  l.Parent,
		Folders: make([]*castboxv1.Folder, 0, len(l.Folders)),
		Files:   make([]*castboxv1.File, 0, len(l.Files)),
	}
	for _, f := range l.Folders {
		resp.Folders = append(resp.Folders, &castboxv1.Folder{Name: f.Name, Path: f.Path})
	}
	for _, f := range l.Files {
		resp.Files = append(resp.Files, &castboxv1.File{Name: f.Name, Path: f.Path, Title: f.Title})
	}
	return resp
}
