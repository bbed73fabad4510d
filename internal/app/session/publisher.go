package session

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/infra/mqtt"
)

// MQTTClient is the part of the MQTT client the publisher uses.
type MQTTClient interface {
	Topics() mqtt.Topics
	PublishDefault(topic string, payload []byte, retained bool) error
}

// MQTTPublisher publishes every event to the event topic and keeps the latest
// state and device list retained on their topics.
type MQTTPublisher struct {
	client MQTTClient
}

// NewMQTTPublisher creates a publisher on top of a connected client.
func NewMQTTPublisher(client MQTTClient) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

type playbackStatePayload struct {
	State      string `json:"state"`
	SessionID  string `json:"session_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	Title      string `json:"title,omitempty"`
	QueueSize  int    `json:"queue_size"`
	Time       string `json:"time"`
}

// PublishNotification implements Publisher.
func (p *MQTTPublisher) PublishNotification(n *castboxv1.Notification) error {
	topics := p.client.Topics()

	event, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "failed to encode playback event")
	}
	if err := p.client.PublishDefault(topics.PlaybackEvent(), event, false); err != nil {
		return err
	}

	st, err := json.Marshal(playbackStatePayload{
		State:      n.State,
		SessionID:  n.SessionID,
		DeviceName: n.DeviceName,
		Title:      n.Title,
		QueueSize:  n.QueueSize,
		Time:       n.Time,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode playback state")
	}
	return p.client.PublishDefault(topics.PlaybackState(), st, true)
}

// PublishDevices implements Publisher.
func (p *MQTTPublisher) PublishDevices(devices []device.Device) error {
	list := make([]castboxv1.Device, 0, len(devices))
	for _, d := range devices {
		list = append(list, castboxv1.Device{Name: d.Name, Kind: string(d.Kind), Model: d.Model})
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return errors.Wrap(err, "failed to encode devices")
	}
	return p.client.PublishDefault(p.client.Topics().Devices(), payload, true)
}
