package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/castbox/internal/infra/config"
)

func TestTopics(t *testing.T) {
	tests := []struct {
		name   string
		topics Topics
		want   string
	}{
		{"default prefix", Topics{}, "castbox/playback/state"},
		{"custom prefix", Topics{Prefix: "home/audio"}, "home/audio/playback/state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.topics.PlaybackState())
		})
	}

	assert.Equal(t, "x/system/status", Topics{Prefix: "x"}.Status())
	assert.Equal(t, "x/playback/event", Topics{Prefix: "x"}.PlaybackEvent())
	assert.Equal(t, "x/devices", Topics{Prefix: "x"}.Devices())
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: config.MQTTConfig{QoS: 1}}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "a/b", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClose_NoClient(t *testing.T) {
	c := &Client{}
	assert.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestStatusPayload(t *testing.T) {
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(statusPayload("offline", "castbox", "graceful_shutdown")), &body))
	assert.Equal(t, "offline", body["status"])
	assert.Equal(t, "castbox", body["client_id"])
	assert.Equal(t, "graceful_shutdown", body["reason"])

	require.NoError(t, json.Unmarshal([]byte(statusPayload("online", "castbox", "")), &body))
	assert.Equal(t, "online", body["status"])
}
