package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/castbox/internal/app/session/registry"
	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/track"
)

type mockDevices map[string]device.Device

func (m mockDevices) Get(name string) (device.Device, error) {
	d, ok := m[name]
	if !ok {
		return device.Device{}, registry.ErrDeviceNotFound
	}
	return d, nil
}

type mockQueue struct {
	items []track.Item
}

func (m *mockQueue) Len() int           { return len(m.items) }
func (m *mockQueue) List() []track.Item { return m.items }

func TestItemShapeFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		item         track.Item
		wantAccepted bool
	}{
		{"track ref only", track.Item{TrackRef: "spotify:track:1"}, true},
		{"media url only", track.Item{MediaURL: "http://h/a.mp3"}, true},
		{"neither", track.Item{Title: "x"}, false},
		{"both", track.Item{TrackRef: "spotify:track:1", MediaURL: "http://h/a.mp3"}, false},
	}

	f := &ItemShapeFilter{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), Request{Item: tt.item})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "invalid_item", result.Code)
			}
		})
	}
}

func TestKnownDeviceFilter_Check(t *testing.T) {
	f := NewKnownDeviceFilter(mockDevices{"Kitchen": {Name: "Kitchen", Kind: device.KindCast}})

	assert.True(t, f.Check(context.Background(), Request{Item: track.Item{DeviceName: "Kitchen"}}).Accepted)
	assert.Equal(t, Reject("device_not_found"), f.Check(context.Background(), Request{Item: track.Item{DeviceName: "Garage"}}))

	// Unwired filter accepts everything.
	assert.True(t, (&KnownDeviceFilter{}).Check(context.Background(), Request{}).Accepted)
}

func TestQueueLimitFilter(t *testing.T) {
	q := &mockQueue{items: make([]track.Item, 2)}
	f := NewQueueLimitFilter(q)

	// Without config every request is accepted.
	assert.True(t, f.Check(context.Background(), Request{Kind: RequestEnqueue}).Accepted)

	require.NoError(t, f.ValidateConfig(map[string]any{"max_items": 2}))
	assert.Equal(t, Reject("queue_full"), f.Check(context.Background(), Request{Kind: RequestEnqueue}))

	q.items = q.items[:1]
	assert.True(t, f.Check(context.Background(), Request{Kind: RequestEnqueue}).Accepted)
}

func TestQueueLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
		wantMax  int
	}{
		{"defaults", nil, false, 100},
		{"explicit", map[string]any{"max_items": 5}, false, 5},
		{"string value", map[string]any{"max_items": "7"}, false, 7},
		{"zero is replaced by default", map[string]any{"max_items": 0}, false, 100},
		{"negative", map[string]any{"max_items": -1}, true, 0},
		{"not a number", map[string]any{"max_items": "many"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewQueueLimitFilter(nil)
			err := f.ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, f.config.MaxItems)
		})
	}
}

func TestDuplicateItemFilter_Check(t *testing.T) {
	q := &mockQueue{items: []track.Item{
		{DeviceName: "Kitchen", TrackRef: "spotify:track:abc", Title: "Bohemian Rhapsody", Artist: "Queen"},
		{DeviceName: "Kitchen", MediaURL: "http://h/stream/a.mp3", Title: "a"},
	}}
	f := NewDuplicateItemFilter(q)

	tests := []struct {
		name         string
		item         track.Item
		wantAccepted bool
	}{
		{
			name:         "same track ref on same device",
			item:         track.Item{DeviceName: "Kitchen", TrackRef: "spotify:track:abc"},
			wantAccepted: false,
		},
		{
			name:         "same media url on same device",
			item:         track.Item{DeviceName: "Kitchen", MediaURL: "http://h/stream/a.mp3"},
			wantAccepted: false,
		},
		{
			name:         "same track ref on another device",
			item:         track.Item{DeviceName: "Living", TrackRef: "spotify:track:abc"},
			wantAccepted: true,
		},
		{
			name:         "remaster of queued song",
			item:         track.Item{DeviceName: "Kitchen", TrackRef: "spotify:track:def", Title: "Bohemian Rhapsody - 2011 Remaster", Artist: "queen"},
			wantAccepted: false,
		},
		{
			name:         "cover by another artist",
			item:         track.Item{DeviceName: "Kitchen", TrackRef: "spotify:track:ghi", Title: "Bohemian Rhapsody", Artist: "Panic! at the Disco"},
			wantAccepted: true,
		},
		{
			name:         "same title without artist",
			item:         track.Item{DeviceName: "Kitchen", MediaURL: "http://h/stream/b.mp3", Title: "a"},
			wantAccepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), Request{Kind: RequestEnqueue, Item: tt.item})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "duplicate_item", result.Code)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bohemian Rhapsody - 2011 Remaster", "bohemian rhapsody"},
		{"Hey Jude (Remastered 2015)", "hey jude"},
		{"Yesterday [Remastered]", "yesterday"},
		{"Song Title (Single Version)", "song title"},
		{"Song Title (Radio Edit)", "song title"},
		{"Song Title - Live", "song title"},
		{"Alive", "alive"},
		{"  Spaced   Out  ", "spaced out"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTitle(tt.input))
		})
	}
}

func TestAppliesTo(t *testing.T) {
	tests := []struct {
		filter  Filter
		playNow bool
		enqueue bool
		folder  bool
	}{
		{&ItemShapeFilter{}, true, true, true},
		{&KnownDeviceFilter{}, true, true, true},
		{&QueueLimitFilter{}, false, true, true},
		{&DuplicateItemFilter{}, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.filter.Name(), func(t *testing.T) {
			assert.Equal(t, tt.playNow, tt.filter.AppliesTo(RequestPlayNow))
			assert.Equal(t, tt.enqueue, tt.filter.AppliesTo(RequestEnqueue))
			assert.Equal(t, tt.folder, tt.filter.AppliesTo(RequestFolder))
		})
	}
}

func TestChain_Execute(t *testing.T) {
	q := &mockQueue{}
	limit := NewQueueLimitFilter(q)
	require.NoError(t, limit.ValidateConfig(map[string]any{"max_items": 1}))

	chain := NewChain()
	chain.Add(&ItemShapeFilter{})
	chain.Add(NewKnownDeviceFilter(mockDevices{"Kitchen": {Name: "Kitchen"}}))
	chain.Add(limit)

	ok := track.Item{DeviceName: "Kitchen", MediaURL: "http://h/a.mp3"}

	assert.Equal(t, Accept(), chain.Execute(context.Background(), Request{Kind: RequestEnqueue, Item: ok}))
	assert.Equal(t, "invalid_item", chain.Execute(context.Background(), Request{Item: track.Item{DeviceName: "Garage"}}).Code)
	assert.Equal(t, "device_not_found", chain.Execute(context.Background(), Request{Item: track.Item{DeviceName: "Garage", MediaURL: "x"}}).Code)

	q.items = []track.Item{ok}
	assert.Equal(t, "queue_full", chain.Execute(context.Background(), Request{Kind: RequestEnqueue, Item: ok}).Code)
	assert.True(t, chain.Execute(context.Background(), Request{Kind: RequestPlayNow, Item: ok}).Accepted)
	assert.Len(t, chain.Filters(), 3)
}

func TestRegistered(t *testing.T) {
	registered := GetRegistered()
	for _, name := range []string{"item_shape_filter", "known_device_filter", "queue_limit_filter", "duplicate_item_filter"} {
		factory, ok := registered[name]
		require.True(t, ok, name)
		assert.Equal(t, name, factory().Name())
	}
}
