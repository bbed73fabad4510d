package notification

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []uint64
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *castboxv1.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n.SequenceNo)
	return s.err
}

func (s *recordingStream) received() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.got...)
}

func TestManager_SubscribeAndUnsubscribe(t *testing.T) {
	m := NewManager()
	id := m.Subscribe(&recordingStream{})
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Unsubscribe(id)
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_BroadcastStampsSequence(t *testing.T) {
	m := NewManager()
	a, b := &recordingStream{}, &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)

	m.Broadcast(&castboxv1.Notification{Type: "dispatched"})
	m.Broadcast(&castboxv1.Notification{Type: "stopped"})

	assert.Equal(t, []uint64{1, 2}, a.received())
	assert.Equal(t, []uint64{1, 2}, b.received())
	assert.Equal(t, uint64(3), m.NextSequenceNo())
}

func TestManager_BroadcastIgnoresFailingSubscriber(t *testing.T) {
	m := NewManager()
	bad := &recordingStream{err: errors.New("closed")}
	good := &recordingStream{}
	m.Subscribe(bad)
	m.Subscribe(good)

	m.Broadcast(&castboxv1.Notification{Type: "dispatched"})
	assert.Equal(t, []uint64{1}, good.received())
}

func TestManager_BroadcastDoesNotWaitForStalledSubscriber(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 20 * time.Millisecond

	stalled := &recordingStream{block: make(chan struct{})}
	defer close(stalled.block)
	good := &recordingStream{}
	m.Subscribe(stalled)
	m.Subscribe(good)

	start := time.Now()
	m.Broadcast(&castboxv1.Notification{Type: "dispatched"})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []uint64{1}, good.received())
}

func TestManager_Send(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s)

	require.NoError(t, m.Send(id, &castboxv1.Notification{SequenceNo: 7}))
	require.NoError(t, m.Send("unknown", &castboxv1.Notification{SequenceNo: 8}))
	assert.Equal(t, []uint64{7}, s.received())
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}
