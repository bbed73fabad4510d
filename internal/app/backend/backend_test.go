package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/track"
	"github.com/osa030/castbox/internal/infra/cast"
	"github.com/osa030/castbox/internal/infra/sonos"
)

type fakeCastSession struct {
	mu       sync.Mutex
	loaded   []string
	stopped  int
	closed   bool
	state    string
	loadGate chan struct{}
}

func (s *fakeCastSession) Load(mediaURL, contentType string) error {
	if s.loadGate != nil {
		<-s.loadGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = append(s.loaded, mediaURL+"|"+contentType)
	s.state = cast.StateBuffering
	return nil
}

func (s *fakeCastSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	s.state = cast.StateIdle
	return nil
}

func (s *fakeCastSession) Status() (*cast.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &cast.Status{PlayerState: s.state}, nil
}

func (s *fakeCastSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeCastSession) Loaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loaded...)
}

func (s *fakeCastSession) Stopped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *fakeCastSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSpeaker struct {
	mu      sync.Mutex
	calls   []string
	state   string
	infoErr error
	setGate chan struct{}
}

func (f *fakeSpeaker) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSpeaker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSpeaker) SetAVTransportURI(_ context.Context, baseURL, uri, _ string) error {
	f.record("set:" + baseURL + ":" + uri)
	if f.setGate != nil {
		<-f.setGate
	}
	return nil
}

func (f *fakeSpeaker) Play(_ context.Context, baseURL string) error {
	f.record("play:" + baseURL)
	return nil
}

func (f *fakeSpeaker) Stop(_ context.Context, baseURL string) error {
	f.record("stop:" + baseURL)
	return nil
}

func (f *fakeSpeaker) GetTransportInfo(_ context.Context, _ string) (*sonos.TransportInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &sonos.TransportInfo{CurrentTransportState: f.state}, nil
}

type fakeAccount struct {
	playErr  error
	playing  bool
	plays    []string
	paused   []string
	statusOK int
}

func (a *fakeAccount) Play(_ context.Context, deviceID, ref string) error {
	a.plays = append(a.plays, deviceID+"|"+ref)
	return a.playErr
}

func (a *fakeAccount) Pause(_ context.Context, deviceID string) error {
	a.paused = append(a.paused, deviceID)
	return nil
}

func (a *fakeAccount) IsPlaying(_ context.Context) (bool, error) {
	a.statusOK++
	return a.playing, nil
}

func TestFactory_Resolve(t *testing.T) {
	f := NewFactory(Config{}, func(string) (cast.Session, error) { return &fakeCastSession{}, nil }, &fakeSpeaker{}, &fakeAccount{})

	tests := []struct {
		name     string
		device   device.Device
		kind     track.Kind
		wantName string
		wantErr  bool
	}{
		{"streaming on streaming device", device.Device{Kind: device.KindStreaming, Handle: "dev1"}, track.KindStreaming, "streaming", false},
		{"streaming on cast device", device.Device{Kind: device.KindCast}, track.KindStreaming, "streaming(active device)", false},
		{"streaming on speaker", device.Device{Kind: device.KindSpeaker}, track.KindStreaming, "streaming(active device)", false},
		{"file on cast", device.Device{Kind: device.KindCast}, track.KindFile, "cast", false},
		{"file on speaker", device.Device{Kind: device.KindSpeaker}, track.KindFile, "speaker", false},
		{"file on streaming device", device.Device{Kind: device.KindStreaming}, track.KindFile, "", true},
		{"invalid kind", device.Device{Kind: device.KindCast}, track.KindInvalid, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := f.Resolve(tt.device, tt.kind)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}

func TestFactory_ResolveWithoutClients(t *testing.T) {
	f := NewFactory(Config{}, nil, nil, nil)

	_, err := f.Resolve(device.Device{Kind: device.KindStreaming}, track.KindStreaming)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = f.Resolve(device.Device{Kind: device.KindCast}, track.KindFile)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = f.Resolve(device.Device{Kind: device.KindSpeaker}, track.KindFile)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCast_PlayIsAsynchronous(t *testing.T) {
	sess := &fakeCastSession{}
	release := make(chan struct{})
	dial := func(addr string) (cast.Session, error) {
		<-release
		assert.Equal(t, "10.0.0.2:8009", addr)
		return sess, nil
	}
	b := NewCast("10.0.0.2:8009", dial, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/stream/a.mp3"}))

	_, err := b.IsPlaying(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	close(release)
	assert.Eventually(t, func() bool { return len(sess.Loaded()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "http://h/stream/a.mp3|audio/mp3", sess.Loaded()[0])

	playing, err := b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.True(t, playing)

	require.NoError(t, b.Stop(context.Background()))
	playing, err = b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)

	require.NoError(t, b.Close())
	assert.True(t, sess.closed)
}

func TestCast_StopBeforeHandshakeDialsFresh(t *testing.T) {
	sess := &fakeCastSession{}
	b := NewCast("10.0.0.2:8009", func(string) (cast.Session, error) { return sess, nil }, time.Second)

	require.NoError(t, b.Stop(context.Background()))
	assert.Equal(t, 1, sess.stopped)
	assert.True(t, sess.closed)
}

func TestCast_DialFailure(t *testing.T) {
	b := NewCast("10.0.0.9:8009", func(string) (cast.Session, error) { return nil, errors.New("refused") }, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/a.mp3"}))
	assert.Eventually(t, func() bool { return b.Stop(context.Background()) != nil }, time.Second, 5*time.Millisecond)
	_, err := b.IsPlaying(context.Background())
	assert.Error(t, err)
}

func TestCast_StopDuringConnectSkipsLoad(t *testing.T) {
	sess := &fakeCastSession{}
	release := make(chan struct{})
	dials := 0
	var dialMu sync.Mutex
	dial := func(string) (cast.Session, error) {
		dialMu.Lock()
		dials++
		dialMu.Unlock()
		<-release
		return sess, nil
	}
	b := NewCast("10.0.0.2:8009", dial, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/stream/a.mp3"}))
	require.NoError(t, b.Stop(context.Background()))

	close(release)
	assert.Eventually(t, sess.Closed, time.Second, 5*time.Millisecond)
	assert.Empty(t, sess.Loaded())
	assert.Zero(t, sess.Stopped())

	dialMu.Lock()
	assert.Equal(t, 1, dials)
	dialMu.Unlock()

	_, err := b.IsPlaying(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCast_StopDuringLoadStopsMedia(t *testing.T) {
	sess := &fakeCastSession{loadGate: make(chan struct{})}
	b := NewCast("10.0.0.2:8009", func(string) (cast.Session, error) { return sess, nil }, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/stream/a.mp3"}))
	// Wait for the handshake to install its session and block inside Load.
	assert.Eventually(t, func() bool {
		_, err := b.IsPlaying(context.Background())
		return err == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
	close(sess.loadGate)

	assert.Eventually(t, func() bool { return sess.Stopped() == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, sess.Loaded(), 1)

	playing, err := b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)
}

func TestCast_LaterPlayDoesNotStopEarlierLoad(t *testing.T) {
	first := &fakeCastSession{loadGate: make(chan struct{})}
	second := &fakeCastSession{}
	var mu sync.Mutex
	sessions := []*fakeCastSession{first, second}
	dial := func(string) (cast.Session, error) {
		mu.Lock()
		defer mu.Unlock()
		s := sessions[0]
		sessions = sessions[1:]
		return s, nil
	}
	b := NewCast("10.0.0.2:8009", dial, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/stream/a.mp3"}))
	assert.Eventually(t, func() bool {
		_, err := b.IsPlaying(context.Background())
		return err == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/stream/b.mp3"}))
	assert.Eventually(t, func() bool { return len(second.Loaded()) == 1 }, time.Second, 5*time.Millisecond)

	close(first.loadGate)
	assert.Eventually(t, func() bool { return len(first.Loaded()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return first.Stopped() > 0 || second.Stopped() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mp3", contentType("http://h/stream/a.mp3"))
	assert.Equal(t, "audio/mp3", contentType("http://h/stream/noext"))
	assert.Equal(t, "audio/flac", contentType("http://h/stream/b.flac"))
}

func TestSpeaker_PlayStopStatus(t *testing.T) {
	client := &fakeSpeaker{state: "PLAYING"}
	b := NewSpeaker("http://10.0.0.3:1400", client, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/a.mp3", Title: "A"}))
	assert.Eventually(t, func() bool { return len(client.Calls()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"set:http://10.0.0.3:1400:http://h/a.mp3", "play:http://10.0.0.3:1400"}, client.Calls())

	playing, err := b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.True(t, playing)

	client.state = "STOPPED"
	playing, err = b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)

	require.NoError(t, b.Stop(context.Background()))
	assert.Contains(t, client.Calls(), "stop:http://10.0.0.3:1400")
}

func TestSpeaker_StopDuringSetURISkipsPlay(t *testing.T) {
	client := &fakeSpeaker{setGate: make(chan struct{})}
	b := NewSpeaker("http://10.0.0.3:1400", client, time.Second)

	require.NoError(t, b.Play(context.Background(), track.Item{MediaURL: "http://h/a.mp3", Title: "A"}))
	assert.Eventually(t, func() bool { return len(client.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
	close(client.setGate)

	assert.Never(t, func() bool {
		for _, c := range client.Calls() {
			if c == "play:http://10.0.0.3:1400" {
				return true
			}
		}
		return false
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"set:http://10.0.0.3:1400:http://h/a.mp3", "stop:http://10.0.0.3:1400"}, client.Calls())
}

func TestSpeaker_StatusUnknown(t *testing.T) {
	b := NewSpeaker("http://10.0.0.3:1400", &fakeSpeaker{infoErr: errors.New("timeout")}, time.Second)
	_, err := b.IsPlaying(context.Background())
	assert.Error(t, err)
}

func TestStreaming_NoPoll(t *testing.T) {
	account := &fakeAccount{}
	b := NewStreaming(account, "dev1", false)

	playing, err := b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)

	require.NoError(t, b.Play(context.Background(), track.Item{TrackRef: "spotify:track:1"}))
	assert.Equal(t, []string{"dev1|spotify:track:1"}, account.plays)

	playing, err = b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.True(t, playing)
	assert.Zero(t, account.statusOK)

	require.NoError(t, b.Stop(context.Background()))
	assert.Equal(t, []string{"dev1"}, account.paused)

	playing, _ = b.IsPlaying(context.Background())
	assert.True(t, playing)
}

func TestStreaming_PlayFailureReportsNotPlaying(t *testing.T) {
	b := NewStreaming(&fakeAccount{playErr: errors.New("no active device")}, "", false)

	assert.Error(t, b.Play(context.Background(), track.Item{TrackRef: "spotify:album:1"}))
	playing, err := b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)
}

func TestStreaming_Poll(t *testing.T) {
	account := &fakeAccount{playing: false}
	b := NewStreaming(account, "", true)

	require.NoError(t, b.Play(context.Background(), track.Item{TrackRef: "spotify:track:1"}))
	playing, err := b.IsPlaying(context.Background())
	require.NoError(t, err)
	assert.False(t, playing)
	assert.Equal(t, 1, account.statusOK)
}
