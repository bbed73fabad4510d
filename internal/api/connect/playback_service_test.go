package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	"github.com/osa030/castbox/internal/app/backend"
	"github.com/osa030/castbox/internal/app/library"
	"github.com/osa030/castbox/internal/app/session"
	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/track"
	"github.com/osa030/castbox/internal/infra/config"
)

type stubScanner struct{}

func (stubScanner) Discover(_ context.Context) []device.Device {
	return []device.Device{
		{Name: "Kitchen", Kind: device.KindCast, Handle: "10.0.0.2:8009", Model: "Chromecast Audio"},
		{Name: "Spotify: Desk", Kind: device.KindStreaming, Handle: "dev1"},
	}
}

type silentBackend struct{}

func (silentBackend) Play(context.Context, track.Item) error  { return nil }
func (silentBackend) Stop(context.Context) error              { return nil }
func (silentBackend) IsPlaying(context.Context) (bool, error) { return true, nil }
func (silentBackend) Name() string                            { return "silent" }

type stubResolver struct{}

func (stubResolver) Resolve(device.Device, track.Kind) (backend.Backend, error) {
	return silentBackend{}, nil
}

type testEnv struct {
	client  castboxv1.PlaybackServiceClient
	session *session.Manager
	config  *config.Config
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()

	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)
	cfg.Admin.Token = token
	cfg.Playback.PollInterval = time.Hour
	cfg.Discovery.ScanInterval = time.Hour

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "jazz"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "jazz", "So_What.mp3"), []byte("ID3"), 0o644))
	lib, err := library.New(library.Config{Root: root, Extensions: []string{".mp3"}, PublicURL: "http://10.0.0.1:5000"})
	require.NoError(t, err)

	mgr, err := session.NewManager(cfg, session.Dependencies{
		Scanner:  stubScanner{},
		Resolver: stubResolver{},
		Library:  lib,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(mgr.Close)
	require.Eventually(t, func() bool { return len(mgr.Devices()) == 2 }, time.Second, 5*time.Millisecond)

	path, handler := castboxv1.NewPlaybackServiceHandler(
		NewPlaybackService(mgr, cfg),
		connect.WithInterceptors(NewAdminAuthInterceptor(cfg)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{
		client:  castboxv1.NewPlaybackServiceClient(srv.Client(), srv.URL),
		session: mgr,
		config:  cfg,
	}
}

func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set(AdminTokenHeader, token)
	}
	return req
}

func TestPlaybackService_ListDevices(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := env.client.ListDevices(context.Background(), connect.NewRequest(&castboxv1.ListDevicesRequest{}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Devices, 2)
	assert.Equal(t, &castboxv1.Device{Name: "Kitchen", Kind: "cast", Model: "Chromecast Audio"}, resp.Msg.Devices[0])
	assert.Equal(t, "streaming", resp.Msg.Devices[1].Kind)
	assert.NotEmpty(t, resp.Msg.LastScan)
}

func TestPlaybackService_EnqueueAndListQueue(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	resp, err := env.client.Enqueue(ctx, connect.NewRequest(&castboxv1.EnqueueRequest{
		Item: &castboxv1.QueueItem{DeviceName: "Spotify: Desk", TrackRef: "spotify:track:abc", Title: "Blue in Green"},
	}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Success)
	assert.Equal(t, env.config.Messages.Success, resp.Msg.Message)
	assert.Equal(t, 1, resp.Msg.QueueSize)

	queue, err := env.client.ListQueue(ctx, connect.NewRequest(&castboxv1.ListQueueRequest{}))
	require.NoError(t, err)
	require.Len(t, queue.Msg.Items, 1)
	assert.Equal(t, "Blue in Green", queue.Msg.Items[0].Title)
	assert.NotEmpty(t, queue.Msg.Items[0].AddedAt)
}

func TestPlaybackService_EnqueueRejected(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := env.client.Enqueue(context.Background(), connect.NewRequest(&castboxv1.EnqueueRequest{
		Item: &castboxv1.QueueItem{DeviceName: "Garage", MediaURL: "http://h/a.mp3"},
	}))
	require.NoError(t, err)
	assert.False(t, resp.Msg.Success)
	assert.Equal(t, "device_not_found", resp.Msg.Code)
	assert.Equal(t, env.config.Messages.DeviceNotFound, resp.Msg.Message)
}

func TestPlaybackService_EnqueueRequiresItem(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.client.Enqueue(context.Background(), connect.NewRequest(&castboxv1.EnqueueRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestPlaybackService_PlayNowAndStatus(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	resp, err := env.client.PlayNow(ctx, connect.NewRequest(&castboxv1.PlayNowRequest{
		Item: &castboxv1.QueueItem{DeviceName: "Kitchen", MediaURL: "http://10.0.0.1:5000/stream/a.mp3", Title: "A"},
	}))
	require.NoError(t, err)
	require.True(t, resp.Msg.Success)

	status, err := env.client.GetStatus(ctx, connect.NewRequest(&castboxv1.GetStatusRequest{}))
	require.NoError(t, err)
	st := status.Msg.Status
	require.NotNil(t, st)
	assert.Equal(t, "playing", st.State)
	assert.Equal(t, "Kitchen", st.DeviceName)
	assert.Equal(t, "file", st.Kind)
	assert.Equal(t, "silent", st.Backend)
	require.NotNil(t, st.CurrentItem)
	assert.Equal(t, "A", st.CurrentItem.Title)
	assert.Equal(t, 2, st.DeviceCount)
}

func TestPlaybackService_NextAndStop(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	next, err := env.client.Next(ctx, connect.NewRequest(&castboxv1.NextRequest{}))
	require.NoError(t, err)
	assert.True(t, next.Msg.Success)

	stop, err := env.client.Stop(ctx, connect.NewRequest(&castboxv1.StopRequest{}))
	require.NoError(t, err)
	assert.True(t, stop.Msg.Success)
}

func TestPlaybackService_BrowseAndEnqueueFolder(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	root, err := env.client.Browse(ctx, connect.NewRequest(&castboxv1.BrowseRequest{}))
	require.NoError(t, err)
	require.Len(t, root.Msg.Folders, 1)
	assert.Equal(t, "jazz", root.Msg.Folders[0].Path)
	assert.Empty(t, root.Msg.Files)

	jazz, err := env.client.Browse(ctx, connect.NewRequest(&castboxv1.BrowseRequest{Path: "jazz"}))
	require.NoError(t, err)
	require.Len(t, jazz.Msg.Files, 1)
	assert.Equal(t, "So What", jazz.Msg.Files[0].Title)

	_, err = env.client.Browse(ctx, connect.NewRequest(&castboxv1.BrowseRequest{Path: "../.."}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.client.Browse(ctx, connect.NewRequest(&castboxv1.BrowseRequest{Path: "rock"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	added, err := env.client.EnqueueFolder(ctx, connect.NewRequest(&castboxv1.EnqueueFolderRequest{DeviceName: "Kitchen", Path: "jazz"}))
	require.NoError(t, err)
	assert.True(t, added.Msg.Success)
	assert.Equal(t, 1, added.Msg.Added)
	assert.Equal(t, 1, added.Msg.QueueSize)
}

func TestPlaybackService_AdminToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		code  connect.Code
	}{
		{name: "missing token", token: "", code: connect.CodeUnauthenticated},
		{name: "wrong token", token: "nope", code: connect.CodeUnauthenticated},
		{name: "valid token", token: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Stop(ctx, withToken(&castboxv1.StopRequest{}, tt.token))
			if tt.code == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}

	// Read-only procedures do not need the token.
	_, err := env.client.GetStatus(ctx, connect.NewRequest(&castboxv1.GetStatusRequest{}))
	assert.NoError(t, err)
}

func TestPlaybackService_SubscribeNotifications(t *testing.T) {
	env := newTestEnv(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := env.client.SubscribeNotifications(ctx, connect.NewRequest(&castboxv1.SubscribeNotificationsRequest{}))
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive())
	initial := stream.Msg()
	assert.Equal(t, castboxv1.NotificationTypeInitialState, initial.Type)
	assert.Equal(t, "idle", initial.State)

	require.Eventually(t, func() bool {
		return env.session.GetNotificationManager().SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err = env.client.PlayNow(context.Background(), connect.NewRequest(&castboxv1.PlayNowRequest{
		Item: &castboxv1.QueueItem{DeviceName: "Kitchen", MediaURL: "http://h/b.mp3", Title: "B"},
	}))
	require.NoError(t, err)

	require.True(t, stream.Receive())
	n := stream.Msg()
	assert.Equal(t, "dispatched", n.Type)
	assert.Equal(t, "playing", n.State)
	assert.Equal(t, "B", n.Title)
	assert.Greater(t, n.SequenceNo, initial.SequenceNo)
}
