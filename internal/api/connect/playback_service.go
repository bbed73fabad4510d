package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	"github.com/osa030/castbox/internal/app/library"
	"github.com/osa030/castbox/internal/app/session"
	"github.com/osa030/castbox/internal/infra/config"
)

// PlaybackService implements the PlaybackService RPC.
type PlaybackService struct {
	session *session.Manager
	config  *config.Config
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(session *session.Manager, cfg *config.Config) *PlaybackService {
	return &PlaybackService{
		session: session,
		config:  cfg,
	}
}

// Ensure PlaybackService implements the interface.
var _ castboxv1.PlaybackServiceHandler = (*PlaybackService)(nil)

// ListDevices returns the latest device snapshot.
func (s *PlaybackService) ListDevices(
	ctx context.Context,
	req *connect.Request[castboxv1.ListDevicesRequest],
) (*connect.Response[castboxv1.ListDevicesResponse], error) {
	devices := s.session.Devices()
	resp := &castboxv1.ListDevicesResponse{
		Devices:  make([]*castboxv1.Device, 0, len(devices)),
		LastScan: formatTime(s.session.LastScan()),
	}
	for _, d := range devices {
		resp.Devices = append(resp.Devices, toDevice(d))
	}
	return connect.NewResponse(resp), nil
}

// ListQueue returns the queued items in play order.
func (s *PlaybackService) ListQueue(
	ctx context.Context,
	req *connect.Request[castboxv1.ListQueueRequest],
) (*connect.Response[castboxv1.ListQueueResponse], error) {
	items := s.session.Queue()
	resp := &castboxv1.ListQueueResponse{
		Items: make([]*castboxv1.QueueItem, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toQueueItem(item))
	}
	return connect.NewResponse(resp), nil
}

// GetStatus returns the current status.
func (s *PlaybackService) GetStatus(
	ctx context.Context,
	req *connect.Request[castboxv1.GetStatusRequest],
) (*connect.Response[castboxv1.GetStatusResponse], error) {
	return connect.NewResponse(&castboxv1.GetStatusResponse{
		Status: toStatus(s.session.Status()),
	}), nil
}

// PlayNow preempts the current item.
func (s *PlaybackService) PlayNow(
	ctx context.Context,
	req *connect.Request[castboxv1.PlayNowRequest],
) (*connect.Response[castboxv1.PlayNowResponse], error) {
	if req.Msg.Item == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item is required"))
	}

	success, code, err := s.session.PlayNow(ctx, fromQueueItem(req.Msg.Item))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&castboxv1.PlayNowResponse{
		Success: success,
		Code:    code,
		Message: s.message(success, code),
	}), nil
}

// Enqueue appends an item to the queue.
func (s *PlaybackService) Enqueue(
	ctx context.Context,
	req *connect.Request[castboxv1.EnqueueRequest],
) (*connect.Response[castboxv1.EnqueueResponse], error) {
	if req.Msg.Item == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item is required"))
	}

	success, code, err := s.session.Enqueue(ctx, fromQueueItem(req.Msg.Item))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&castboxv1.EnqueueResponse{
		Success:   success,
		Code:      code,
		Message:   s.message(success, code),
		QueueSize: len(s.session.Queue()),
	}), nil
}

// EnqueueFolder appends every audio file of a library folder.
func (s *PlaybackService) EnqueueFolder(
	ctx context.Context,
	req *connect.Request[castboxv1.EnqueueFolderRequest],
) (*connect.Response[castboxv1.EnqueueFolderResponse], error) {
	if req.Msg.DeviceName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("device_name is required"))
	}

	added, code, err := s.session.EnqueueFolder(ctx, req.Msg.DeviceName, req.Msg.Path)
	if err != nil {
		return nil, toConnectError(err)
	}

	success := added > 0
	return connect.NewResponse(&castboxv1.EnqueueFolderResponse{
		Success:   success,
		Code:      code,
		Message:   s.message(success, code),
		Added:     added,
		QueueSize: len(s.session.Queue()),
	}), nil
}

// Next skips to the next queued item.
func (s *PlaybackService) Next(
	ctx context.Context,
	req *connect.Request[castboxv1.NextRequest],
) (*connect.Response[castboxv1.NextResponse], error) {
	if err := s.session.Next(ctx); err != nil {
		return connect.NewResponse(&castboxv1.NextResponse{
			Success: false,
			Message: err.Error(),
		}), nil
	}

	return connect.NewResponse(&castboxv1.NextResponse{
		Success: true,
		Message: "Skip requested",
	}), nil
}

// Stop stops playback and clears the queue.
func (s *PlaybackService) Stop(
	ctx context.Context,
	req *connect.Request[castboxv1.StopRequest],
) (*connect.Response[castboxv1.StopResponse], error) {
	if err := s.session.Stop(ctx); err != nil {
		return connect.NewResponse(&castboxv1.StopResponse{
			Success: false,
			Message: err.Error(),
		}), nil
	}

	return connect.NewResponse(&castboxv1.StopResponse{
		Success: true,
		Message: "Playback stopped",
	}), nil
}

// Browse lists a media library folder.
func (s *PlaybackService) Browse(
	ctx context.Context,
	req *connect.Request[castboxv1.BrowseRequest],
) (*connect.Response[castboxv1.BrowseResponse], error) {
	listing, err := s.session.Browse(req.Msg.Path)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBrowseResponse(listing)), nil
}

// SubscribeNotifications streams playback notifications, starting with the
// current state.
func (s *PlaybackService) SubscribeNotifications(
	ctx context.Context,
	req *connect.Request[castboxv1.SubscribeNotificationsRequest],
	stream *connect.ServerStream[castboxv1.Notification],
) error {
	notifManager := s.session.GetNotificationManager()
	sequenceNo := notifManager.NextSequenceNo()

	status := s.session.Status()
	initialNotification := &castboxv1.Notification{
		SequenceNo: sequenceNo,
		Type:       castboxv1.NotificationTypeInitialState,
		State:      status.Playback.State.String(),
		SessionID:  status.Playback.SessionID,
		DeviceName: status.Playback.DeviceName,
		Title:      status.Playback.Item.DisplayTitle(),
		QueueSize:  status.QueueSize,
		Time:       formatTime(time.Now()),
	}
	if err := stream.Send(initialNotification); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

func (s *PlaybackService) message(success bool, code string) string {
	if success {
		return s.config.GetMessage("success")
	}
	return s.config.GetMessage(code)
}

// toConnectError maps session and library errors to Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrLibraryDisabled):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, library.ErrOutsideRoot):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, library.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[castboxv1.Notification]
}

func (a *notificationStreamAdapter) Send(notification *castboxv1.Notification) error {
	return a.stream.Send(notification)
}
