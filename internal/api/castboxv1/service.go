package castboxv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// PlaybackServiceName is the fully-qualified name of the PlaybackService service.
const PlaybackServiceName = "castbox.v1.PlaybackService"

// Procedure paths of PlaybackService.
const (
	PlaybackServiceListDevicesProcedure            = "/castbox.v1.PlaybackService/ListDevices"
	PlaybackServiceListQueueProcedure              = "/castbox.v1.PlaybackService/ListQueue"
	PlaybackServiceGetStatusProcedure              = "/castbox.v1.PlaybackService/GetStatus"
	PlaybackServicePlayNowProcedure                = "/castbox.v1.PlaybackService/PlayNow"
	PlaybackServiceEnqueueProcedure                = "/castbox.v1.PlaybackService/Enqueue"
	PlaybackServiceEnqueueFolderProcedure          = "/castbox.v1.PlaybackService/EnqueueFolder"
	PlaybackServiceNextProcedure                   = "/castbox.v1.PlaybackService/Next"
	PlaybackServiceStopProcedure                   = "/castbox.v1.PlaybackService/Stop"
	PlaybackServiceBrowseProcedure                 = "/castbox.v1.PlaybackService/Browse"
	PlaybackServiceSubscribeNotificationsProcedure = "/castbox.v1.PlaybackService/SubscribeNotifications"
)

// ControlProcedures are the procedures that change playback. They require the
// admin token when one is configured.
var ControlProcedures = map[string]bool{
	PlaybackServicePlayNowProcedure:       true,
	PlaybackServiceEnqueueProcedure:       true,
	PlaybackServiceEnqueueFolderProcedure: true,
	PlaybackServiceNextProcedure:          true,
	PlaybackServiceStopProcedure:          true,
}

// PlaybackServiceHandler is the server-side PlaybackService.
type PlaybackServiceHandler interface {
	ListDevices(context.Context, *connect.Request[ListDevicesRequest]) (*connect.Response[ListDevicesResponse], error)
	ListQueue(context.Context, *connect.Request[ListQueueRequest]) (*connect.Response[ListQueueResponse], error)
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	PlayNow(context.Context, *connect.Request[PlayNowRequest]) (*connect.Response[PlayNowResponse], error)
	Enqueue(context.Context, *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error)
	EnqueueFolder(context.Context, *connect.Request[EnqueueFolderRequest]) (*connect.Response[EnqueueFolderResponse], error)
	Next(context.Context, *connect.Request[NextRequest]) (*connect.Response[NextResponse], error)
	Stop(context.Context, *connect.Request[StopRequest]) (*connect.Response[StopResponse], error)
	Browse(context.Context, *connect.Request[BrowseRequest]) (*connect.Response[BrowseResponse], error)
	SubscribeNotifications(context.Context, *connect.Request[SubscribeNotificationsRequest], *connect.ServerStream[Notification]) error
}

// NewPlaybackServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewPlaybackServiceHandler(svc PlaybackServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithCodec()}, opts...)

	handlers := map[string]http.Handler{
		PlaybackServiceListDevicesProcedure:   connect.NewUnaryHandler(PlaybackServiceListDevicesProcedure, svc.ListDevices, opts...),
		PlaybackServiceListQueueProcedure:     connect.NewUnaryHandler(PlaybackServiceListQueueProcedure, svc.ListQueue, opts...),
		PlaybackServiceGetStatusProcedure:     connect.NewUnaryHandler(PlaybackServiceGetStatusProcedure, svc.GetStatus, opts...),
		PlaybackServicePlayNowProcedure:       connect.NewUnaryHandler(PlaybackServicePlayNowProcedure, svc.PlayNow, opts...),
		PlaybackServiceEnqueueProcedure:       connect.NewUnaryHandler(PlaybackServiceEnqueueProcedure, svc.Enqueue, opts...),
		PlaybackServiceEnqueueFolderProcedure: connect.NewUnaryHandler(PlaybackServiceEnqueueFolderProcedure, svc.EnqueueFolder, opts...),
		PlaybackServiceNextProcedure:          connect.NewUnaryHandler(PlaybackServiceNextProcedure, svc.Next, opts...),
		PlaybackServiceStopProcedure:          connect.NewUnaryHandler(PlaybackServiceStopProcedure, svc.Stop, opts...),
		PlaybackServiceBrowseProcedure:        connect.NewUnaryHandler(PlaybackServiceBrowseProcedure, svc.Browse, opts...),
		PlaybackServiceSubscribeNotificationsProcedure: connect.NewServerStreamHandler(
			PlaybackServiceSubscribeNotificationsProcedure, svc.SubscribeNotifications, opts...),
	}

	return "/" + PlaybackServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// PlaybackServiceClient is the client-side PlaybackService.
type PlaybackServiceClient interface {
	ListDevices(context.Context, *connect.Request[ListDevicesRequest]) (*connect.Response[ListDevicesResponse], error)
	ListQueue(context.Context, *connect.Request[ListQueueRequest]) (*connect.Response[ListQueueResponse], error)
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	PlayNow(context.Context, *connect.Request[PlayNowRequest]) (*connect.Response[PlayNowResponse], error)
	Enqueue(context.Context, *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error)
	EnqueueFolder(context.Context, *connect.Request[EnqueueFolderRequest]) (*connect.Response[EnqueueFolderResponse], error)
	Next(context.Context, *connect.Request[NextRequest]) (*connect.Response[NextResponse], error)
	Stop(context.Context, *connect.Request[StopRequest]) (*connect.Response[StopResponse], error)
	Browse(context.Context, *connect.Request[BrowseRequest]) (*connect.Response[BrowseResponse], error)
	SubscribeNotifications(context.Context, *connect.Request[SubscribeNotificationsRequest]) (*connect.ServerStreamForClient[Notification], error)
}

type playbackServiceClient struct {
	listDevices            *connect.Client[ListDevicesRequest, ListDevicesResponse]
	listQueue              *connect.Client[ListQueueRequest, ListQueueResponse]
	getStatus              *connect.Client[GetStatusRequest, GetStatusResponse]
	playNow                *connect.Client[PlayNowRequest, PlayNowResponse]
	enqueue                *connect.Client[EnqueueRequest, EnqueueResponse]
	enqueueFolder          *connect.Client[EnqueueFolderRequest, EnqueueFolderResponse]
	next                   *connect.Client[NextRequest, NextResponse]
	stop                   *connect.Client[StopRequest, StopResponse]
	browse                 *connect.Client[BrowseRequest, BrowseResponse]
	subscribeNotifications *connect.Client[SubscribeNotificationsRequest, Notification]
}

// NewPlaybackServiceClient constructs a client for the PlaybackService at
// baseURL (for example http://localhost:5000).
func NewPlaybackServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlaybackServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &playbackServiceClient{
		listDevices:            connect.NewClient[ListDevicesRequest, ListDevicesResponse](httpClient, baseURL+PlaybackServiceListDevicesProcedure, opts...),
		listQueue:              connect.NewClient[ListQueueRequest, ListQueueResponse](httpClient, baseURL+PlaybackServiceListQueueProcedure, opts...),
		getStatus:              connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+PlaybackServiceGetStatusProcedure, opts...),
		playNow:                connect.NewClient[PlayNowRequest, PlayNowResponse](httpClient, baseURL+PlaybackServicePlayNowProcedure, opts...),
		enqueue:                connect.NewClient[EnqueueRequest, EnqueueResponse](httpClient, baseURL+PlaybackServiceEnqueueProcedure, opts...),
		enqueueFolder:          connect.NewClient[EnqueueFolderRequest, EnqueueFolderResponse](httpClient, baseURL+PlaybackServiceEnqueueFolderProcedure, opts...),
		next:                   connect.NewClient[NextRequest, NextResponse](httpClient, baseURL+PlaybackServiceNextProcedure, opts...),
		stop:                   connect.NewClient[StopRequest, StopResponse](httpClient, baseURL+PlaybackServiceStopProcedure, opts...),
		browse:                 connect.NewClient[BrowseRequest, BrowseResponse](httpClient, baseURL+PlaybackServiceBrowseProcedure, opts...),
		subscribeNotifications: connect.NewClient[SubscribeNotificationsRequest, Notification](httpClient, baseURL+PlaybackServiceSubscribeNotificationsProcedure, opts...),
	}
}

func (c *playbackServiceClient) ListDevices(ctx context.Context, req *connect.Request[ListDevicesRequest]) (*connect.Response[ListDevicesResponse], error) {
	return c.listDevices.CallUnary(ctx, req)
}

func (c *playbackServiceClient) ListQueue(ctx context.Context, req *connect.Request[ListQueueRequest]) (*connect.Response[ListQueueResponse], error) {
	return c.listQueue.CallUnary(ctx, req)
}

func (c *playbackServiceClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *playbackServiceClient) PlayNow(ctx context.Context, req *connect.Request[PlayNowRequest]) (*connect.Response[PlayNowResponse], error) {
	return c.playNow.CallUnary(ctx, req)
}

func (c *playbackServiceClient) Enqueue(ctx context.Context, req *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error) {
	return c.enqueue.CallUnary(ctx, req)
}

func (c *playbackServiceClient) EnqueueFolder(ctx context.Context, req *connect.Request[EnqueueFolderRequest]) (*connect.Response[EnqueueFolderResponse], error) {
	return c.enqueueFolder.CallUnary(ctx, req)
}

func (c *playbackServiceClient) Next(ctx context.Context, req *connect.Request[NextRequest]) (*connect.Response[NextResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *playbackServiceClient) Stop(ctx context.Context, req *connect.Request[StopRequest]) (*connect.Response[StopResponse], error) {
	return c.stop.CallUnary(ctx, req)
}

func (c *playbackServiceClient) Browse(ctx context.Context, req *connect.Request[BrowseRequest]) (*connect.Response[BrowseResponse], error) {
	return c.browse.CallUnary(ctx, req)
}

func (c *playbackServiceClient) SubscribeNotifications(ctx context.Context, req *connect.Request[SubscribeNotificationsRequest]) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribeNotifications.CallServerStream(ctx, req)
}
