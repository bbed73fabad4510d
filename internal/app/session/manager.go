// Package session provides the session manager that wires discovery, the
// queue, the playback controller and the notification fan-out together.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	castboxv1 "github.com/osa030/castbox/internal/api/castboxv1"
	"github.com/osa030/castbox/internal/app/artwork"
	"github.com/osa030/castbox/internal/app/backend"
	"github.com/osa030/castbox/internal/app/filter"
	"github.com/osa030/castbox/internal/app/library"
	"github.com/osa030/castbox/internal/app/notification"
	"github.com/osa030/castbox/internal/app/playback"
	"github.com/osa030/castbox/internal/app/queue"
	"github.com/osa030/castbox/internal/app/session/registry"
	"github.com/osa030/castbox/internal/app/session/state"
	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/media"
	"github.com/osa030/castbox/internal/domain/track"
	"github.com/osa030/castbox/internal/infra/config"
)

var (
	ErrSessionNotRunning = errors.New("session is not running")
	ErrLibraryDisabled   = errors.New("media library is not configured")
)

// Publisher mirrors playback notifications and device snapshots onto an
// external bus.
type Publisher interface {
	PublishNotification(n *castboxv1.Notification) error
	PublishDevices(devices []device.Device) error
}

// Dependencies are the externally built collaborators of a Manager.
type Dependencies struct {
	Scanner   registry.Scanner
	Resolver  backend.Resolver
	Library   *library.Library // nil disables browsing and folder enqueue
	Artwork   *artwork.Service // nil always yields the placeholder
	Publisher Publisher        // nil disables bus publishing
}

// Status is a snapshot of the whole session.
type Status struct {
	Phase           state.Phase
	Playback        playback.Status
	QueueSize       int
	DeviceCount     int
	LastScan        time.Time
	SubscriberCount int
}

// Manager manages the castbox session.
type Manager struct {
	config *config.Config

	// Components
	stateMgr     *state.Manager
	registry     *registry.DeviceRegistry
	queue        *queue.Store
	playback     *playback.Controller
	filterChain  *filter.Chain
	notification *notification.Manager
	library      *library.Library
	artwork      *artwork.Service
	publisher    Publisher

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, deps Dependencies) (*Manager, error) {
	if deps.Scanner == nil {
		return nil, errors.New("device scanner is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("backend resolver is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:       cfg,
		stateMgr:     state.New(),
		registry:     registry.NewDeviceRegistry(deps.Scanner),
		queue:        queue.NewStore(),
		filterChain:  filter.NewChain(),
		notification: notification.NewManager(),
		library:      deps.Library,
		artwork:      deps.Artwork,
		publisher:    deps.Publisher,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.playback = playback.NewController(playback.Config{
		PollInterval:   cfg.Playback.PollInterval,
		StopTimeout:    cfg.Playback.StopTimeout,
		GracePeriod:    cfg.Playback.GracePeriod,
		ProbeTimeout:   cfg.Playback.ProbeTimeout,
		CommandTimeout: cfg.Playback.CommandTimeout,
	}, m.registry, m.queue, deps.Resolver)

	if m.publisher != nil {
		m.registry.OnScan(m.publishDevices)
	}

	if err := m.setupFilters(); err != nil {
		cancel()
		return nil, err
	}

	return m, nil
}

// setupFilters initializes the filter chain. The item shape and known device
// filters always run; the others are enabled from config.
func (m *Manager) setupFilters() error {
	cfg := m.config

	m.filterChain.Add(&filter.ItemShapeFilter{})
	m.filterChain.Add(filter.NewKnownDeviceFilter(m.registry))

	if cfg.IsFilterEnabled("queue_limit_filter") {
		f := filter.NewQueueLimitFilter(m.queue)
		if err := f.ValidateConfig(cfg.GetFilterSettings("queue_limit_filter")); err != nil {
			return errors.Wrap(err, "invalid queue_limit_filter settings")
		}
		m.filterChain.Add(f)
	}

	if cfg.IsFilterEnabled("duplicate_item_filter") {
		m.filterChain.Add(filter.NewDuplicateItemFilter(m.queue))
	}

	for _, f := range m.filterChain.Filters() {
		zlog.Debug().Msgf("filter enabled: name=%s", f.Name())
	}
	return nil
}

// Start launches the scan loop, the monitor loop and the event loop.
func (m *Manager) Start(ctx context.Context) error {
	if !m.stateMgr.Activate(time.Now()) {
		return errors.Wrapf(ErrSessionNotRunning, "cannot start from phase %s", m.stateMgr.GetPhase())
	}

	// Loops follow the manager's lifetime, not the caller's.
	go func() {
		select {
		case <-ctx.Done():
			m.Close()
		case <-m.ctx.Done():
		}
	}()

	m.wg.Add(3)
	go func() {
		defer m.wg.Done()
		m.registry.Run(m.ctx, m.config.Discovery.ScanInterval)
	}()
	go func() {
		defer m.wg.Done()
		m.playback.Run(m.ctx)
	}()
	go m.eventLoop()

	zlog.Info().Msgf("phase changed: phase=%s scan_interval=%v poll_interval=%v",
		state.PhaseActive, m.config.Discovery.ScanInterval, m.config.Playback.PollInterval)
	return nil
}

// Close stops all loops and releases the controller. It is safe to call more
// than once.
func (m *Manager) Close() {
	if !m.stateMgr.Terminate(time.Now()) {
		return
	}
	zlog.Info().Msgf("phase changed: phase=%s", state.PhaseTerminated)

	m.cancel()
	m.wg.Wait()
	m.playback.Close()
	m.notification.Close()
	close(m.done)
}

// Done returns a channel that is closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Devices returns the current device snapshot.
func (m *Manager) Devices() []device.Device {
	return m.registry.GetAll()
}

// LastScan returns when the device snapshot was last replaced.
func (m *Manager) LastScan() time.Time {
	return m.registry.LastScan()
}

// Queue returns a copy of the queued items.
func (m *Manager) Queue() []track.Item {
	return m.queue.List()
}

// Status returns the current status.
func (m *Manager) Status() Status {
	return Status{
		Phase:           m.stateMgr.GetPhase(),
		Playback:        m.playback.Status(),
		QueueSize:       m.queue.Len(),
		DeviceCount:     m.registry.Count(),
		LastScan:        m.registry.LastScan(),
		SubscriberCount: m.notification.SubscriberCount(),
	}
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// PlayNow preempts whatever is playing and plays item on its device.
// A rejected request returns false and the filter code.
func (m *Manager) PlayNow(ctx context.Context, item track.Item) (bool, string, error) {
	if !m.stateMgr.CanAcceptRequests() {
		return false, "not_accepting", nil
	}

	result := m.filterChain.Execute(ctx, filter.Request{Kind: filter.RequestPlayNow, Item: item})
	zlog.Info().Msgf("play now request: device=%s title=%s result=%t code=%s",
		item.DeviceName, item.DisplayTitle(), result.Accepted, result.Code)
	if !result.Accepted {
		return false, result.Code, nil
	}

	// The dispatch must not be cut short when the caller goes away.
	m.playback.PlayNow(context.WithoutCancel(ctx), item.DeviceName, item)
	return true, "", nil
}

// Enqueue appends item to the queue. The monitor picks it up on its next
// cycle when nothing is playing.
func (m *Manager) Enqueue(ctx context.Context, item track.Item) (bool, string, error) {
	if !m.stateMgr.CanAcceptRequests() {
		return false, "not_accepting", nil
	}

	result := m.filterChain.Execute(ctx, filter.Request{Kind: filter.RequestEnqueue, Item: item})
	zlog.Info().Msgf("enqueue request: device=%s title=%s result=%t code=%s",
		item.DeviceName, item.DisplayTitle(), result.Accepted, result.Code)
	if !result.Accepted {
		return false, result.Code, nil
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	size := m.queue.Add(item)
	zlog.Debug().Msgf("item queued: device=%s title=%s queue_size=%d", item.DeviceName, item.DisplayTitle(), size)
	return true, "", nil
}

// EnqueueFolder queues every audio file directly below relPath for
// deviceName. Each file passes the filter chain on its own; the first
// rejection code is returned when nothing could be added.
func (m *Manager) EnqueueFolder(ctx context.Context, deviceName, relPath string) (int, string, error) {
	if !m.stateMgr.CanAcceptRequests() {
		return 0, "not_accepting", nil
	}
	if m.library == nil {
		return 0, "", ErrLibraryDisabled
	}

	items, err := m.library.FolderItems(deviceName, relPath)
	if err != nil {
		if code := libraryCode(err); code != "" {
			zlog.Warn().Msgf("folder request rejected: device=%s path=%s code=%s", deviceName, relPath, code)
			return 0, code, nil
		}
		return 0, "", errors.Wrapf(err, "failed to list folder: path=%s", relPath)
	}
	if len(items) == 0 {
		return 0, "empty_folder", nil
	}

	added := 0
	firstCode := ""
	now := time.Now()
	for _, item := range items {
		result := m.filterChain.Execute(ctx, filter.Request{Kind: filter.RequestFolder, Item: item})
		if !result.Accepted {
			if firstCode == "" {
				firstCode = result.Code
			}
			zlog.Debug().Msgf("folder item rejected: device=%s title=%s code=%s", deviceName, item.Title, result.Code)
			continue
		}
		item.AddedAt = now
		m.queue.Add(item)
		added++
	}

	zlog.Info().Msgf("folder request: device=%s path=%s files=%d added=%d", deviceName, relPath, len(items), added)
	if added == 0 {
		return 0, firstCode, nil
	}
	return added, "", nil
}

// Next stops the current item and lets the monitor advance.
func (m *Manager) Next(ctx context.Context) error {
	if !m.stateMgr.CanAcceptRequests() {
		return ErrSessionNotRunning
	}
	m.playback.Next(context.WithoutCancel(ctx))
	return nil
}

// Stop stops playback and clears the queue.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.stateMgr.CanAcceptRequests() {
		return ErrSessionNotRunning
	}
	m.playback.Stop(context.WithoutCancel(ctx), true, false)
	return nil
}

// Browse lists a library folder.
func (m *Manager) Browse(relPath string) (*media.Listing, error) {
	if m.library == nil {
		return nil, ErrLibraryDisabled
	}
	return m.library.List(relPath)
}

// CoverArt returns a cover image URL for the album, or the placeholder.
func (m *Manager) CoverArt(ctx context.Context, artist, album string) string {
	if m.artwork == nil {
		if m.config.Artwork.Placeholder != "" {
			return m.config.Artwork.Placeholder
		}
		return artwork.DefaultPlaceholder
	}
	return m.artwork.Lookup(ctx, artist, album)
}

// eventLoop turns controller events into notifications.
func (m *Manager) eventLoop() {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("event loop panicked: %v", r)
			// Restart loop so notifications keep flowing.
			zlog.Info().Msg("restarting event loop")
			m.wg.Add(1)
			go m.eventLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent broadcasts an event and mirrors it to the publisher.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	n := m.buildNotification(event)
	zlog.Info().Msgf("playback event: type=%s state=%s device=%s title=%s queue_size=%d",
		n.Type, n.State, n.DeviceName, n.Title, n.QueueSize)

	m.notification.Broadcast(n)

	if m.publisher != nil {
		if err := m.publisher.PublishNotification(n); err != nil {
			zlog.Warn().Msgf("failed to publish playback event: type=%s error=%v", n.Type, err)
		}
	}
}

func (m *Manager) buildNotification(event playback.Event) *castboxv1.Notification {
	return &castboxv1.Notification{
		Type:       event.Type.String(),
		State:      event.State.String(),
		SessionID:  event.SessionID,
		DeviceName: event.DeviceName,
		Title:      event.Item.DisplayTitle(),
		QueueSize:  m.queue.Len(),
		Time:       event.Time.Format(time.RFC3339),
	}
}

func (m *Manager) publishDevices(devices []device.Device) {
	if err := m.publisher.PublishDevices(devices); err != nil {
		zlog.Warn().Msgf("failed to publish devices: count=%d error=%v", len(devices), err)
	}
}

// libraryCode maps library errors to request codes.
func libraryCode(err error) string {
	switch {
	case errors.Is(err, library.ErrOutsideRoot):
		return "invalid_path"
	case errors.Is(err, library.ErrNotFound):
		return "path_not_found"
	case errors.Is(err, library.ErrNoPublicURL):
		return "no_public_url"
	default:
		return ""
	}
}
