package playback

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/app/backend"
	"github.com/osa030/castbox/internal/domain/device"
	"github.com/osa030/castbox/internal/domain/track"
)

// Config holds controller configuration.
type Config struct {
	PollInterval   time.Duration // Monitor cycle interval
	StopTimeout    time.Duration // How long STOPPING waits for confirmation
	GracePeriod    time.Duration // Status is assumed playing this long after dispatch
	ProbeTimeout   time.Duration // Bound on a single status probe
	CommandTimeout time.Duration // Bound on a synchronous play or stop command
}

func (c *Config) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 8 * time.Second
	}
	if c.GracePeriod < 0 {
		c.GracePeriod = 0
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 1500 * time.Millisecond
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 10 * time.Second
	}
}

// Devices looks up devices in the latest registry snapshot.
type Devices interface {
	Get(name string) (device.Device, error)
}

// Queue is the part of the queue store the controller consumes.
type Queue interface {
	PopFront() (track.Item, bool)
	Clear() []track.Item
}

// session is the live playback session.
// Fields are guarded by Controller.mu; backend calls happen outside it.
type session struct {
	id      string
	device  device.Device
	item    track.Item
	kind    track.Kind
	backend backend.Backend

	startedAt       time.Time
	stopRequestedAt time.Time // zero when no stop was requested
	stopping        bool
	skipRequested   bool
	advanceOnStop   bool
}

// Status is a snapshot of the controller.
type Status struct {
	State           State
	SessionID       string
	DeviceName      string
	Item            track.Item
	Kind            track.Kind
	Backend         string
	StartedAt       time.Time
	StopRequestedAt time.Time
	SkipRequested   bool
	AdvanceOnStop   bool
}

// Controller owns the single playback session, reconciles it against
// device-reported status and autoplays the next queued item.
type Controller struct {
	mu      sync.Mutex
	session *session
	closed  bool

	// dispatchMu serialises dispatches so that a monitor cycle and a
	// play-now request never install sessions concurrently.
	dispatchMu sync.Mutex
	// cancelPlay aborts the Play call of the dispatch in flight, if any.
	cancelPlay context.CancelFunc

	devices  Devices
	queue    Queue
	resolver backend.Resolver
	config   Config
	now      func() time.Time

	eventCh chan Event
}

// NewController creates a new playback controller.
func NewController(config Config, devices Devices, queue Queue, resolver backend.Resolver) *Controller {
	config.setDefaults()
	return &Controller{
		devices:  devices,
		queue:    queue,
		resolver: resolver,
		config:   config,
		now:      time.Now,
		eventCh:  make(chan Event, 10),
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Status returns the current controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return Status{State: StateIdle}
	}
	st := Status{
		State:           c.stateLocked(),
		SessionID:       s.id,
		DeviceName:      s.device.Name,
		Item:            s.item,
		Kind:            s.kind,
		StartedAt:       s.startedAt,
		StopRequestedAt: s.stopRequestedAt,
		SkipRequested:   s.skipRequested,
		AdvanceOnStop:   s.advanceOnStop,
	}
	if s.backend != nil {
		st.Backend = s.backend.Name()
	}
	return st
}

// PlayNow preempts whatever is playing and dispatches item to deviceName.
// A dispatch already in flight has its Play cancelled; PlayNow waits only
// for that backend to return, at most CommandTimeout.
func (c *Controller) PlayNow(ctx context.Context, deviceName string, item track.Item) {
	c.Stop(ctx, false, false)

	c.mu.Lock()
	if c.cancelPlay != nil {
		c.cancelPlay()
	}
	c.mu.Unlock()

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	c.dispatch(ctx, deviceName, item)
}

// Next requests a skip. The following item is dispatched by the monitor once
// the current device is observed stopped or the stop times out.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	if c.session != nil {
		c.session.skipRequested = true
	}
	c.mu.Unlock()

	c.Stop(ctx, false, true)
}

// Stop marks the live session as stopping and sends a best-effort stop to its
// device. The session keeps its device so the monitor can observe the stop.
// Without a live session no device is contacted.
func (c *Controller) Stop(ctx context.Context, clearQueue, advance bool) {
	c.mu.Lock()
	s := c.session
	var b backend.Backend
	if s != nil {
		s.stopping = true
		s.stopRequestedAt = c.now()
		s.advanceOnStop = advance
		if !advance {
			s.skipRequested = false
		}
		b = s.backend
		c.sendEventLocked(EventStopRequested, s)
	}
	c.mu.Unlock()

	if clearQueue {
		if removed := c.queue.Clear(); len(removed) > 0 {
			zlog.Info().Msgf("playback: queue cleared: removed=%d", len(removed))
		}
	}

	if s == nil {
		return
	}
	zlog.Info().Msgf("playback: stop requested: device=%s advance=%v clear_queue=%v",
		s.device.Name, advance, clearQueue)
	c.stopBackend(ctx, s.device.Name, b)
}

// Run runs the monitor loop until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	zlog.Info().Msgf("playback monitor started: poll=%s grace=%s stop_timeout=%s",
		c.config.PollInterval, c.config.GracePeriod, c.config.StopTimeout)

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		c.reconcileSafe(ctx)

		select {
		case <-ctx.Done():
			zlog.Info().Msg("playback monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) reconcileSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback: monitor cycle panicked: %v", r)
		}
	}()
	c.Reconcile(ctx)
}

// Reconcile runs one monitor cycle. At most one dispatch happens per cycle.
func (c *Controller) Reconcile(ctx context.Context) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		c.dispatchMu.Lock()
		defer c.dispatchMu.Unlock()
		c.mu.Lock()
		idle := c.session == nil
		c.mu.Unlock()
		if idle {
			c.advance(ctx)
		}
		return
	}

	playing := c.probe(ctx, s)

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	if c.session != s {
		// Replaced by a dispatch while the probe was in flight.
		c.mu.Unlock()
		return
	}

	now := c.now()
	var next bool
	switch {
	case s.stopping:
		timedOut := !s.stopRequestedAt.IsZero() && now.Sub(s.stopRequestedAt) > c.config.StopTimeout
		if playing && !timedOut {
			c.mu.Unlock()
			return
		}
		c.session = nil
		next = s.advanceOnStop || s.skipRequested
		if timedOut && playing {
			zlog.Info().Msgf("playback: stop not confirmed, giving up: device=%s waited=%s",
				s.device.Name, now.Sub(s.stopRequestedAt).Round(time.Millisecond))
			c.sendEventLocked(EventStopTimedOut, s)
		} else {
			zlog.Info().Msgf("playback: stop confirmed: device=%s", s.device.Name)
			c.sendEventLocked(EventStopped, s)
		}
	case !playing:
		c.session = nil
		next = true
		zlog.Info().Msgf("playback: track finished: device=%s title=%s", s.device.Name, s.item.DisplayTitle())
		c.sendEventLocked(EventTrackFinished, s)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	release(s.backend)
	if next {
		c.advance(ctx)
	}
}

// probe reports whether the session's device is playing. Unknown status
// counts as not playing; a session inside its grace period counts as playing.
func (c *Controller) probe(ctx context.Context, s *session) bool {
	c.mu.Lock()
	inGrace := c.now().Sub(s.startedAt) < c.config.GracePeriod
	b := s.backend
	c.mu.Unlock()

	if inGrace {
		return true
	}
	if b == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	playing, err := b.IsPlaying(probeCtx)
	if err != nil {
		zlog.Debug().Msgf("playback: status unknown: device=%s backend=%s error=%v", s.device.Name, b.Name(), err)
		return false
	}
	return playing
}

// advance pops the next queue entry and dispatches it.
// Must be called with dispatchMu held.
func (c *Controller) advance(ctx context.Context) {
	item, ok := c.queue.PopFront()
	if !ok {
		return
	}
	c.dispatch(ctx, item.DeviceName, item)
}

// dispatch creates a new session for item on deviceName and issues play.
// Must be called with dispatchMu held.
func (c *Controller) dispatch(ctx context.Context, deviceName string, item track.Item) {
	d, err := c.devices.Get(deviceName)
	if err != nil {
		zlog.Error().Msgf("playback: dispatch aborted, device not found: device=%s title=%s error=%v",
			deviceName, item.DisplayTitle(), err)
		c.mu.Lock()
		c.sendEventLocked(EventDeviceNotFound, &session{device: device.Device{Name: deviceName}, item: item})
		c.mu.Unlock()
		return
	}

	kind := item.Kind()
	var b backend.Backend
	if kind == track.KindInvalid {
		err = track.ErrInvalidItem
	} else {
		b, err = c.resolver.Resolve(d, kind)
	}
	if err != nil {
		zlog.Warn().Msgf("playback: dispatch aborted: device=%s title=%s error=%v", d.Name, item.DisplayTitle(), err)
		c.mu.Lock()
		old := c.session
		c.session = nil
		c.sendEventLocked(EventInvalidItem, &session{device: d, item: item})
		c.mu.Unlock()
		c.retire(ctx, old)
		return
	}

	s := &session{
		id:        uuid.NewString(),
		device:    d,
		item:      item,
		kind:      kind,
		backend:   b,
		startedAt: c.now(),
	}

	c.mu.Lock()
	old := c.session
	c.session = s
	c.sendEventLocked(EventDispatched, s)
	c.mu.Unlock()

	c.retire(ctx, old)

	zlog.Info().Msgf("playback: dispatching: device=%s kind=%s backend=%s title=%s",
		d.Name, kind, b.Name(), item.DisplayTitle())

	playCtx, cancel := context.WithTimeout(ctx, c.config.CommandTimeout)
	defer cancel()
	c.mu.Lock()
	c.cancelPlay = cancel
	c.mu.Unlock()

	err = b.Play(playCtx, item)

	c.mu.Lock()
	c.cancelPlay = nil
	// A stop that landed between installing the session and issuing play
	// reached the device first; repeat it.
	restop := c.session == s && s.stopping
	c.mu.Unlock()

	if err != nil {
		zlog.Error().Msgf("playback: play failed: device=%s backend=%s error=%v", d.Name, b.Name(), err)
	}
	if restop {
		c.stopBackend(ctx, d.Name, b)
	}
}

// retire stops a replaced session that was still playing and releases its backend.
func (c *Controller) retire(ctx context.Context, old *session) {
	if old == nil {
		return
	}
	if !old.stopping {
		c.stopBackend(ctx, old.device.Name, old.backend)
	}
	release(old.backend)
}

func (c *Controller) stopBackend(ctx context.Context, deviceName string, b backend.Backend) {
	if b == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(ctx, c.config.CommandTimeout)
	defer cancel()
	if err := b.Stop(stopCtx); err != nil {
		zlog.Warn().Msgf("playback: stop command failed: device=%s backend=%s error=%v", deviceName, b.Name(), err)
	}
}

// release frees connection resources held by a backend.
func release(b backend.Backend) {
	closer, ok := b.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		zlog.Debug().Msgf("playback: backend release failed: backend=%s error=%v", b.Name(), err)
	}
}

// Close stops event delivery and releases the live backend.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	s := c.session
	close(c.eventCh)
	c.mu.Unlock()

	if s != nil {
		release(s.backend)
	}
}

// stateLocked derives the state from the session.
// Must be called with lock held.
func (c *Controller) stateLocked() State {
	switch {
	case c.session == nil:
		return StateIdle
	case c.session.stopping:
		return StateStopping
	default:
		return StatePlaying
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType, s *session) {
	if c.closed {
		return
	}
	e := Event{
		Type:       t,
		SessionID:  s.id,
		DeviceName: s.device.Name,
		Item:       s.item,
		State:      c.stateLocked(),
		Time:       c.now(),
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event dropped, channel full: type=%s", t)
	}
}
