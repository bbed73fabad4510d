// Package registry holds the device snapshot shared by the controller and the API.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/device"
)

// ErrDeviceNotFound is returned when a device is absent from the latest snapshot.
var ErrDeviceNotFound = errors.New("device not found")

// Scanner produces the complete device list for one scan cycle.
// Per-source failures are expected to be handled inside the scanner.
type Scanner interface {
	Discover(ctx context.Context) []device.Device
}

// DeviceRegistry keeps the latest device snapshot with thread-safe access.
// Every scan replaces the snapshot wholesale.
type DeviceRegistry struct {
	mu       sync.RWMutex
	devices  map[string]device.Device
	scanner  Scanner
	lastScan time.Time
	onScan   func([]device.Device)
}

// NewDeviceRegistry creates a new device registry.
func NewDeviceRegistry(scanner Scanner) *DeviceRegistry {
	return &DeviceRegistry{
		devices: make(map[string]device.Device),
		scanner: scanner,
	}
}

// OnScan registers a callback invoked with the sorted snapshot after every
// scan. It must be set before Run starts.
func (r *DeviceRegistry) OnScan(fn func([]device.Device)) {
	r.onScan = fn
}

// ScanOnce queries every source and swaps in the merged result.
func (r *DeviceRegistry) ScanOnce(ctx context.Context) {
	found := device.Snapshot(r.scanner.Discover(ctx))

	r.mu.Lock()
	r.devices = found
	r.lastScan = time.Now()
	r.mu.Unlock()

	zlog.Debug().Msgf("device scan completed: devices=%d", len(found))
	if r.onScan != nil {
		r.onScan(r.GetAll())
	}
}

// Run scans at the given interval until ctx is cancelled.
// The first scan happens immediately.
func (r *DeviceRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.ScanOnce(ctx)
		select {
		case <-ctx.Done():
			zlog.Debug().Msg("device scan loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// Get returns the device with the given name from the current snapshot.
func (r *DeviceRegistry) Get(name string) (device.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[name]
	if !ok {
		return device.Device{}, errors.Wrapf(ErrDeviceNotFound, "name=%s", name)
	}
	return d, nil
}

// GetAll returns a copy of the current snapshot sorted by name.
func (r *DeviceRegistry) GetAll() []device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Count returns the number of devices in the snapshot.
func (r *DeviceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// LastScan returns the completion time of the last scan.
func (r *DeviceRegistry) LastScan() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastScan
}
