package filter

import (
	"context"

	"github.com/osa030/castbox/internal/domain/device"
)

// DeviceLookup looks up a device in the registry snapshot.
type DeviceLookup interface {
	Get(name string) (device.Device, error)
}

// KnownDeviceFilter rejects requests targeting a device absent from the latest scan.
// The controller repeats the lookup at dispatch time, so a device that
// disappears after admission is still handled there.
type KnownDeviceFilter struct {
	devices DeviceLookup
}

// NewKnownDeviceFilter creates a new KnownDeviceFilter.
func NewKnownDeviceFilter(devices DeviceLookup) *KnownDeviceFilter {
	return &KnownDeviceFilter{devices: devices}
}

func (f *KnownDeviceFilter) Name() string {
	return "known_device_filter"
}

func (f *KnownDeviceFilter) Description() string {
	return "Rejects requests for devices not present in the latest discovery scan"
}

func (f *KnownDeviceFilter) ReturnCodes() []string {
	return []string{"device_not_found"}
}

func (f *KnownDeviceFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *KnownDeviceFilter) AppliesTo(kind RequestKind) bool {
	return true
}

func (f *KnownDeviceFilter) Check(ctx context.Context, req Request) Result {
	if f.devices == nil {
		return Accept()
	}
	if _, err := f.devices.Get(req.Item.DeviceName); err != nil {
		return Reject("device_not_found")
	}
	return Accept()
}

func init() {
	Register("known_device_filter", func() Filter {
		return &KnownDeviceFilter{}
	})
}
