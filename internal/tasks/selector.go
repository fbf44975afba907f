package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// SelectDevice picks the active device, else the first listed, else fails with [shared.ErrNoDevice].
func SelectDevice(devices []models.Device) (models.Device, error) {
	if len(devices) == 0 {
		return models.Device{}, shared.ErrNoDevice
	}
	for _, d := range devices {
		if d.IsActive {
			return d, nil
		}
	}
	return devices[0], nil
}

// SelectDeviceNamed picks the device whose name or ID equals name, ignoring case.
//
// An empty name falls back to [SelectDevice].
func SelectDeviceNamed(devices []models.Device, name string) (models.Device, error) {
	if name == "" {
		return SelectDevice(devices)
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name, name) || strings.EqualFold(d.ID, name) {
			return d, nil
		}
	}
	return models.Device{}, fmt.Errorf("%w: no device named %q", shared.ErrNoDevice, name)
}
