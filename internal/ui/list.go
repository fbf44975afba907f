package ui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spx/internal/models"
)

var (
	_ list.Item = deviceItem{}
	_ list.Item = profileItem{}
)

// deviceItem wraps [models.Device] to implement [list.Item].
type deviceItem struct {
	device models.Device
}

func (i deviceItem) FilterValue() string { return i.device.Name }
func (i deviceItem) Title() string {
	if i.device.IsActive {
		return "▶ " + i.device.Name
	}
	return i.device.Name
}
func (i deviceItem) Description() string {
	return fmt.Sprintf("%s • volume %d%%", i.device.Type, i.device.VolumePercent)
}

// profileItem wraps a named [models.Profile] to implement [list.Item].
type profileItem struct {
	name    string
	profile models.Profile
}

func (i profileItem) FilterValue() string { return i.name }
func (i profileItem) Title() string       { return i.name }
func (i profileItem) Description() string {
	desc := i.profile.SourceRef
	if i.profile.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.profile.Description)
	}
	return desc
}

func deviceItems(devices []models.Device) []list.Item {
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = deviceItem{device: d}
	}
	return items
}

// profileItems returns the profiles sorted by name.
func profileItems(profiles map[string]models.Profile) []list.Item {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]list.Item, len(names))
	for i, name := range names {
		items[i] = profileItem{name: name, profile: profiles[name]}
	}
	return items
}
