// package formatter renders devices, playback snapshots and profile results as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
)

// Format names an output encoding accepted by the CLI.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

// ParseFormat maps a flag value to a [Format], defaulting to [Text] when empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return Text, nil
	case Text, CSV, Markdown, JSON:
		return f, nil
	case "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv, markdown or json)", shared.ErrInvalidArgument, s)
	}
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// DevicesToCSV writes one row per device with columns: ID, Name, Type, Volume, Active
func DevicesToCSV(devices []models.Device) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Type", "Volume", "Active"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range devices {
		record := []string{
			d.ID,
			d.Name,
			d.Type,
			strconv.Itoa(d.VolumePercent),
			strconv.FormatBool(d.IsActive),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// DevicesToText lists devices, marking the one automatic selection would pick.
func DevicesToText(devices []models.Device) []byte {
	var buf bytes.Buffer

	if len(devices) == 0 {
		buf.WriteString("No devices available. Open Spotify on a phone, desktop or speaker.\n")
		return buf.Bytes()
	}

	selected, _ := tasks.SelectDevice(devices)
	buf.WriteString(fmt.Sprintf("Devices: %d\n\n", len(devices)))
	for i, d := range devices {
		marker := " "
		if d.ID == selected.ID {
			marker = "*"
		}
		buf.WriteString(fmt.Sprintf("%s %d. %s (%s) volume %d%%\n", marker, i+1, d.Name, d.Type, d.VolumePercent))
	}
	return buf.Bytes()
}

// SnapshotToText summarizes one playback snapshot.
func SnapshotToText(s *models.PlaybackSnapshot) []byte {
	var buf bytes.Buffer

	if s == nil || s.Item == nil {
		buf.WriteString("Nothing playing\n")
		return buf.Bytes()
	}

	state := "Paused"
	if s.IsPlaying {
		state = "Playing"
	}
	buf.WriteString(fmt.Sprintf("%s: %s - %s\n", state, strings.Join(s.Item.Artists, ", "), s.Item.Name))
	if s.Item.Album != "" {
		buf.WriteString(fmt.Sprintf("Album: %s\n", s.Item.Album))
	}
	buf.WriteString(fmt.Sprintf("Progress: %s / %s\n", FormatDuration(s.ProgressMs), FormatDuration(s.Item.DurationMs)))
	buf.WriteString(fmt.Sprintf("Shuffle: %s  Repeat: %s\n", OnOff(s.Shuffle), s.Repeat))
	if s.Device != nil {
		buf.WriteString(fmt.Sprintf("Device: %s (%s) volume %d%%\n", s.Device.Name, s.Device.Type, s.Device.VolumePercent))
	}
	return buf.Bytes()
}

// ResultToText reports each attempted step of a profile application.
func ResultToText(r *tasks.ApplyResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Profile: %s\n", r.ProfileName))
	buf.WriteString(fmt.Sprintf("Device: %s\n", r.Device.Name))
	buf.WriteString(fmt.Sprintf("Source: %s\n", r.SourceRef))
	if r.AppliedVolume != nil {
		buf.WriteString(fmt.Sprintf("Volume: %d%%\n", *r.AppliedVolume))
	}
	buf.WriteString("\n")

	for _, step := range r.Steps {
		if step.Succeeded {
			buf.WriteString(fmt.Sprintf("✓ %s\n", step.Step))
		} else {
			buf.WriteString(fmt.Sprintf("✗ %s: %v\n", step.Step, step.Err))
		}
	}

	if r.Succeeded {
		buf.WriteString(fmt.Sprintf("\n✓ Applied %s\n", r.ProfileName))
	} else {
		buf.WriteString(fmt.Sprintf("\n✗ Stopped at %s\n", r.FailedStep))
	}
	return buf.Bytes()
}

// ProfilesToMarkdown renders every configured profile as a Markdown section, sorted by name.
func ProfilesToMarkdown(profiles map[string]models.Profile) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Profiles\n\n")
	for _, name := range sortedNames(profiles) {
		p := profiles[name]
		buf.WriteString(fmt.Sprintf("## %s\n\n", name))
		if p.Description != "" {
			buf.WriteString(fmt.Sprintf("%s\n\n", p.Description))
		}
		buf.WriteString(fmt.Sprintf("- **Source**: `%s`\n", p.SourceRef))
		if p.Volume != nil {
			buf.WriteString(fmt.Sprintf("- **Volume**: %d%%\n", tasks.ClampVolume(*p.Volume)))
		}
		if p.Shuffle != nil {
			buf.WriteString(fmt.Sprintf("- **Shuffle**: %s\n", OnOff(*p.Shuffle)))
		}
		if p.Repeat != nil {
			buf.WriteString(fmt.Sprintf("- **Repeat**: %s\n", *p.Repeat))
		}
		if err := tasks.ValidateProfile(p); err != nil {
			buf.WriteString(fmt.Sprintf("- **Invalid**: %v\n", err))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// ProfilesToText lists configured profiles one per line, sorted by name.
func ProfilesToText(profiles map[string]models.Profile) []byte {
	var buf bytes.Buffer

	if len(profiles) == 0 {
		buf.WriteString("No profiles configured\n")
		return buf.Bytes()
	}

	for _, name := range sortedNames(profiles) {
		p := profiles[name]
		status := "✓"
		if tasks.ValidateProfile(p) != nil {
			status = "✗"
		}
		buf.WriteString(fmt.Sprintf("%s %s  %s\n", status, name, p.SourceRef))
	}
	return buf.Bytes()
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: empty output path", shared.ErrInvalidArgument)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func sortedNames(profiles map[string]models.Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
