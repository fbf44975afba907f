package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlayerState prints one playback snapshot.
func (r *Runner) PlayerState(ctx context.Context, cmd *cli.Command) error {
	defer r.close()

	client, err := r.authenticated(ctx, cmd)
	if err != nil {
		return err
	}

	snapshot, err := client.CurrentState(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch playback state: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.SnapshotToText(snapshot))
}

// PlayerDevices lists playback devices as text, CSV or JSON.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	defer r.close()

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		format = formatter.JSON
	}
	if format == formatter.Markdown {
		return fmt.Errorf("%w: devices support text, csv or json", shared.ErrInvalidArgument)
	}

	client, err := r.authenticated(ctx, cmd)
	if err != nil {
		return err
	}

	devices, err := client.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	r.logger.Debug("fetched devices", "count", len(devices))

	var data []byte
	switch format {
	case formatter.JSON:
		if data, err = shared.MarshalJSON(devices, cmd.Bool("pretty")); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		data = append(data, '\n')
	case formatter.CSV:
		if data, err = formatter.DevicesToCSV(devices); err != nil {
			return err
		}
	default:
		data = formatter.DevicesToText(devices)
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d devices to %s\n", len(devices), path)
	}
	return r.writeBytes(data)
}

// PlayerWatch polls playback state and prints each change, or hands the session to the terminal UI.
func (r *Runner) PlayerWatch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}
	defer r.close()

	client, err := r.authenticated(ctx, cmd)
	if err != nil {
		return err
	}
	interval := cmd.Duration("interval")

	if cmd.Bool("tui") {
		model := ui.NewModel(ctx, client, r.loadConfig(cmd).Profiles, interval)
		if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	}

	if err := client.StartSync(ctx, interval); err != nil {
		return err
	}
	defer client.StopSync()

	limit := cmd.Int("count")
	changes := 0
	last := ""
	r.writePlain("→ Watching playback (Ctrl+C to stop)\n")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-client.Events():
			switch event.Kind {
			case tasks.SyncError:
				r.logger.Warn("sync failed, retrying on next tick", "error", event.Err)
				continue
			case tasks.StateChanged:
				text := string(formatter.SnapshotToText(event.Snapshot))
				if text == last {
					continue
				}
				last = text

				r.writePlain("\n[%s]\n%s", event.At.Local().Format("15:04:05"), strings.TrimRight(text, "\n")+"\n")
				changes++
				if limit > 0 && changes >= limit {
					return nil
				}
			}
		}
	}
}
