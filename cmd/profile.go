package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ProfileList prints the configured profiles without contacting Spotify.
func (r *Runner) ProfileList(ctx context.Context, cmd *cli.Command) error {
	profiles := r.loadConfig(cmd).Profiles

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		format = formatter.JSON
	}

	switch format {
	case formatter.JSON:
		return r.writeJSON(profiles, cmd.Bool("pretty"))
	case formatter.Markdown:
		return r.writeBytes(formatter.ProfilesToMarkdown(profiles))
	case formatter.CSV:
		return fmt.Errorf("%w: profiles support text, markdown or json", shared.ErrInvalidArgument)
	default:
		return r.writeBytes(formatter.ProfilesToText(profiles))
	}
}

// ProfileApply applies a named profile, printing progress as each step runs.
func (r *Runner) ProfileApply(ctx context.Context, cmd *cli.Command) error {
	defer r.close()

	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: profile name", shared.ErrMissingArgument)
	}

	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := r.session(ctx, cmd)
	if err != nil {
		return err
	}

	jsonOutput := cmd.Bool("json")
	progress := make(chan tasks.ProgressUpdate, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug("profile progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if !jsonOutput {
				r.writePlain("→ [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := client.ApplyNamedProfile(ctx, name, cmd.String("device"), progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := r.writeJSON(result, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.writePlainln("")
		if err := r.writeBytes(formatter.ResultToText(result)); err != nil {
			return err
		}
	}

	if !result.Succeeded {
		return fmt.Errorf("profile %s stopped at %s: %w", name, result.FailedStep, result.Err)
	}
	return nil
}
