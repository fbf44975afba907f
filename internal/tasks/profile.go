package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/invoker"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// placeholderPattern matches template values left in an unedited configuration file.
var placeholderPattern = regexp.MustCompile(`(?i)^(your[_-].*|.*[_-]here|<.*>|changeme|placeholder|todo|x{3,})$`)

// Player is the set of remote calls the composite operations need.
type Player interface {
	Devices(ctx context.Context) ([]models.Device, error)
	PlaybackState(ctx context.Context) (*models.PlaybackSnapshot, error)
	Play(ctx context.Context, deviceID, sourceRef string) error
	SetVolume(ctx context.Context, deviceID string, percent int) error
	SetShuffle(ctx context.Context, deviceID string, on bool) error
	SetRepeat(ctx context.Context, deviceID string, mode models.RepeatMode) error
}

// Session reports whether credentials are installed.
type Session interface {
	IsAuthenticated() bool
}

// AuthenticateFunc runs the interactive authorization.
type AuthenticateFunc func(ctx context.Context) error

// ApplyRequest names the profile to apply and an optional device override.
type ApplyRequest struct {
	Name    string
	Profile models.Profile
	Device  string // Device name or ID; empty selects automatically
}

// ApplyResult is the outcome of one profile application.
//
// On an aborted run FailedStep and Err describe the first failure; steps before it stay applied.
type ApplyResult struct {
	RunID         string               `json:"runId"`
	Succeeded     bool                 `json:"succeeded"`
	ProfileName   string               `json:"profileName"`
	Device        models.Device        `json:"device"`
	SourceRef     string               `json:"sourceRef"`
	AppliedVolume *int                 `json:"appliedVolume,omitempty"`
	FailedStep    string               `json:"failedStep,omitempty"`
	Err           error                `json:"-"`
	Steps         []models.StepOutcome `json:"steps"`
}

// ValidateProfile checks p without touching the network. Failures wrap [shared.ErrInvalidConfig].
func ValidateProfile(p models.Profile) error {
	ref := strings.TrimSpace(p.SourceRef)
	if ref == "" {
		return fmt.Errorf("%w: source_ref is required", shared.ErrInvalidConfig)
	}
	if IsPlaceholder(ref) {
		return fmt.Errorf("%w: source_ref %q is an unconfigured placeholder", shared.ErrInvalidConfig, ref)
	}
	if p.Repeat != nil && !p.Repeat.Valid() {
		return fmt.Errorf("%w: repeat must be off, single or context, got %q", shared.ErrInvalidConfig, *p.Repeat)
	}
	return nil
}

// IsPlaceholder reports whether ref, or any colon-separated part of it, looks like a template value.
func IsPlaceholder(ref string) bool {
	if placeholderPattern.MatchString(ref) {
		return true
	}
	for _, part := range strings.Split(ref, ":") {
		if placeholderPattern.MatchString(part) {
			return true
		}
	}
	return false
}

// ClampVolume bounds v to 0..100.
func ClampVolume(v int) int {
	return max(0, min(100, v))
}

// ProfileSwitcher applies profiles to a selected device.
type ProfileSwitcher struct {
	player       Player
	invoker      *invoker.Invoker
	session      Session
	authenticate AuthenticateFunc
	logger       *log.Logger
}

func NewProfileSwitcher(player Player, inv *invoker.Invoker, session Session, authenticate AuthenticateFunc, logger *log.Logger) *ProfileSwitcher {
	return &ProfileSwitcher{
		player:       player,
		invoker:      inv,
		session:      session,
		authenticate: authenticate,
		logger:       shared.WithLogger(logger, "component", "profiles"),
	}
}

type profileStep struct {
	phase  Phase
	detail string
	run    func(ctx context.Context) error
}

// Apply validates req, authenticates if needed, selects a device and runs the profile steps.
//
// Validation, authorization and device selection failures are returned as errors. Once steps begin the
// result reports success or the first failed step.
func (s *ProfileSwitcher) Apply(ctx context.Context, req ApplyRequest, progress chan<- ProgressUpdate) (*ApplyResult, error) {
	profile := req.Profile
	profile.SourceRef = strings.TrimSpace(profile.SourceRef)

	sendProgress(progress, validateUpdate(req.Name))
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	if !s.session.IsAuthenticated() {
		sendProgress(progress, authenticateUpdate())
		if err := s.authenticate(ctx); err != nil {
			return nil, err
		}
	}

	devices, err := invoker.Do(ctx, s.invoker, "devices", s.player.Devices)
	if err != nil {
		return nil, err
	}
	device, err := SelectDeviceNamed(devices, req.Device)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, selectedDeviceUpdate(device))

	result := &ApplyResult{
		RunID:       shared.GenerateID(),
		ProfileName: req.Name,
		Device:      device,
		SourceRef:   profile.SourceRef,
	}
	logger := s.logger.With("run_id", result.RunID, "profile", req.Name, "device", device.Name)

	steps := s.steps(profile, device.ID, result)
	for i, step := range steps {
		sendProgress(progress, stepUpdate(step.phase, i+1, len(steps), step.detail))

		err := invoker.Exec(ctx, s.invoker, step.phase.String(), step.run)
		result.Steps = append(result.Steps, models.StepOutcome{Step: step.phase.String(), Succeeded: err == nil, Err: err})
		if err != nil {
			logger.Warn("profile step failed, aborting", "step", step.phase, "error", err)
			sendProgress(progress, stepFailedUpdate(step.phase, i+1, len(steps), err))
			result.FailedStep = step.phase.String()
			result.Err = err
			return result, nil
		}
	}

	result.Succeeded = true
	logger.Info("profile applied", "steps", len(result.Steps))
	sendProgress(progress, finishedUpdate(result))
	return result, nil
}

func (s *ProfileSwitcher) steps(p models.Profile, deviceID string, result *ApplyResult) []profileStep {
	steps := []profileStep{{
		phase:  StartPlayback,
		detail: "Starting " + p.SourceRef,
		run: func(ctx context.Context) error {
			return s.player.Play(ctx, deviceID, p.SourceRef)
		},
	}}

	if p.Volume != nil {
		volume := ClampVolume(*p.Volume)
		steps = append(steps, profileStep{
			phase:  ApplyVolume,
			detail: fmt.Sprintf("Setting volume to %d%%", volume),
			run: func(ctx context.Context) error {
				if err := s.player.SetVolume(ctx, deviceID, volume); err != nil {
					return err
				}
				result.AppliedVolume = &volume
				return nil
			},
		})
	}

	if p.Shuffle != nil {
		shuffle := *p.Shuffle
		steps = append(steps, profileStep{
			phase:  ApplyShuffle,
			detail: fmt.Sprintf("Setting shuffle %t", shuffle),
			run: func(ctx context.Context) error {
				return s.player.SetShuffle(ctx, deviceID, shuffle)
			},
		})
	}

	if p.Repeat != nil {
		repeat := *p.Repeat
		steps = append(steps, profileStep{
			phase:  ApplyRepeat,
			detail: fmt.Sprintf("Setting repeat %s", repeat),
			run: func(ctx context.Context) error {
				return s.player.SetRepeat(ctx, deviceID, repeat)
			},
		})
	}
	return steps
}
