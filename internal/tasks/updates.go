package tasks

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within the operation
	Total   int    // Total steps in the operation
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	Authenticate
	SelectTarget
	StartPlayback
	ApplyVolume
	ApplyShuffle
	ApplyRepeat
	Finished
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case Authenticate:
		return "authenticate"
	case SelectTarget:
		return "select_device"
	case StartPlayback:
		return "play"
	case ApplyVolume:
		return "volume"
	case ApplyShuffle:
		return "shuffle"
	case ApplyRepeat:
		return "repeat"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func validateUpdate(name string) ProgressUpdate {
	return ProgressUpdate{Phase: Validate, Message: fmt.Sprintf("Validating profile %s...", name)}
}

func authenticateUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Authenticate, Message: "Not authenticated, starting authorization..."}
}

func selectedDeviceUpdate(d models.Device) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectTarget,
		Message: fmt.Sprintf("Using device %s (%s)", d.Name, d.Type),
		Data:    d,
	}
}

func stepUpdate(phase Phase, step, total int, detail string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, detail),
	}
}

func stepFailedUpdate(phase Phase, step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, phase, err),
	}
}

func finishedUpdate(result *ApplyResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    len(result.Steps),
		Total:   len(result.Steps),
		Message: fmt.Sprintf("✓ Profile %s applied", result.ProfileName),
		Data:    result,
	}
}
