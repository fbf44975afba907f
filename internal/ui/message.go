package ui

import (
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/tasks"
)

// syncEventMsg carries one [tasks.SyncEvent] from the polling loop.
type syncEventMsg tasks.SyncEvent

type devicesFetchedMsg struct {
	devices []models.Device
	err     error
}

type progressUpdateMsg tasks.ProgressUpdate

type applyCompleteMsg struct {
	result *tasks.ApplyResult
	err    error
}

type syncStartedMsg struct {
	err error
}
