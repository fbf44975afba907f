package services

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/spx/internal/shared"
)

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string // Player error reason, e.g. NO_ACTIVE_DEVICE
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized
	case shared.ErrNoDevice:
		return e.Reason == "NO_ACTIVE_DEVICE"
	case shared.ErrServiceUnavailable:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// errorBody is the Spotify error envelope.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}
