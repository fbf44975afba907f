package models

// Device is a playback target reported by the remote service.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"` // Computer, Smartphone, Speaker, ...
	VolumePercent int    `json:"volume_percent"`
	IsActive      bool   `json:"is_active"`
}
