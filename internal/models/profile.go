package models

// RepeatMode is the player repeat setting.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatSingle  RepeatMode = "single"
	RepeatContext RepeatMode = "context"
)

// Valid reports whether r is one of the accepted repeat modes.
func (r RepeatMode) Valid() bool {
	switch r {
	case RepeatOff, RepeatSingle, RepeatContext:
		return true
	default:
		return false
	}
}

// Profile is a named bundle of playback settings applied together.
//
// Only SourceRef is required; nil fields are left untouched on the player.
type Profile struct {
	SourceRef   string      `toml:"source_ref" json:"sourceRef"`
	Volume      *int        `toml:"volume" json:"volume,omitempty"`
	Shuffle     *bool       `toml:"shuffle" json:"shuffle,omitempty"`
	Repeat      *RepeatMode `toml:"repeat" json:"repeat,omitempty"`
	Description string      `toml:"description" json:"description,omitempty"`
}

// StepOutcome records one attempted step of a profile application.
type StepOutcome struct {
	Step      string `json:"step"`
	Succeeded bool   `json:"succeeded"`
	Err       error  `json:"-"`
}
