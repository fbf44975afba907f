package models

import "time"

// PlaybackItem is the track or episode currently loaded on the player.
type PlaybackItem struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMs int      `json:"duration_ms"`
}

// PlaybackSnapshot is the remote player state captured by one poll.
//
// Item and Device are nil when nothing is loaded or no device is active.
type PlaybackSnapshot struct {
	IsPlaying  bool          `json:"is_playing"`
	Item       *PlaybackItem `json:"item,omitempty"`
	Device     *Device       `json:"device,omitempty"`
	ContextURI string        `json:"context_uri,omitempty"`
	Shuffle    bool          `json:"shuffle"`
	Repeat     RepeatMode    `json:"repeat"`
	ProgressMs int           `json:"progress_ms"`
	FetchedAt  time.Time     `json:"fetched_at"`
}
