// Package ui implements the spx now-playing terminal interface using bubbletea's Elm architecture.
//
// Views:
//  1. [NowPlayingView] : live player state fed by playback sync events
//  2. [DevicesView] : the playback targets Spotify reports
//  3. [ProfilesView] : configured profiles, enter applies the selected one
//  4. [ApplyingView] : progress updates while a profile is applied
//  5. [ResultView] : the outcome of the last profile application
//
// The [Model] implements the standard Init/Update/View pattern. Sync events and profile progress arrive
// on channels and are turned into messages one at a time, so the UI never blocks the poller.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, d, p, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
