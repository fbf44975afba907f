// Package models defines the data exchanged between the spx session layer and its callers.
//
// The package has no behavior beyond small helpers and imports nothing from the rest of the module:
//   - [CredentialSet] : access token, refresh token, and expiry replaced together as one unit
//   - [Device] : a remote-reported playback target, read-only and never cached
//   - [PlaybackSnapshot] : the remote playback state captured by one poll
//   - [Profile] : a named bundle of source, volume, shuffle and repeat settings
//   - [StepOutcome] : the result of a single step while applying a [Profile]
package models
