// Package tasks implements the composite player operations built on top of the invoker.
//
// # Core Operations
//
//  1. [SelectDevice] : pick the playback target
//     - Prefers the device Spotify reports as active
//     - Falls back to the first device in list order
//     - Fails with [shared.ErrNoDevice] on an empty list
//
//  2. [PlaybackSync] : poll player state in the background
//     - One fetch per tick, published as a [SyncEvent]
//     - Errors become events and never stop the loop
//     - At most one loop per instance; Start replaces the running one
//
//  3. [ProfileSwitcher] : apply a named [models.Profile]
//     - Validates before any network call
//     - Steps run in order play → volume → shuffle → repeat
//     - Stops at the first failing step without undoing earlier ones
//
// # Progress Reporting
//
// [ProfileSwitcher.Apply] and [PlaybackSync] use non-blocking channel sends.
// The [ProgressUpdate] struct carries phase, step counters and a message for the CLI.
// Updates use select with default to prevent blocking.
package tasks
