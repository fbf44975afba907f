// Package services implements the Spotify Web API calls spx makes.
//
// # Spotify Implementation
//
// [SpotifyService] covers the player endpoints (state, devices, play, volume, shuffle, repeat) and /me.
// It reads the bearer token from a [TokenSource] on every request, so a call retried after a refresh
// picks up the new token. Requests are paced with a [rate.Limiter].
//
// # Error Handling
//
// Non-2xx responses become an [*APIError], which matches through errors.Is:
//   - [shared.ErrTokenExpired] : HTTP 401, retried once by the invoker package
//   - [shared.ErrNoDevice] : player command rejected with NO_ACTIVE_DEVICE
//   - [shared.ErrServiceUnavailable] : HTTP 429 or 5xx
//   - [shared.ErrAPIRequest] : every non-2xx response
//
// # API Mappings
//
// Spotify JSON is converted to [models.PlaybackSnapshot] and [models.Device]. The profile repeat mode
// "single" is sent to Spotify as "track".
package services
