// Package server provides the transient HTTP callback listener used by the PKCE authorization flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback. It validates the state parameter
// (CSRF protection), hands the code to an [ExchangeFunc], answers the browser with a success or
// failure page, and reports exactly one [OAuthResult] through a channel. Later hits are rejected.
//
// # Callback Listener
//
// [CallbackListener] binds the callback address synchronously, serves a single [Handler], and is
// released with [CallbackListener.Close]. Close is idempotent and returns only after the port is
// no longer bound, so a caller can defer it on every exit path of an authorization attempt.
package server
