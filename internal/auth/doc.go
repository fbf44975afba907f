// Package auth owns the spx session credentials.
//
// [Store] holds the single [models.CredentialSet] of a client and is the only thing allowed to replace it.
// [Authenticator] runs one Authorization Code + PKCE handshake against a local callback listener and
// hands the result to the store. Refreshes go through [Refresher] and are shared between concurrent callers.
//
// Credentials are persisted through a [Backend]: a JSON file ([FileBackend]) by default, or the sqlite
// credentials table from the repositories package.
package auth
