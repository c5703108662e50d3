// Package api is the HTTP client core for the vocalization service.
//
// Every request is decorated with the static X-API-Key header, JSON content
// negotiation, and, for the authenticated client, the bearer token held in
// the vault. A 401 on a first attempt hands control to the Coordinator: one
// caller refreshes the session (refresh token first, remembered credentials
// second) while the rest wait in FIFO order and then retry with the new
// token. When every renewal path fails the vault's auth keys are cleared, the
// navigator is sent to the login route, and callers receive
// apierr.KindAuthPermanentFailure wrapping their original error.
//
// NewPublic builds an undecorated client for the login, registration, and
// recovery endpoints, where a 401 means bad credentials rather than an
// expired session.
package api
