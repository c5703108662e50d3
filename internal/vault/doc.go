// Package vault stores the session credentials in the key-value store.
//
// The credential record (access token, refresh token, user id, role) is
// written with one MultiSet and cleared with one MultiRemove so readers never
// observe a half-written session. Remembered login credentials live under
// their own keys and survive token clears; they are only read by the login
// flows. The pending recording queue is never touched here.
package vault
