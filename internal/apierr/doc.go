// Package apierr defines the tagged error returned by every public vocalize
// operation.
//
// Callers branch on Kind rather than on status codes or transport errors:
// an expired session, a permanent authentication failure, missing
// connectivity, local validation, a server rejection, an unverified account,
// corrupt cached data, and a missing permission each have their own kind.
// FromResponse converts non-2xx API responses, reading the server's
// "detail" field when present.
package apierr
