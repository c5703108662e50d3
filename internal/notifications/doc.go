// Package notifications tells the user about client-side events that happen
// outside an interactive command: recordings waiting for upload, a session
// that was silently renewed, or a local cache reset after an API upgrade.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Callers depend
// only on the Service interface; Recorder captures events in tests.
package notifications
