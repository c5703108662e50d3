// Package main hosts the vocalize CLI entrypoint and command graph.
//
// Each command opens the local state store, builds the API clients and
// services from configuration, runs one operation and exits. Session
// renewal, offline caching and the pending recording queue all live in the
// internal packages; commands only parse flags and render results.
package main
