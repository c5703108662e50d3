// Package kvstore provides the persistent string key-value store that holds
// credentials, cached collections, and the pending recording queue.
//
// Store is the abstraction every other package depends on. SQLiteStore keeps
// state in a single SQLite file guarded by an advisory file lock so only one
// vocalize process writes at a time; Memory backs tests and dry runs.
// MultiSet and MultiRemove apply all-or-nothing.
package kvstore
