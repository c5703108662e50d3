// Package recordings keeps the local queue of recordings waiting to be sent.
//
// A Recording is saved as pending after its audio file has been validated,
// flips to sent once the upload succeeds, and disappears when discarded. The
// list lives under a single key in the state store; the audio itself stays
// in a BlobStore. Every change reports whether anything is still pending so
// reminders can be scheduled or cancelled.
package recordings
