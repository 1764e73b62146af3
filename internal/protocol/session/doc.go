// Package session owns the file-based command channel.
//
// Ownership boundary:
// - outbound/inbound directory layout and reset
// - correlation id allocation (monotonic, starts at 1, never reused)
// - atomic request writes
// - response waiting (fsnotify wake-ups + backoff polling)
// - liveness guard and pending-command tracking
//
// One Channel serves one caller at a time; concurrent sessions need distinct roots.
package session
