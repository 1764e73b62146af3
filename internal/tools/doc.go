// Package tools runs external host executables on behalf of the bridge.
//
// Ownership boundary:
// - one-shot command execution with captured output
//
// The long-lived runtime process is owned by internal/supervisor, not here.
package tools
