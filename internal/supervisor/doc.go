// Package supervisor launches the device runtime as a child process and owns
// its lifecycle: liveness checks, bounded waits and termination.
//
// A Launcher is injected into the connection so tests can substitute an
// in-process runtime for the real executable.
package supervisor
