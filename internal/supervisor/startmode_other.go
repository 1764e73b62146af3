//go:build !windows

package supervisor

import "os/exec"

// Windowless hosts have nothing to minimize.
func applyStartMode(cmd *exec.Cmd, minimized bool) {}
