//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

func applyStartMode(cmd *exec.Cmd, minimized bool) {
	if !minimized {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
