package supervisor

import (
	"errors"
	"fmt"
)

var (
	ErrLaunch        = errors.New("supervisor: launch failed")
	ErrProcessExited = errors.New("supervisor: process exited")
)

// LaunchError reports an executable that could not be started.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("supervisor: launch %q: %v", e.Executable, e.Err)
}

func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunch
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
