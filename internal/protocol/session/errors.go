package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrChannelClosed        = errors.New("session: channel closed")
	ErrRemoteProcessCrashed = errors.New("session: remote process crashed")
	ErrTimeout              = errors.New("session: response timeout")
	ErrInvalidPaths         = errors.New("session: invalid channel paths")
)

// TimeoutError reports a response that did not arrive within the bound.
type TimeoutError struct {
	ID    uint64
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("session: no response for command %d after %s", e.ID, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
