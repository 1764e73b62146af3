package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedResponse = errors.New("protocol: malformed response")
	ErrUnsupportedType   = errors.New("protocol: unsupported value type")
	ErrMissingField      = errors.New("protocol: missing response field")
	ErrReservedName      = errors.New("protocol: reserved identifier")
)

// RemoteExecutionError is raised when a response carries the reserved error triplet.
type RemoteExecutionError struct {
	Code        int64
	Description string
	Data        any
}

func (e *RemoteExecutionError) Error() string {
	if e.Data == nil {
		return fmt.Sprintf("protocol: remote execution failed code=%d: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("protocol: remote execution failed code=%d: %s (data=%v)", e.Code, e.Description, e.Data)
}

// UnsupportedTypeError reports a value outside int, float and string.
type UnsupportedTypeError struct {
	Value any
	// Reason is set when the type is supported but the value is not.
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("protocol: unsupported value %v: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("protocol: unsupported value type %T (want int, float or string)", e.Value)
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedType
}
