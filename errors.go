package hslremote

import (
	"errors"

	"github.com/danmuck/hslremote/internal/config"
	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/danmuck/hslremote/internal/protocol/session"
	"github.com/danmuck/hslremote/internal/supervisor"
)

var (
	ErrLaunch               = supervisor.ErrLaunch
	ErrChannelClosed        = session.ErrChannelClosed
	ErrRemoteProcessCrashed = session.ErrRemoteProcessCrashed
	ErrTimeout              = session.ErrTimeout
	ErrMalformedResponse    = protocol.ErrMalformedResponse
	ErrMissingField         = protocol.ErrMissingField
	ErrUnsupportedType      = protocol.ErrUnsupportedType
	ErrReservedName         = protocol.ErrReservedName
	ErrInvalidConfig        = config.ErrInvalid

	ErrSchema          = errors.New("hslremote: schema mismatch")
	ErrIndexOutOfRange = errors.New("hslremote: index out of range")
)

type (
	LaunchError          = supervisor.LaunchError
	RemoteExecutionError = protocol.RemoteExecutionError
	UnsupportedTypeError = protocol.UnsupportedTypeError
	TimeoutError         = session.TimeoutError
)
