package hslremote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/danmuck/hslremote/internal/protocol/session"
	"github.com/danmuck/hslremote/internal/supervisor"
	"github.com/rs/zerolog/log"
)

// State is the connection lifecycle phase.
type State int32

const (
	StateUninitialized State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// terminateGrace bounds the wait after a forced terminate.
const terminateGrace = 5 * time.Second

// Connection owns the runtime process and the command channel for one session.
type Connection struct {
	// mu serializes commands and Close.
	mu    sync.Mutex
	state atomic.Int32
	opts  options
	proc  supervisor.Process
	ch    *session.Channel
}

// Open resets the exchange directories, launches the runtime and binds the
// channel. The returned Connection is Connected.
func Open(ctx context.Context, opts ...Option) (*Connection, error) {
	ConfigureLogging()
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	paths := session.RootPaths(o.root)
	if err := session.ResetDirs(paths); err != nil {
		return nil, fmt.Errorf("hslremote: prepare %s: %w", o.root, err)
	}

	proc, err := o.launcher.Launch(ctx, supervisor.Spec{
		Executable:     o.executable,
		Args:           []string{"-t", o.scriptPath()},
		Dir:            o.root,
		StartMinimized: o.startMinimized,
	})
	if err != nil {
		return nil, err
	}

	ch, err := session.Open(paths, o.channel, supervisor.Liveness(proc))
	if err != nil {
		_ = proc.Terminate()
		return nil, err
	}

	c := &Connection{opts: o, proc: proc, ch: ch}
	c.state.Store(int32(StateConnected))
	log.Info().Msgf("hslremote.Open connected root=%q pid=%d", o.root, proc.PID())
	return c, nil
}

func (c *Connection) State() State { return State(c.state.Load()) }

// Root is the HSLremote directory this connection exchanges files in.
func (c *Connection) Root() string { return c.opts.root }

// LastCommandID returns the most recent correlation id; 0 before any command.
func (c *Connection) LastCommandID() uint64 { return c.ch.LastID() }

// PID of the supervised runtime.
func (c *Connection) PID() int { return c.proc.PID() }

// Execute runs code with optional top-level definitions and returns the raw
// response text. A response carrying the error triplet fails with
// *RemoteExecutionError.
func (c *Connection) Execute(ctx context.Context, code, definitions string) (string, error) {
	resp, err := c.execute(ctx, code, definitions)
	if err != nil {
		return "", err
	}
	return string(resp.Raw), nil
}

func (c *Connection) execute(ctx context.Context, code, definitions string) (protocol.Response, error) {
	if c == nil {
		return protocol.Response{}, ErrChannelClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateConnected {
		return protocol.Response{}, ErrChannelClosed
	}
	return c.ch.Execute(ctx, code, definitions)
}

// check enforces the connected-and-alive precondition without a round trip.
func (c *Connection) check() error {
	if c == nil || c.State() != StateConnected {
		return ErrChannelClosed
	}
	if err := supervisor.Liveness(c.proc)(); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteProcessCrashed, err)
	}
	return nil
}

// Close asks the runtime to shut down and waits for it to exit, terminating
// it once the shutdown timeout passes. The shutdown command is not awaited.
// Calling Close again is a no-op.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateConnected {
		return nil
	}
	defer func() {
		c.state.Store(int32(StateClosed))
		if err := c.ch.Close(); err != nil {
			log.Warn().Msgf("hslremote.Connection.Close channel close err=%v", err)
		}
	}()

	if !c.proc.Alive() {
		log.Warn().Msgf("hslremote.Connection.Close runtime already exited pid=%d err=%v", c.proc.PID(), c.proc.ExitErr())
		return nil
	}

	id, err := c.ch.Send(protocol.ShutdownCommand, "")
	if err != nil {
		log.Warn().Msgf("hslremote.Connection.Close shutdown send failed err=%v", err)
		return c.terminate()
	}
	log.Info().Msgf("hslremote.Connection.Close shutdown sent id=%d", id)

	waitCtx := ctx
	if c.opts.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.opts.shutdownTimeout)
		defer cancel()
	}
	err = c.proc.Wait(waitCtx)
	switch {
	case err == nil:
		log.Info().Msgf("hslremote.Connection.Close runtime exited pid=%d", c.proc.PID())
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn().Msgf("hslremote.Connection.Close runtime still running, terminating pid=%d", c.proc.PID())
		return c.terminate()
	default:
		log.Warn().Msgf("hslremote.Connection.Close runtime exited uncleanly pid=%d err=%v", c.proc.PID(), err)
		return nil
	}
}

func (c *Connection) terminate() error {
	if err := c.proc.Terminate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), terminateGrace)
	defer cancel()
	if err := c.proc.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("hslremote: runtime pid=%d did not exit after terminate", c.proc.PID())
	}
	return nil
}

// Closed reports whether Close has run.
func (c *Connection) Closed() bool { return c.State() == StateClosed }
