package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/danmuck/hslremote/internal/observability"
	"github.com/rs/zerolog/log"
)

// Spec describes one runtime launch.
type Spec struct {
	Executable string
	Args       []string
	Dir        string
	// Env is appended to the inherited environment.
	Env            []string
	StartMinimized bool
}

// Launcher starts a runtime process. ctx bounds the launch only, not the
// lifetime of the child.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Process, error)
}

// Process is a handle to a launched runtime.
type Process interface {
	PID() int
	// Alive reports without blocking whether the process is still running.
	Alive() bool
	Terminate() error
	// Wait blocks until exit or ctx ends and returns the exit error.
	Wait(ctx context.Context) error
	Done() <-chan struct{}
	// ExitErr is nil while running and after a clean exit.
	ExitErr() error
}

// ExecLauncher starts the runtime with os/exec.
type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	if strings.TrimSpace(spec.Executable) == "" {
		observability.RecordLaunch(false)
		return nil, &LaunchError{Executable: spec.Executable, Err: errors.New("executable is required")}
	}
	if err := ctx.Err(); err != nil {
		observability.RecordLaunch(false)
		return nil, &LaunchError{Executable: spec.Executable, Err: err}
	}

	// exec.Command, not CommandContext: the runtime outlives the launch ctx.
	cmd := exec.Command(spec.Executable, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	applyStartMode(cmd, spec.StartMinimized)

	if err := cmd.Start(); err != nil {
		observability.RecordLaunch(false)
		log.Error().Msgf("supervisor.ExecLauncher.Launch failed exe=%q err=%v", spec.Executable, err)
		return nil, &LaunchError{Executable: spec.Executable, Err: err}
	}
	observability.RecordLaunch(true)
	log.Info().Msgf("supervisor.ExecLauncher.Launch started exe=%q pid=%d args=%q", spec.Executable, cmd.Process.Pid, spec.Args)

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go p.reap()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	exitErr error
}

func (p *execProcess) reap() {
	err := p.cmd.Wait()
	p.mu.Lock()
	if err != nil {
		p.exitErr = fmt.Errorf("%w: %v", ErrProcessExited, err)
	}
	p.mu.Unlock()
	observability.RecordRuntimeExit(err == nil)
	log.Info().Msgf("supervisor.execProcess exited pid=%d err=%v", p.PID(), err)
	close(p.done)
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execProcess) Terminate() error {
	if !p.Alive() {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("supervisor: terminate pid=%d: %w", p.PID(), err)
	}
	return nil
}

func (p *execProcess) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.ExitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// Liveness adapts a Process into a liveness check: nil while alive, otherwise
// the exit error (or ErrProcessExited after a clean exit).
func Liveness(p Process) func() error {
	return func() error {
		if p.Alive() {
			return nil
		}
		if err := p.ExitErr(); err != nil {
			return err
		}
		return ErrProcessExited
	}
}
