// Package fakeruntime is an in-process stand-in for the device runtime. It
// implements supervisor.Launcher, serves request files from the outbound
// directory in id order and answers through a Handler.
package fakeruntime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/danmuck/hslremote/internal/protocol/session"
	"github.com/danmuck/hslremote/internal/supervisor"
)

const wrapper = "\nfunction " + protocol.EvalExprIdent + "()\n{\n"

// Request is one request file as the runtime saw it.
type Request struct {
	ID          uint64
	Definitions string
	Code        string
	Raw         string
}

// Handler answers a request. Returning ok=false leaves the request unanswered.
type Handler func(req Request) (body string, ok bool)

// Runtime records every request it serves.
type Runtime struct {
	// IgnoreShutdown keeps the process running after the shutdown command.
	IgnoreShutdown bool
	// FailLaunch makes Launch return this error.
	FailLaunch error

	mu       sync.Mutex
	handler  Handler
	requests []Request
	specs    []supervisor.Spec
	current  *Process
}

func New(h Handler) *Runtime {
	if h == nil {
		h = Empty
	}
	return &Runtime{handler: h}
}

// Empty answers every request with an empty object.
func Empty(Request) (string, bool) { return "{}", true }

// Reply answers every request with body.
func Reply(body string) Handler {
	return func(Request) (string, bool) { return body, true }
}

// Fields marshals fields as a response body.
func Fields(fields map[string]any) string {
	raw, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// SetHandler swaps the handler for later requests.
func (r *Runtime) SetHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

func (r *Runtime) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, len(r.requests))
	copy(out, r.requests)
	return out
}

// Last returns the most recent request, or a zero Request.
func (r *Runtime) Last() Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return Request{}
	}
	return r.requests[len(r.requests)-1]
}

func (r *Runtime) Specs() []supervisor.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]supervisor.Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Crash kills the running process with a non-zero exit.
func (r *Runtime) Crash() {
	r.mu.Lock()
	p := r.current
	r.mu.Unlock()
	if p != nil {
		p.exit(errors.New("fakeruntime: crashed"))
	}
}

func (r *Runtime) Launch(ctx context.Context, spec supervisor.Spec) (supervisor.Process, error) {
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	fail := r.FailLaunch
	r.mu.Unlock()
	if fail != nil {
		return nil, &supervisor.LaunchError{Executable: spec.Executable, Err: fail}
	}
	script := scriptArg(spec.Args)
	if script == "" {
		return nil, &supervisor.LaunchError{Executable: spec.Executable, Err: errors.New("fakeruntime: missing -t script")}
	}
	p := &Process{done: make(chan struct{})}
	r.mu.Lock()
	r.current = p
	r.mu.Unlock()
	go r.serve(p, session.RootPaths(filepath.Dir(script)))
	return p, nil
}

func scriptArg(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-t" {
			return args[i+1]
		}
	}
	return ""
}

func (r *Runtime) serve(p *Process, paths session.Paths) {
	next := uint64(1)
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-tick.C:
		}
		raw, err := os.ReadFile(filepath.Join(paths.Outbound, strconv.FormatUint(next, 10)+".hsl"))
		if err != nil {
			continue
		}
		req := parse(next, string(raw))
		next++

		r.mu.Lock()
		r.requests = append(r.requests, req)
		h := r.handler
		ignore := r.IgnoreShutdown
		r.mu.Unlock()

		if req.Code == protocol.ShutdownCommand {
			if !ignore {
				p.exit(nil)
				return
			}
			continue
		}
		body, ok := h(req)
		if !ok {
			continue
		}
		if err := writeResponse(paths.Inbound, req.ID, body); err != nil {
			p.exit(err)
			return
		}
	}
}

func parse(id uint64, raw string) Request {
	req := Request{ID: id, Raw: raw}
	defs, code, found := strings.Cut(raw, wrapper)
	if !found {
		req.Code = raw
		return req
	}
	req.Definitions = defs
	req.Code = strings.TrimSuffix(code, "\n}")
	return req
}

func writeResponse(dir string, id uint64, body string) error {
	path := filepath.Join(dir, strconv.FormatUint(id, 10)+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		return fmt.Errorf("fakeruntime: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// Process is the fake runtime's supervisor.Process.
type Process struct {
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	exitErr error
}

func (p *Process) exit(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		if err != nil {
			p.exitErr = fmt.Errorf("%w: %v", supervisor.ErrProcessExited, err)
		}
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *Process) PID() int { return os.Getpid() }

func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Terminate() error {
	p.exit(errors.New("fakeruntime: terminated"))
	return nil
}

func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.ExitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Process) Done() <-chan struct{} { return p.done }

func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}
