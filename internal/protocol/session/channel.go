package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danmuck/hslremote/internal/observability"
	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	OutboundDirName = "toSystem"
	InboundDirName  = "fromSystem"
)

// Paths names the two watched directories of one channel.
type Paths struct {
	Outbound string
	Inbound  string
}

// RootPaths returns the HSLremote directory layout under root.
func RootPaths(root string) Paths {
	return Paths{
		Outbound: filepath.Join(root, OutboundDirName),
		Inbound:  filepath.Join(root, InboundDirName),
	}
}

func (p Paths) validate() error {
	if strings.TrimSpace(p.Outbound) == "" || strings.TrimSpace(p.Inbound) == "" {
		return fmt.Errorf("%w: outbound and inbound are required", ErrInvalidPaths)
	}
	if filepath.Clean(p.Outbound) == filepath.Clean(p.Inbound) {
		return fmt.Errorf("%w: outbound and inbound must differ", ErrInvalidPaths)
	}
	return nil
}

// ResetDirs wipes both directories (missing ones are fine) and recreates them empty.
func ResetDirs(p Paths) error {
	if err := p.validate(); err != nil {
		return err
	}
	for _, dir := range []string{p.Outbound, p.Inbound} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("session: reset %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("session: create %s: %w", dir, err)
		}
	}
	return nil
}

// AliveFunc reports the remote process state; nil means alive.
type AliveFunc func() error

// Channel is the correlated request/response transport over two directories.
type Channel struct {
	paths   Paths
	cfg     Config
	alive   AliveFunc
	seq     atomic.Uint64
	closed  atomic.Bool
	pending *PendingSet
	watch   *dirWatch
}

// Open binds a channel to existing directories. The directories are not reset.
func Open(paths Paths, cfg Config, alive AliveFunc) (*Channel, error) {
	if err := paths.validate(); err != nil {
		return nil, err
	}
	ch := &Channel{
		paths:   paths,
		cfg:     cfg.WithDefaults(),
		alive:   alive,
		pending: NewPendingSet(),
	}
	if !ch.cfg.DisableWatch {
		w, err := newDirWatch(paths.Inbound)
		if err != nil {
			log.Warn().Msgf("session.Channel.Open watcher unavailable, polling only dir=%q err=%v", paths.Inbound, err)
		} else {
			ch.watch = w
		}
	}
	return ch, nil
}

func (c *Channel) Paths() Paths { return c.paths }

func (c *Channel) Config() Config { return c.cfg }

// LastID returns the most recently allocated correlation id (0 before the first Send).
func (c *Channel) LastID() uint64 { return c.seq.Load() }

// Pending lists commands written but not yet answered.
func (c *Channel) Pending() []PendingCommand { return c.pending.List() }

func (c *Channel) RequestPath(id uint64) string {
	return filepath.Join(c.paths.Outbound, strconv.FormatUint(id, 10)+"."+c.cfg.RequestExt)
}

func (c *Channel) ResponsePath(id uint64) string {
	return filepath.Join(c.paths.Inbound, strconv.FormatUint(id, 10)+"."+c.cfg.ResponseExt)
}

// guard enforces the open-and-alive precondition.
func (c *Channel) guard() error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if c.alive != nil {
		if err := c.alive(); err != nil {
			return fmt.Errorf("%w: %v", ErrRemoteProcessCrashed, err)
		}
	}
	return nil
}

// Send allocates the next id and writes the composed request file.
func (c *Channel) Send(code, definitions string) (uint64, error) {
	if err := c.guard(); err != nil {
		observability.RecordCommand(outcomeFor(err), 0)
		return 0, err
	}
	id := c.seq.Add(1)
	path := c.RequestPath(id)
	if err := writeAtomic(path, protocol.ComposeRequest(code, definitions)); err != nil {
		observability.RecordCommand(observability.OutcomeWriteError, 0)
		return id, fmt.Errorf("session: write request %d: %w", id, err)
	}
	c.pending.Add(PendingCommand{ID: id, Path: path, WrittenAt: time.Now()})
	log.Debug().Msgf("session.Channel.Send wrote id=%d path=%q", id, path)
	return id, nil
}

// Await blocks until the response for id arrives, ctx ends, the timeout
// elapses, or the guard fails.
func (c *Channel) Await(ctx context.Context, id uint64) ([]byte, error) {
	started := time.Now()
	if item, ok := c.pending.MarkAwaiting(id); ok {
		started = item.WrittenAt
	}
	raw, err := c.await(ctx, id)
	if err != nil {
		observability.RecordCommand(outcomeFor(err), time.Since(started))
		return nil, err
	}
	c.pending.Remove(id)
	return raw, nil
}

// Execute runs one full round trip and decodes the response.
func (c *Channel) Execute(ctx context.Context, code, definitions string) (protocol.Response, error) {
	id, err := c.Send(code, definitions)
	if err != nil {
		return protocol.Response{}, err
	}
	writtenAt := time.Now()
	raw, err := c.Await(ctx, id)
	if err != nil {
		return protocol.Response{}, err
	}
	resp, err := protocol.DecodeResponse(raw)
	wait := time.Since(writtenAt)
	if err != nil {
		observability.RecordCommand(outcomeFor(err), wait)
		log.Debug().Msgf("session.Channel.Execute id=%d failed err=%v", id, err)
		return resp, err
	}
	observability.RecordCommand(observability.OutcomeOK, wait)
	log.Debug().Msgf("session.Channel.Execute id=%d ok wait=%s", id, wait)
	return resp, nil
}

// Close marks the channel closed and stops the watcher. Safe to call twice.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, p := range c.pending.List() {
		log.Debug().Msgf("session.Channel.Close unanswered id=%d written_at=%s", p.ID, p.WrittenAt.Format(time.RFC3339))
	}
	if c.watch != nil {
		return c.watch.Close()
	}
	return nil
}

func (c *Channel) Closed() bool { return c.closed.Load() }

func (c *Channel) await(ctx context.Context, id uint64) ([]byte, error) {
	path := c.ResponsePath(id)
	schedule := pollSchedule{cfg: c.cfg.Poll}
	var read responseRead

	var deadline <-chan time.Time
	if c.cfg.ResponseTimeout > 0 {
		timer := time.NewTimer(c.cfg.ResponseTimeout)
		defer timer.Stop()
		deadline = timer.C
	}
	var wake <-chan struct{}
	if c.watch != nil {
		wake = c.watch.Wake()
	}

	poll := time.NewTimer(0)
	defer poll.Stop()
	for {
		if c.closed.Load() {
			return nil, ErrChannelClosed
		}
		raw, ready, err := read.observe(path, c.cfg.ReadRetries, c.cfg.Settle)
		if err != nil {
			return nil, err
		}
		if ready {
			return raw, nil
		}
		// An answer already on disk wins over a dead process.
		if err := c.guard(); err != nil {
			return nil, err
		}

		if !poll.Stop() {
			select {
			case <-poll.C:
			default:
			}
		}
		poll.Reset(schedule.next())

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("session: await command %d: %w", id, ctx.Err())
		case <-deadline:
			return nil, &TimeoutError{ID: id, After: c.cfg.ResponseTimeout}
		case <-wake:
			schedule.reset()
		case <-poll.C:
		}
	}
}

// responseRead tracks one response file across wait passes.
type responseRead struct {
	seen    bool
	size    int
	modTime time.Time
	changed time.Time
	stale   int
}

// observe reports ready once the file holds complete JSON. An unparsable
// file is handed over only after maxReads re-reads that found it unchanged
// and settle has passed since it last changed.
func (r *responseRead) observe(path string, maxReads int, settle time.Duration) ([]byte, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: stat response %s: %w", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: read response %s: %w", path, err)
	}
	if complete(raw) {
		return raw, true, nil
	}
	now := time.Now()
	if !r.seen || len(raw) != r.size || !info.ModTime().Equal(r.modTime) {
		r.seen = true
		r.size = len(raw)
		r.modTime = info.ModTime()
		r.changed = now
		r.stale = 0
		return nil, false, nil
	}
	r.stale++
	if r.stale >= maxReads && now.Sub(r.changed) >= settle {
		return raw, true, nil
	}
	return nil, false, nil
}

func complete(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return false
	}
	return json.Valid([]byte(trimmed))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pending-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func outcomeFor(err error) string {
	var rerr *protocol.RemoteExecutionError
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.As(err, &rerr):
		return observability.OutcomeRemoteError
	case errors.Is(err, ErrChannelClosed):
		return observability.OutcomeClosed
	case errors.Is(err, ErrRemoteProcessCrashed):
		return observability.OutcomeCrashed
	case errors.Is(err, ErrTimeout):
		return observability.OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeCanceled
	case errors.Is(err, protocol.ErrMalformedResponse):
		return observability.OutcomeMalformed
	default:
		return observability.OutcomeWriteError
	}
}
