package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/danmuck/hslremote/internal/testutil/testlog"
)

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     50 * time.Millisecond,
	}
	if got := cfg.Delay(1); got != 10*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := cfg.Delay(2); got != 20*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := cfg.Delay(3); got != 40*time.Millisecond {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := cfg.Delay(9); got != 50*time.Millisecond {
		t.Fatalf("attempt9 got=%v", got)
	}

	s := pollSchedule{cfg: cfg}
	s.next()
	s.next()
	s.reset()
	if got := s.next(); got != 10*time.Millisecond {
		t.Fatalf("reset schedule got=%v", got)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ResponseTimeout: -time.Second}.WithDefaults()
	if cfg.RequestExt != "hsl" || cfg.ResponseExt != "json" {
		t.Fatalf("unexpected extensions %q/%q", cfg.RequestExt, cfg.ResponseExt)
	}
	if cfg.ResponseTimeout != 0 {
		t.Fatalf("negative timeout should clamp to 0, got %v", cfg.ResponseTimeout)
	}
	if cfg.Poll.MaxDelay != 200*time.Millisecond || cfg.ReadRetries != 5 {
		t.Fatalf("unexpected poll defaults %+v retries=%d", cfg.Poll, cfg.ReadRetries)
	}
}

func TestPendingSetLifecycle(t *testing.T) {
	testlog.Start(t)
	s := NewPendingSet()
	now := time.Unix(1700000000, 0)
	s.Add(PendingCommand{ID: 2, Path: "2.hsl", WrittenAt: now})
	s.Add(PendingCommand{ID: 1, Path: "1.hsl", WrittenAt: now})
	s.Add(PendingCommand{ID: 0})

	item, ok := s.MarkAwaiting(2)
	if !ok || !item.Awaiting {
		t.Fatalf("expected awaiting flag, got %+v ok=%v", item, ok)
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Fatalf("unexpected pending order %+v", list)
	}
	s.Remove(1)
	if _, ok := s.Get(1); ok {
		t.Fatalf("pending command should be removed")
	}
	if _, ok := s.MarkAwaiting(9); ok {
		t.Fatalf("unknown id should not be marked")
	}
}

func TestResetDirsWipesPreviousSession(t *testing.T) {
	testlog.Start(t)
	paths := RootPaths(t.TempDir())
	if err := ResetDirs(paths); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	stale := filepath.Join(paths.Inbound, "1.json")
	if err := os.WriteFile(stale, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	if err := ResetDirs(paths); err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale response should be removed, stat err=%v", err)
	}
	if err := ResetDirs(Paths{Outbound: "x", Inbound: "x"}); !errors.Is(err, ErrInvalidPaths) {
		t.Fatalf("expected ErrInvalidPaths, got %v", err)
	}
}

func TestSendAllocatesStrictlyIncreasingIDs(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true}, nil)

	for want := uint64(1); want <= 3; want++ {
		id, err := ch.Send("x = 1;", "")
		if err != nil {
			t.Fatalf("send %d: %v", want, err)
		}
		if id != want {
			t.Fatalf("unexpected id got=%d want=%d", id, want)
		}
	}
	raw, err := os.ReadFile(ch.RequestPath(2))
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if string(raw) != string(protocol.ComposeRequest("x = 1;", "")) {
		t.Fatalf("unexpected request body %q", raw)
	}
	if got := len(ch.Pending()); got != 3 {
		t.Fatalf("expected 3 pending commands, got %d", got)
	}
	entries, _ := os.ReadDir(ch.Paths().Outbound)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".pending-") {
			t.Fatalf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestExecuteRoundTripWithWatcher(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{ResponseTimeout: 5 * time.Second}, nil)
	go respondOnce(t, ch, 1, `{"v": 5}`)

	resp, err := ch.Execute(context.Background(), "addJSON_variable(___JSON___, v, \"v\");", "variable v (5);")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if v, _ := resp.Value("v"); v != 5 {
		t.Fatalf("unexpected value %#v", v)
	}
	if len(ch.Pending()) != 0 {
		t.Fatalf("answered command should leave pending set")
	}
}

func TestExecuteRemoteErrorTriplet(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true, ResponseTimeout: 5 * time.Second}, nil)
	go respondOnce(t, ch, 1, `{"___ERROR_ID___": 3, "___ERROR_DESCRIPTION___": "bad", "___ERROR_DATA___": 1}`)

	_, err := ch.Execute(context.Background(), "x;", "")
	var rerr *protocol.RemoteExecutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteExecutionError, got %v", err)
	}
	if rerr.Code != 3 || rerr.Description != "bad" {
		t.Fatalf("unexpected remote error %+v", rerr)
	}
}

func TestAwaitTimeout(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true, ResponseTimeout: 30 * time.Millisecond}, nil)
	id, err := ch.Send("x;", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	_, err = ch.Await(context.Background(), id)
	var terr *TimeoutError
	if !errors.As(err, &terr) || !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if terr.ID != id {
		t.Fatalf("timeout id got=%d want=%d", terr.ID, id)
	}
}

func TestAwaitHonoursContextCancel(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{}, nil)
	id, err := ch.Send("x;", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := ch.Await(ctx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGuardReportsCrashedProcess(t *testing.T) {
	testlog.Start(t)
	dead := errors.New("exit status 1")
	alive := true
	ch := newTestChannel(t, Config{DisableWatch: true}, func() error {
		if alive {
			return nil
		}
		return dead
	})
	id, err := ch.Send("x;", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	alive = false
	if _, err := ch.Await(context.Background(), id); !errors.Is(err, ErrRemoteProcessCrashed) {
		t.Fatalf("expected ErrRemoteProcessCrashed from await, got %v", err)
	}
	if _, err := ch.Send("x;", ""); !errors.Is(err, ErrRemoteProcessCrashed) {
		t.Fatalf("expected ErrRemoteProcessCrashed from send, got %v", err)
	}
}

func TestAwaitPrefersResponseOverDeadProcess(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true}, func() error { return errors.New("gone") })
	writeResponse(t, ch, 7, `{"ok": 1}`)
	raw, err := ch.Await(context.Background(), 7)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if !strings.Contains(string(raw), "ok") {
		t.Fatalf("unexpected response %q", raw)
	}
}

func TestClosedChannelRejectsCommands(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{}, nil)
	if err := ch.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := ch.Send("x;", ""); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed from send, got %v", err)
	}
	if _, err := ch.Await(context.Background(), 1); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed from await, got %v", err)
	}
	if !ch.Closed() {
		t.Fatalf("channel should report closed")
	}
}

func TestPartialResponseIsRereadUntilComplete(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true, ReadRetries: 1000, ResponseTimeout: 5 * time.Second}, nil)
	writeResponse(t, ch, 1, `{"v": `)
	go func() {
		time.Sleep(30 * time.Millisecond)
		writeResponse(t, ch, 1, `{"v": 1}`)
	}()
	raw, err := ch.Await(context.Background(), 1)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if string(raw) != `{"v": 1}` {
		t.Fatalf("unexpected response %q", raw)
	}
}

func TestMalformedResponseSurfacesAfterRetries(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true, ReadRetries: 2, ResponseTimeout: 5 * time.Second}, nil)
	go respondOnce(t, ch, 1, `not json`)
	if _, err := ch.Execute(context.Background(), "x;", ""); !errors.Is(err, protocol.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestChunkedResponseWithWatcherIsNotRejected(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{ResponseTimeout: 5 * time.Second}, nil)
	labware := make([]string, 60)
	for i := range labware {
		labware[i] = fmt.Sprintf("%q", fmt.Sprintf("plate_%02d", i))
	}
	body := `{"seq": {"labware": [` + strings.Join(labware, ", ") + `], "end": 60, "current": 1}}`

	go func() {
		f, err := os.OpenFile(ch.ResponsePath(1), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			t.Errorf("open response: %v", err)
			return
		}
		defer f.Close()
		step := len(body)/10 + 1
		for i := 0; i < len(body); i += step {
			end := min(i+step, len(body))
			if _, err := f.WriteString(body[i:end]); err != nil {
				t.Errorf("write chunk: %v", err)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	resp, err := ch.Execute(context.Background(), "x;", "")
	if err != nil {
		t.Fatalf("response written in chunks was rejected: %v", err)
	}
	if _, ok := resp.Fields["seq"]; !ok {
		t.Fatalf("unexpected fields %v", resp.Fields)
	}
}

func TestStalledPartialResponseWaitsForSettle(t *testing.T) {
	testlog.Start(t)
	settle := 80 * time.Millisecond
	ch := newTestChannel(t, Config{DisableWatch: true, ReadRetries: 1, Settle: settle, ResponseTimeout: 5 * time.Second}, nil)
	writeResponse(t, ch, 1, `{"v": `)
	started := time.Now()
	_, err := ch.Await(context.Background(), 1)
	if err != nil {
		t.Fatalf("stalled file should be handed over, got %v", err)
	}
	if waited := time.Since(started); waited < settle {
		t.Fatalf("partial file handed over after %v, before settle %v", waited, settle)
	}
}

func TestEmptyResponseIsMalformed(t *testing.T) {
	testlog.Start(t)
	ch := newTestChannel(t, Config{DisableWatch: true, ReadRetries: 1, Settle: 10 * time.Millisecond, ResponseTimeout: 5 * time.Second}, nil)
	go respondOnce(t, ch, 1, "")
	if _, err := ch.Execute(context.Background(), "x;", ""); !errors.Is(err, protocol.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse for an empty file, got %v", err)
	}
}

func newTestChannel(t *testing.T, cfg Config, alive AliveFunc) *Channel {
	t.Helper()
	paths := RootPaths(t.TempDir())
	if err := ResetDirs(paths); err != nil {
		t.Fatalf("reset dirs: %v", err)
	}
	ch, err := Open(paths, cfg, alive)
	if err != nil {
		t.Fatalf("open channel: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch
}

// respondOnce waits for request id to appear and answers it.
func respondOnce(t *testing.T, ch *Channel, id uint64, body string) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(ch.RequestPath(id)); err == nil {
			writeResponse(t, ch, id, body)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func writeResponse(t *testing.T, ch *Channel, id uint64, body string) {
	if err := writeAtomic(ch.ResponsePath(id), []byte(body)); err != nil {
		t.Errorf("write response %d: %v", id, err)
	}
}
