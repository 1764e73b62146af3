package supervisor

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/danmuck/hslremote/internal/testutil/testlog"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("HSLREMOTE_SUPERVISOR_HELPER") != "1" {
		return
	}
	mode := ""
	for i, a := range os.Args {
		if a == "--" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
			break
		}
	}
	switch mode {
	case "exit0":
		os.Exit(0)
	case "exit3":
		os.Exit(3)
	case "block":
		time.Sleep(time.Minute)
	}
	os.Exit(2)
}

func helperSpec(mode string) Spec {
	return Spec{
		Executable: os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--", mode},
		Env:        []string{"HSLREMOTE_SUPERVISOR_HELPER=1"},
	}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLaunchCleanExit(t *testing.T) {
	testlog.Start(t)
	p, err := ExecLauncher{}.Launch(context.Background(), helperSpec("exit0"))
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if p.PID() <= 0 {
		t.Fatalf("expected a pid, got %d", p.PID())
	}
	if err := p.Wait(waitCtx(t)); err != nil {
		t.Fatalf("clean exit should not error: %v", err)
	}
	if p.Alive() {
		t.Fatalf("process should be reaped")
	}
	if err := Liveness(p)(); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("liveness after exit got=%v", err)
	}
}

func TestLaunchAbnormalExit(t *testing.T) {
	testlog.Start(t)
	p, err := ExecLauncher{}.Launch(context.Background(), helperSpec("exit3"))
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	<-p.Done()
	if err := p.ExitErr(); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
	if err := p.Terminate(); err != nil {
		t.Fatalf("terminate after exit should be a no-op: %v", err)
	}
}

func TestTerminateRunningProcess(t *testing.T) {
	testlog.Start(t)
	p, err := ExecLauncher{}.Launch(context.Background(), helperSpec("block"))
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if !p.Alive() {
		t.Fatalf("blocking helper should be alive")
	}
	if err := Liveness(p)(); err != nil {
		t.Fatalf("liveness while alive got=%v", err)
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("wait should honour ctx, got %v", err)
	}

	if err := p.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := p.Wait(waitCtx(t)); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("killed process should report exit, got %v", err)
	}
}

func TestLaunchErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		ctx  func() context.Context
		spec Spec
	}{
		{
			name: "missing_binary",
			ctx:  context.Background,
			spec: Spec{Executable: "hslremote-no-such-runtime"},
		},
		{
			name: "empty_executable",
			ctx:  context.Background,
			spec: Spec{},
		},
		{
			name: "canceled_ctx",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			spec: helperSpec("exit0"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExecLauncher{}.Launch(tc.ctx(), tc.spec)
			if !errors.Is(err, ErrLaunch) {
				t.Fatalf("expected ErrLaunch, got %v", err)
			}
			var lerr *LaunchError
			if !errors.As(err, &lerr) || lerr.Executable != tc.spec.Executable {
				t.Fatalf("expected LaunchError for %q, got %v", tc.spec.Executable, err)
			}
		})
	}
}
