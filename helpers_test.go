package hslremote

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/hslremote/internal/testutil/fakeruntime"
)

// openTest connects to a fake runtime rooted in a temp dir.
func openTest(t *testing.T, h fakeruntime.Handler, opts ...Option) (*Connection, *fakeruntime.Runtime) {
	t.Helper()
	rt := fakeruntime.New(h)
	return openWith(t, rt, opts...), rt
}

func openWith(t *testing.T, rt *fakeruntime.Runtime, opts ...Option) *Connection {
	t.Helper()
	base := []Option{
		WithRuntime("HxRun.exe"),
		WithRoot(t.TempDir()),
		WithLauncher(rt),
		WithResponseTimeout(5 * time.Second),
		WithShutdownTimeout(2 * time.Second),
	}
	conn, err := Open(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close(context.Background()) })
	return conn
}

// routes answers the first route whose key occurs in the request code, or {}.
func routes(m map[string]string) fakeruntime.Handler {
	return func(req fakeruntime.Request) (string, bool) {
		for key, body := range m {
			if strings.Contains(req.Code, key) {
				return body, true
			}
		}
		return "{}", true
	}
}
