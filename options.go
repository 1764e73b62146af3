package hslremote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/hslremote/internal/config"
	"github.com/danmuck/hslremote/internal/protocol/session"
	"github.com/danmuck/hslremote/internal/supervisor"
)

// Option configures Open.
type Option func(*options) error

type options struct {
	executable      string
	root            string
	script          string
	startMinimized  bool
	shutdownTimeout time.Duration
	channel         session.Config
	launcher        supervisor.Launcher
}

func defaultOptions() options {
	def := config.Default()
	return options{
		executable:      def.Runtime.Executable,
		root:            def.Runtime.Root,
		shutdownTimeout: def.Runtime.ShutdownTimeout.Duration,
		channel:         def.Channel.SessionConfig(),
		launcher:        supervisor.ExecLauncher{},
	}
}

func (o options) scriptPath() string {
	return config.RuntimeConfig{Root: o.root, Script: o.script}.ScriptPath()
}

// WithRuntime sets the runtime executable (HxRun.exe).
func WithRuntime(path string) Option {
	return func(o *options) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("hslremote: runtime path is required")
		}
		o.executable = path
		return nil
	}
}

// WithRoot sets the HSLremote directory holding the script and the
// toSystem/fromSystem exchange directories.
func WithRoot(dir string) Option {
	return func(o *options) error {
		if strings.TrimSpace(dir) == "" {
			return errors.New("hslremote: root is required")
		}
		o.root = dir
		return nil
	}
}

// WithScript overrides the script path; it defaults to <root>/HSLremote.hsl.
func WithScript(path string) Option {
	return func(o *options) error {
		o.script = path
		return nil
	}
}

func StartMinimized() Option {
	return func(o *options) error {
		o.startMinimized = true
		return nil
	}
}

// WithResponseTimeout bounds every wait for a response; zero waits forever.
func WithResponseTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("hslremote: negative response timeout %s", d)
		}
		o.channel.ResponseTimeout = d
		return nil
	}
}

// WithPollInterval sets the response poll backoff bounds.
func WithPollInterval(initial, ceiling time.Duration) Option {
	return func(o *options) error {
		if initial <= 0 || ceiling < initial {
			return fmt.Errorf("hslremote: invalid poll interval %s..%s", initial, ceiling)
		}
		o.channel.Poll.InitialDelay = initial
		o.channel.Poll.MaxDelay = ceiling
		return nil
	}
}

// WithoutWatcher disables the filesystem watcher and relies on polling.
func WithoutWatcher() Option {
	return func(o *options) error {
		o.channel.DisableWatch = true
		return nil
	}
}

// WithShutdownTimeout bounds the wait for the runtime to exit on Close
// before it is terminated; zero waits for the Close ctx only.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("hslremote: negative shutdown timeout %s", d)
		}
		o.shutdownTimeout = d
		return nil
	}
}

// WithLauncher replaces the os/exec launcher.
func WithLauncher(l supervisor.Launcher) Option {
	return func(o *options) error {
		if l == nil {
			return errors.New("hslremote: launcher is required")
		}
		o.launcher = l
		return nil
	}
}

func withSessionConfig(cfg session.Config) Option {
	return func(o *options) error {
		o.channel = cfg
		return nil
	}
}
