package hslremote

import (
	"context"

	"github.com/danmuck/hslremote/internal/config"
	"github.com/danmuck/hslremote/internal/logging"
	"github.com/danmuck/hslremote/internal/resources"
	"github.com/danmuck/hslremote/internal/tools"
)

// CommandRunner runs the resource converter and returns stdout, stderr and
// the exit code.
type CommandRunner = tools.CommandRunner

// LiquidClassSelection picks the catalog entries written by
// Bindings.LiquidClasses.
type LiquidClassSelection = resources.Selection

func DefaultLiquidClassSelection() LiquidClassSelection { return resources.DefaultSelection() }

// ConfigureLogging installs the runtime logger profile. Only the first call
// from any entry point takes effect.
func ConfigureLogging() { logging.ConfigureRuntime() }

// Bindings generates Go source for deck layouts, liquid classes and
// submethod libraries into the configured output package.
type Bindings struct {
	b *resources.Bindings
}

// NewBindings reads the [resources] table of the TOML config at cfgPath, or
// the defaults when cfgPath is empty. A nil runner executes the converter on
// the local host.
func NewBindings(cfgPath string, runner CommandRunner) (*Bindings, error) {
	ConfigureLogging()
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return newBindings(cfg.Resources, runner)
}

func newBindings(cfg config.ResourcesConfig, runner CommandRunner) (*Bindings, error) {
	b, err := resources.NewBindings(cfg, runner)
	if err != nil {
		return nil, err
	}
	return &Bindings{b: b}, nil
}

// Close stops the converter cache.
func (b *Bindings) Close() { b.b.Close() }

// Layout converts the deck layout at path and returns the written file.
func (b *Bindings) Layout(ctx context.Context, path string) (string, error) {
	return b.b.Layout(ctx, path)
}

// LiquidClasses writes the entries of the SQLite catalog at dbPath matching sel.
func (b *Bindings) LiquidClasses(ctx context.Context, dbPath string, sel LiquidClassSelection) (string, error) {
	return b.b.LiquidClasses(ctx, dbPath, sel)
}

// Submethods writes one file per submethod library under dir.
func (b *Bindings) Submethods(ctx context.Context, dir string) ([]string, error) {
	return b.b.Submethods(ctx, dir)
}
