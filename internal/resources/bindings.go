package resources

import (
	"context"
	"fmt"

	"github.com/danmuck/hslremote/internal/config"
	"github.com/danmuck/hslremote/internal/tools"
)

// Bindings runs the convert, parse and generate pipeline for one output
// package.
type Bindings struct {
	conv *Converter
	gen  *Generator
}

// NewBindings wires a Converter and Generator from cfg. A nil runner
// executes the converter on the local host.
func NewBindings(cfg config.ResourcesConfig, runner tools.CommandRunner) (*Bindings, error) {
	gen, err := NewGenerator(cfg.OutputDir, cfg.Package)
	if err != nil {
		return nil, err
	}
	conv := NewConverter(cfg.Converter, cfg.WorkDir, runner, cfg.CacheTTL.Duration)
	return &Bindings{conv: conv, gen: gen}, nil
}

func (b *Bindings) Close() { b.conv.Close() }

func (b *Bindings) Generator() *Generator { return b.gen }

// Layout converts the layout at path and writes its bindings.
func (b *Bindings) Layout(ctx context.Context, path string) (string, error) {
	layout, err := ReadLayout(ctx, b.conv, path)
	if err != nil {
		return "", err
	}
	return b.gen.Layout(layout)
}

// LiquidClasses selects from the SQLite catalog at dbPath and writes the list.
func (b *Bindings) LiquidClasses(ctx context.Context, dbPath string, sel Selection) (string, error) {
	catalog, err := OpenLiquidClassCatalog(dbPath)
	if err != nil {
		return "", err
	}
	defer catalog.Close()
	names, err := catalog.Select(ctx, sel)
	if err != nil {
		return "", err
	}
	return b.gen.LiquidClasses(dbPath, names)
}

// Submethods writes one file per submethod library found under dir.
func (b *Bindings) Submethods(ctx context.Context, dir string) ([]string, error) {
	libs, err := ReadSubmethods(ctx, b.conv, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, lib := range libs {
		path, err := b.gen.Submethods(lib)
		if err != nil {
			return out, fmt.Errorf("resources: %s: %w", lib.Source, err)
		}
		out = append(out, path)
	}
	return out, nil
}
