package resources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/hslremote/internal/config"
	"github.com/danmuck/hslremote/internal/testutil/testlog"
)

func TestBindingsPipeline(t *testing.T) {
	testlog.Start(t)
	src := t.TempDir()
	cfg := config.Default().Resources
	cfg.OutputDir = filepath.Join(t.TempDir(), "bindings")
	cfg.WorkDir = t.TempDir()

	runner := &fakeRunner{}
	b, err := NewBindings(cfg, runner)
	if err != nil {
		t.Fatalf("new bindings: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	layout := writeBinary(t, src, "Deck Layout.lay", layoutText)
	out, err := b.Layout(ctx, layout)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if filepath.Base(out) != "layout_deck_layout.go" {
		t.Fatalf("unexpected layout output %s", out)
	}

	smtDir := filepath.Join(src, "smt")
	if err := os.MkdirAll(smtDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(smtDir, "pipetting.hsi"), []byte(hsiText), 0o644); err != nil {
		t.Fatalf("write hsi: %v", err)
	}
	if err := os.WriteFile(filepath.Join(smtDir, "~pipetting.hsi"), []byte(hsiText), 0o644); err != nil {
		t.Fatalf("write temp hsi: %v", err)
	}
	writeBinary(t, smtDir, "pipetting.smt", smtText)

	outs, err := b.Submethods(ctx, smtDir)
	if err != nil {
		t.Fatalf("submethods: %v", err)
	}
	if len(outs) != 1 || filepath.Base(outs[0]) != "smt_pipetting.go" {
		t.Fatalf("unexpected submethod outputs %v", outs)
	}
	src2 := readGenerated(t, outs[0])
	mustContain(t, src2, `"PIPETTING"`, "func (b *Pipetting) Mix(")

	dbPath := newLiquidClassDB(t)
	lcOut, err := b.LiquidClasses(ctx, dbPath, DefaultSelection())
	if err != nil {
		t.Fatalf("liquid classes: %v", err)
	}
	mustContain(t, readGenerated(t, lcOut), `LCCustom_96`)

	if got := runner.Calls(); got != 2 {
		t.Fatalf("expected layout and smt conversions, got %d", got)
	}
	m := b.Generator().Manifest()
	for _, name := range []string{"layout_deck_layout.go", "smt_pipetting.go", "liquid_classes.go"} {
		if _, ok := m.Entry(name); !ok {
			t.Fatalf("manifest missing %s: %+v", name, m.Generated)
		}
	}
}
