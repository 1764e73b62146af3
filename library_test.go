package hslremote

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danmuck/hslremote/internal/testutil/fakeruntime"
	"github.com/danmuck/hslremote/internal/testutil/testlog"
)

func TestLibraryIncludesSource(t *testing.T) {
	testlog.Start(t)
	conn, rt := openTest(t, nil)
	lib, err := NewLibrary(context.Background(), conn, "CHANNELS1ML_8", `C:\smt\channels1mL_8.hs_`)
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if got := rt.Last().Definitions; got != `#include "C:\\smt\\channels1mL_8.hs_"` {
		t.Fatalf("unexpected include %q", got)
	}
	if lib.Namespace() != "CHANNELS1ML_8" {
		t.Fatalf("unexpected namespace %q", lib.Namespace())
	}
	if _, err := NewLibrary(context.Background(), conn, " ", "x"); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema for empty namespace, got %v", err)
	}
}

func TestLibrarySourceResolvesParams(t *testing.T) {
	testlog.Start(t)
	conn, _ := openTest(t, nil)
	ctx := context.Background()
	lib, err := NewLibrary(ctx, conn, "NS", "lib.hs_")
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	dev, err := NewDevice(ctx, conn, "deck.lay")
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	vol, err := NewVariable(ctx, conn, 50.0, WithName("vol"))
	if err != nil {
		t.Fatalf("new variable: %v", err)
	}
	out, err := NewVariable(ctx, conn, 0, WithName("result"))
	if err != nil {
		t.Fatalf("new variable: %v", err)
	}

	src, err := lib.Source("aspirate",
		InOut(Ref(dev)),
		In(Ref(vol)),
		In(NewLiquidClass("Water_DispenseJet")),
		In(String("11110000")),
		In(Int(1)),
		In(Float(2)),
		Out(Ref(out)),
	)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	want := `NS::aspirate(ML_STAR, 50.0, "Water_DispenseJet", "11110000", 1, 2.0, result);`
	if src != want {
		t.Fatalf("unexpected call source\n got=%s\nwant=%s", src, want)
	}

	if _, err := lib.Source("f", Out(Int(1))); !errors.Is(err, ErrSchema) {
		t.Fatalf("literal output should be rejected, got %v", err)
	}
	if _, err := lib.Source("f", In(nil)); !errors.Is(err, ErrSchema) {
		t.Fatalf("nil argument should be rejected, got %v", err)
	}
	if _, err := Literal(true); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestLibraryCallSyncsMirrors(t *testing.T) {
	testlog.Start(t)
	conn, rt := openTest(t, nil)
	ctx := context.Background()
	lib, err := NewLibrary(ctx, conn, "NS", "lib.hs_")
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	tips, err := NewSequence(ctx, conn, WithName("tips"))
	if err != nil {
		t.Fatalf("new sequence: %v", err)
	}
	tips.Add("rack", "1")
	count, err := NewVariable(ctx, conn, 0, WithName("count"))
	if err != nil {
		t.Fatalf("new variable: %v", err)
	}
	lit, err := Literal(uint8(3))
	if err != nil {
		t.Fatalf("literal: %v", err)
	}

	rt.SetHandler(routes(map[string]string{
		`addJSON_sequence(___JSON___, tips`: `{"tips": {"labware": ["rack"], "position": ["1"], "end": 1, "current": 0}}`,
		`addJSON_variable(___JSON___, count`: `{"count": 8}`,
	}))
	before := len(rt.Requests())
	if err := lib.Call(ctx, "pickup", InOut(Ref(tips)), Out(Ref(count)), In(lit)); err != nil {
		t.Fatalf("call: %v", err)
	}

	var codes []string
	for _, req := range rt.Requests()[before:] {
		codes = append(codes, req.Code)
	}
	if len(codes) != 4 {
		t.Fatalf("expected push, call, pull, pull; got %q", codes)
	}
	if !strings.HasPrefix(codes[0], "{ sequence __temp; tips = __temp; }") {
		t.Fatalf("in_out sequence should be pushed first, got %q", codes[0])
	}
	if codes[1] != "NS::pickup(tips, count, 3);" {
		t.Fatalf("unexpected call %q", codes[1])
	}
	if tips.Current() != 0 || count.Value() != 8 {
		t.Fatalf("outputs not pulled: current=%d count=%v", tips.Current(), count.Value())
	}
}

func TestLibraryCallRemoteError(t *testing.T) {
	testlog.Start(t)
	conn, rt := openTest(t, nil)
	ctx := context.Background()
	lib, err := NewLibrary(ctx, conn, "NS", "lib.hs_")
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	out, err := NewVariable(ctx, conn, 0, WithName("out"))
	if err != nil {
		t.Fatalf("new variable: %v", err)
	}
	rt.SetHandler(fakeruntime.Reply(`{"___ERROR_ID___": 5, "___ERROR_DESCRIPTION___": "no tips"}`))
	before := len(rt.Requests())
	err = lib.Call(ctx, "pickup", Out(Ref(out)))
	var rerr *RemoteExecutionError
	if !errors.As(err, &rerr) || rerr.Code != 5 {
		t.Fatalf("expected RemoteExecutionError, got %v", err)
	}
	if n := len(rt.Requests()) - before; n != 1 {
		t.Fatalf("failed call must not pull outputs, sent %d commands", n)
	}
}

func TestLibrarySourceRejectsNilAndNonFiniteArgs(t *testing.T) {
	testlog.Start(t)
	conn, _ := openTest(t, nil)
	lib, err := NewLibrary(context.Background(), conn, "NS", "lib.hs_")
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	var v *Variable
	var s *Sequence
	for name, arg := range map[string]Arg{
		"nil_variable_in":    In(Ref(v)),
		"nil_variable_out":   Out(Ref(v)),
		"nil_sequence_inout": InOut(Ref(s)),
		"nil_mirror":         In(Ref(nil)),
	} {
		if _, err := lib.Source("fn", arg); !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: expected ErrSchema, got %v", name, err)
		}
	}
	_, err = lib.Source("fn", In(Float(math.NaN())))
	var uerr *UnsupportedTypeError
	if !errors.As(err, &uerr) || !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected UnsupportedTypeError for NaN, got %v", err)
	}
}
