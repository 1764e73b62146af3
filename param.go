package hslremote

import (
	"fmt"

	"github.com/danmuck/hslremote/internal/protocol"
)

// Direction is a submethod parameter's data flow.
type Direction int

const (
	DirIn Direction = iota
	DirOut
	DirInOut
)

func (d Direction) String() string {
	switch d {
	case DirOut:
		return "out"
	case DirInOut:
		return "in_out"
	default:
		return "in"
	}
}

// ParamValue is a submethod argument: a literal, a mirror reference or a
// LiquidClass. It renders to HSL source once, at the call boundary.
type ParamValue interface {
	source(dir Direction) (string, error)
}

type literal struct {
	value any
}

func (l literal) source(dir Direction) (string, error) {
	if dir != DirIn {
		return "", fmt.Errorf("%w: %s parameter needs a mirror, got literal %v", ErrSchema, dir, l.value)
	}
	return protocol.FormatLiteral(l.value)
}

func Int(v int) ParamValue { return literal{value: v} }

func Float(v float64) ParamValue { return literal{value: v} }

func String(v string) ParamValue { return literal{value: v} }

// Literal wraps any int, float or string kind.
func Literal(v any) (ParamValue, error) {
	n, err := protocol.NormalizeValue(v)
	if err != nil {
		return nil, err
	}
	return literal{value: n}, nil
}

type mirrorRef struct {
	m Mirror
}

// Ref passes a mirror by name. A Variable passed as an input resolves to its
// current local value instead.
func Ref(m Mirror) ParamValue { return mirrorRef{m: m} }

func (r mirrorRef) source(dir Direction) (string, error) {
	if r.m == nil {
		return "", fmt.Errorf("%w: nil mirror reference", ErrSchema)
	}
	if isNilMirror(r.m) {
		return "", fmt.Errorf("%w: nil %T reference", ErrSchema, r.m)
	}
	if v, ok := r.m.(*Variable); ok && dir == DirIn {
		return protocol.FormatLiteral(v.Value())
	}
	return r.m.Name(), nil
}

// isNilMirror catches typed nil pointers stored in the interface.
func isNilMirror(m Mirror) bool {
	switch t := m.(type) {
	case *Variable:
		return t == nil
	case *Array:
		return t == nil
	case *Sequence:
		return t == nil
	case *Device:
		return t == nil
	}
	return false
}

// syncer returns the mirror to push or pull for dir, if any.
func (r mirrorRef) syncer(dir Direction) Syncer {
	if _, ok := r.m.(*Variable); ok && dir == DirIn {
		return nil
	}
	return r.m
}

// Arg is one positional submethod argument.
type Arg struct {
	Dir   Direction
	Value ParamValue
}

func In(v ParamValue) Arg { return Arg{Dir: DirIn, Value: v} }

func Out(v ParamValue) Arg { return Arg{Dir: DirOut, Value: v} }

func InOut(v ParamValue) Arg { return Arg{Dir: DirInOut, Value: v} }
