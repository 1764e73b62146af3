package hslremote

import (
	"context"
	"fmt"

	"github.com/danmuck/hslremote/internal/protocol"
)

// Variable mirrors a remote scalar holding an int, float64 or string.
type Variable struct {
	conn  *Connection
	name  string
	value any
}

// NewVariable declares the variable remotely with value as its initial value.
func NewVariable(ctx context.Context, conn *Connection, value any, opts ...MirrorOption) (*Variable, error) {
	v, err := protocol.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	cfg := applyMirrorOptions(opts)
	name, err := resolveName("variable", cfg.name)
	if err != nil {
		return nil, err
	}
	lit, err := protocol.FormatLiteral(v)
	if err != nil {
		return nil, err
	}
	if _, err := conn.execute(ctx, "", fmt.Sprintf("variable %s (%s);", name, lit)); err != nil {
		return nil, err
	}
	return &Variable{conn: conn, name: name, value: v}, nil
}

func (v *Variable) Name() string { return v.name }

// Value is the local copy; it is int, float64 or string.
func (v *Variable) Value() any { return v.value }

// Set replaces the local value. The type may change; it is not pushed.
func (v *Variable) Set(value any) error {
	n, err := protocol.NormalizeValue(value)
	if err != nil {
		return err
	}
	v.value = n
	return nil
}

func (v *Variable) String() string { return fmt.Sprint(v.value) }

func (v *Variable) Push(ctx context.Context) error {
	lit, err := protocol.FormatLiteral(v.value)
	if err != nil {
		return err
	}
	_, err = v.conn.execute(ctx, fmt.Sprintf("%s = %s;", v.name, lit), "")
	return err
}

func (v *Variable) Pull(ctx context.Context) error {
	resp, err := v.conn.execute(ctx, protocol.JSONAccumulator("variable", v.name), "")
	if err != nil {
		return err
	}
	value, err := resp.Value(v.name)
	if err != nil {
		return fmt.Errorf("hslremote: pull %s: %w", v.name, err)
	}
	v.value = value
	return nil
}
