package hslremote

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/hslremote/internal/protocol"
)

// Array mirrors a remote variable array. The local slice is the cache and
// Push regenerates the whole remote array.
type Array struct {
	conn   *Connection
	name   string
	values []any
}

// NewArray declares the array remotely and pushes values.
func NewArray(ctx context.Context, conn *Connection, values []any, opts ...MirrorOption) (*Array, error) {
	items, err := normalizeAll(values)
	if err != nil {
		return nil, err
	}
	cfg := applyMirrorOptions(opts)
	name, err := resolveName("array", cfg.name)
	if err != nil {
		return nil, err
	}
	if _, err := conn.execute(ctx, "", fmt.Sprintf("variable %s[];", name)); err != nil {
		return nil, err
	}
	a := &Array{conn: conn, name: name, values: items}
	if err := a.Push(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func normalizeAll(values []any) ([]any, error) {
	out := make([]any, 0, len(values))
	for i, v := range values {
		n, err := protocol.NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("hslremote: array item %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (a *Array) Name() string { return a.name }

// Values returns a copy of the local items.
func (a *Array) Values() []any {
	out := make([]any, len(a.values))
	copy(out, a.values)
	return out
}

func (a *Array) Len() int { return len(a.values) }

// At returns the item at the zero-based index i.
func (a *Array) At(i int) (any, error) {
	if i < 0 || i >= len(a.values) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(a.values))
	}
	return a.values[i], nil
}

func (a *Array) SetAt(i int, value any) error {
	if i < 0 || i >= len(a.values) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(a.values))
	}
	n, err := protocol.NormalizeValue(value)
	if err != nil {
		return err
	}
	a.values[i] = n
	return nil
}

func (a *Array) Append(values ...any) error {
	items, err := normalizeAll(values)
	if err != nil {
		return err
	}
	a.values = append(a.values, items...)
	return nil
}

// Replace swaps the whole local content.
func (a *Array) Replace(values []any) error {
	items, err := normalizeAll(values)
	if err != nil {
		return err
	}
	a.values = items
	return nil
}

func (a *Array) Clear() { a.values = nil }

func (a *Array) Push(ctx context.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.SetSize(0);\n", a.name)
	for _, v := range a.values {
		lit, err := protocol.FormatLiteral(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s.AddAsLast(%s);\n", a.name, lit)
	}
	_, err := a.conn.execute(ctx, b.String(), "")
	return err
}

func (a *Array) Pull(ctx context.Context) error {
	resp, err := a.conn.execute(ctx, protocol.JSONAccumulator("array", a.name), "")
	if err != nil {
		return err
	}
	values, err := resp.Values(a.name)
	if err != nil {
		return fmt.Errorf("hslremote: pull %s: %w", a.name, err)
	}
	a.values = values
	return nil
}
