package hslremote

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/google/uuid"
)

// Syncer is implemented by every mirror. Push writes local state to the
// runtime; Pull overwrites local state from it. Nothing syncs implicitly.
type Syncer interface {
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

// Mirror is a named Syncer.
type Mirror interface {
	Syncer
	Name() string
}

// MirrorOption configures a mirror constructor. Options that do not apply
// to a mirror kind are ignored by it.
type MirrorOption func(*mirrorConfig)

type mirrorConfig struct {
	name      string
	copyOf    string
	copyFrom  *Sequence
	deck      bool
	secondary bool
}

func applyMirrorOptions(opts []MirrorOption) mirrorConfig {
	var cfg mirrorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithName sets the remote name instead of a generated one.
func WithName(name string) MirrorOption {
	return func(c *mirrorConfig) { c.name = strings.TrimSpace(name) }
}

// WithDeviceName names a Device; the default is ML_STAR.
func WithDeviceName(name string) MirrorOption {
	return WithName(name)
}

// CopyOf seeds a Sequence from a remote sequence, e.g. "ML_STAR.tips".
func CopyOf(remoteName string) MirrorOption {
	return func(c *mirrorConfig) { c.copyOf = strings.TrimSpace(remoteName) }
}

// CopyFrom seeds a Sequence from another local mirror's state.
func CopyFrom(seq *Sequence) MirrorOption {
	return func(c *mirrorConfig) { c.copyFrom = seq }
}

// DeckSequence binds to a sequence that already exists in the loaded layout.
// The name is required and only a Pull is performed.
func DeckSequence() MirrorOption {
	return func(c *mirrorConfig) { c.deck = true }
}

// Secondary keeps a Device from becoming the session's primary device.
func Secondary() MirrorOption {
	return func(c *mirrorConfig) { c.secondary = true }
}

func generatedName(kind string) string {
	return kind + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func resolveName(kind, explicit string) (string, error) {
	if explicit == "" {
		return generatedName(kind), nil
	}
	if err := protocol.CheckName(explicit); err != nil {
		return "", err
	}
	return explicit, nil
}

// pullField runs the JSON accumulator for name and decodes its field into out.
func pullField(ctx context.Context, conn *Connection, kind, name string, out any) error {
	resp, err := conn.execute(ctx, protocol.JSONAccumulator(kind, name), "")
	if err != nil {
		return err
	}
	if err := resp.Field(name, out); err != nil {
		return fmt.Errorf("hslremote: pull %s: %w", name, err)
	}
	return nil
}
