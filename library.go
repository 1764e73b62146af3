package hslremote

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/hslremote/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Library is an included submethod library whose functions are called as
// Namespace::fn(...). Generated bindings wrap it.
type Library struct {
	conn      *Connection
	namespace string
	include   string
}

// NewLibrary includes the library source at includePath.
func NewLibrary(ctx context.Context, conn *Connection, namespace, includePath string) (*Library, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("%w: library namespace is required", ErrSchema)
	}
	if _, err := conn.execute(ctx, "", "#include "+protocol.Quote(includePath)); err != nil {
		return nil, err
	}
	return &Library{conn: conn, namespace: namespace, include: includePath}, nil
}

func (l *Library) Namespace() string { return l.namespace }

func (l *Library) IncludePath() string { return l.include }

// Call pushes input mirrors, invokes fn and pulls output mirrors.
func (l *Library) Call(ctx context.Context, fn string, args ...Arg) error {
	code, err := l.Source(fn, args...)
	if err != nil {
		return err
	}
	for _, a := range args {
		if a.Dir == DirOut {
			continue
		}
		if s := argSyncer(a); s != nil {
			if err := s.Push(ctx); err != nil {
				return err
			}
		}
	}
	log.Debug().Msgf("hslremote.Library.Call %s", code)
	if _, err := l.conn.execute(ctx, code, ""); err != nil {
		return err
	}
	for _, a := range args {
		if a.Dir == DirIn {
			continue
		}
		if s := argSyncer(a); s != nil {
			if err := s.Pull(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Source renders the call statement without executing it.
func (l *Library) Source(fn string, args ...Arg) (string, error) {
	if strings.TrimSpace(fn) == "" {
		return "", fmt.Errorf("%w: function name is required", ErrSchema)
	}
	params := make([]string, 0, len(args))
	for i, a := range args {
		if a.Value == nil {
			return "", fmt.Errorf("%w: %s::%s argument %d is nil", ErrSchema, l.namespace, fn, i)
		}
		src, err := a.Value.source(a.Dir)
		if err != nil {
			return "", fmt.Errorf("%s::%s argument %d: %w", l.namespace, fn, i, err)
		}
		params = append(params, src)
	}
	return fmt.Sprintf("%s::%s(%s);", l.namespace, fn, strings.Join(params, ", ")), nil
}

func argSyncer(a Arg) Syncer {
	if r, ok := a.Value.(mirrorRef); ok {
		return r.syncer(a.Dir)
	}
	return nil
}
