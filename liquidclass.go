package hslremote

import "github.com/danmuck/hslremote/internal/protocol"

// LiquidClass names an entry of the liquid-class database. It has no remote
// state and passes to submethods as a string literal.
type LiquidClass struct {
	name string
}

func NewLiquidClass(name string) LiquidClass { return LiquidClass{name: name} }

func (l LiquidClass) Name() string { return l.name }

func (l LiquidClass) String() string { return l.name }

func (l LiquidClass) source(Direction) (string, error) {
	return protocol.Quote(l.name), nil
}
