package hslremote

import (
	"context"
	"fmt"

	"github.com/danmuck/hslremote/internal/protocol"
)

// DefaultDeviceName is the instrument device declared in standard layouts.
const DefaultDeviceName = "ML_STAR"

// Device is a named runtime device bound to a deck layout file.
type Device struct {
	conn    *Connection
	name    string
	layout  string
	primary bool
}

// NewDevice declares the device and, unless Secondary is given, makes it the
// session's primary device.
func NewDevice(ctx context.Context, conn *Connection, layoutFile string, opts ...MirrorOption) (*Device, error) {
	cfg := applyMirrorOptions(opts)
	name := cfg.name
	if name == "" {
		name = DefaultDeviceName
	}
	if err := protocol.CheckName(name); err != nil {
		return nil, err
	}
	defs := fmt.Sprintf("device %s(%s, %s, hslTrue);", name, protocol.Quote(layoutFile), protocol.Quote(name))
	if _, err := conn.execute(ctx, "", defs); err != nil {
		return nil, err
	}
	d := &Device{conn: conn, name: name, layout: layoutFile, primary: !cfg.secondary}
	if d.primary {
		if _, err := conn.execute(ctx, fmt.Sprintf("%s = %s;", protocol.PrimaryDevice, name), ""); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Device) Name() string { return d.name }

func (d *Device) LayoutFile() string { return d.layout }

func (d *Device) Primary() bool { return d.primary }

// Push has no device state to send; it only checks the session.
func (d *Device) Push(ctx context.Context) error { return d.conn.check() }

// Pull has no device state to read; it only checks the session.
func (d *Device) Pull(ctx context.Context) error { return d.conn.check() }
