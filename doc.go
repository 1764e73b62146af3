// Package hslremote drives a Hamilton Venus runtime from Go by exchanging
// command files through a shared directory.
//
// A Connection launches the runtime with the HSLremote script and owns the
// request/response channel. Mirrors (Variable, Array, Sequence, Device) hold
// a non-owning *Connection and synchronize only through explicit Push and
// Pull calls; local state is never auto-synced.
//
//	conn, err := hslremote.Open(ctx, hslremote.WithRoot(root))
//	if err != nil {
//		return err
//	}
//	defer conn.Close(ctx)
//
//	v, err := hslremote.NewVariable(ctx, conn, 5, hslremote.WithName("volume"))
//
// One Connection serves one logical caller. Concurrent Connections must use
// distinct roots.
package hslremote
