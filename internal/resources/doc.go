// Package resources turns Venus resource files into Go bindings.
//
// Binary layouts and submethod definitions are converted to text with the
// vendor converter, parsed, and rendered as gofmt'd Go source over the
// hslremote mirrors. Liquid class names come from a SQLite export of the
// vendor liquid class database.
package resources
