package protocol

import (
	"fmt"
	"strings"
)

// Reserved identifiers understood by the remote HSLremote script.
const (
	ShutdownIdent  = "___SHUTDOWN___"
	JSONIdent      = "___JSON___"
	EvalExprIdent  = "__EvalExpr__"
	PrimaryDevice  = "__DEVICE__"
	ErrorIDField   = "___ERROR_ID___"
	ErrorDescField = "___ERROR_DESCRIPTION___"
	ErrorDataField = "___ERROR_DATA___"
)

// ShutdownCommand is the body that asks the remote script to exit its loop.
const ShutdownCommand = ShutdownIdent + " = 1;"

var reservedIdents = map[string]struct{}{
	ShutdownIdent: {},
	JSONIdent:     {},
	EvalExprIdent: {},
	PrimaryDevice: {},
}

// IsReserved reports whether name collides with a reserved remote identifier.
func IsReserved(name string) bool {
	_, ok := reservedIdents[strings.TrimSpace(name)]
	return ok
}

// CheckName rejects reserved identifiers used as caller-chosen names.
func CheckName(name string) error {
	if IsReserved(name) {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	return nil
}

// JSONAccumulator builds the reserved JSON accumulation call for one entity.
// kind is the helper suffix: variable, array, sequence or sequence_xyz.
func JSONAccumulator(kind, name string) string {
	return fmt.Sprintf("addJSON_%s(%s, %s, %s);", kind, JSONIdent, name, Quote(name))
}
