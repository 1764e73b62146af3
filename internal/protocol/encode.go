package protocol

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ComposeRequest wraps code into the fixed __EvalExpr__ function and prefixes
// the escaped top-level definitions.
func ComposeRequest(code, definitions string) []byte {
	var b strings.Builder
	b.Grow(len(definitions) + len(code) + 32)
	b.WriteString(strings.ReplaceAll(definitions, `\`, `\\`))
	b.WriteString("\n")
	b.WriteString("function ")
	b.WriteString(EvalExprIdent)
	b.WriteString("()\n{\n")
	b.WriteString(code)
	b.WriteString("\n}")
	return []byte(b.String())
}

// Quote wraps s in straight double quotes. Embedded quotes are not escaped.
func Quote(s string) string {
	return `"` + s + `"`
}

// NormalizeValue maps any Go integer, float or string kind onto int, float64 or string.
func NormalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return int(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return nil, &UnsupportedTypeError{Value: v}
		}
		return int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, &UnsupportedTypeError{Value: v}
		}
		return int(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		return t, nil
	case json.Number:
		return numberValue(t)
	default:
		return nil, &UnsupportedTypeError{Value: v}
	}
}

// FormatLiteral renders v as HSL source: strings quoted, numbers bare.
// Floats always carry a decimal point so the runtime keeps them as floats.
func FormatLiteral(v any) (string, error) {
	n, err := NormalizeValue(v)
	if err != nil {
		return "", err
	}
	switch t := n.(type) {
	case int:
		return strconv.Itoa(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", &UnsupportedTypeError{Value: v, Reason: "non-finite float"}
		}
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s, nil
	default:
		return Quote(n.(string)), nil
	}
}
