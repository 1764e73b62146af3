package resources

import (
	"strconv"
	"strings"
	"unicode"
)

// SanitizeIdentifier maps spaces to underscores, drops leading characters
// until a letter or underscore, and drops every other character that cannot
// appear in an identifier.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	started := false
	for _, r := range strings.ReplaceAll(name, " ", "_") {
		switch {
		case !started && (r == '_' || unicode.IsLetter(r)):
			started = true
			b.WriteRune(r)
		case started && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// exportedName turns a sanitized identifier into an exported Go name.
func exportedName(name string) string {
	name = strings.TrimLeft(SanitizeIdentifier(name), "_")
	if name == "" {
		return ""
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// uniqueNames assigns exported names to raw, suffixing repeats with _2, _3...
func uniqueNames(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		name := exportedName(s)
		if name == "" {
			name = "X"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		out = append(out, name)
	}
	return out
}
