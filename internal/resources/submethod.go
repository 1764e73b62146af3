package resources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// The function pattern captures the submethod name three times; RE2 has no
// backreferences, so parseFunctions compares them.
var (
	submethodPattern = regexp.MustCompile(`// \{\{\{ \d+ "([\w\d_]+)" "Begin"\nfunction ([\w\d_]+)\( ([\w\d\s&,\[\]]*) \)\s(\w+)\s\{\n// \}\} ""\n[\w\d\s;\[\]\n]*// \{\{ \d+ "([\w\d_]+)" "InitLocals"\n([\w\s\d\(\)&,\[\]{}/";=\.]*?)\n?// \}\} ""`)
	paramPattern     = regexp.MustCompile(`(\w+)\s(&?)\s?([\w\d&]+)([\[\]]*)[,]*`)
	defaultPattern   = regexp.MustCompile(`^\{\{default:(.*?)\}\}(.*)`)
)

// ParamDirection is the data flow of a submethod parameter.
type ParamDirection string

const (
	ParamIn    ParamDirection = "in"
	ParamOut   ParamDirection = "out"
	ParamInOut ParamDirection = "in_out"
)

// Param is one submethod parameter.
type Param struct {
	// Index is the position in the declaration, which fixes call order.
	Index     int
	Name      string
	Type      string
	IsArray   bool
	Direction ParamDirection
	Comment   string
	// Default is set when the comment starts with {{default:value}}.
	Default *string
}

// Kind is the mirror type that carries the parameter.
func (p Param) Kind() string {
	if p.Type == "variable" && p.IsArray {
		return "Array"
	}
	if p.Type == "" {
		return ""
	}
	return strings.ToUpper(p.Type[:1]) + strings.ToLower(p.Type[1:])
}

// ByValue reports whether the value is inlined into the call rather than
// passed as a mirrored name.
func (p Param) ByValue() bool {
	return p.Kind() == "Variable" && p.Direction == ParamIn
}

// Submethod is one function of a submethod library.
type Submethod struct {
	Name      string
	HasReturn bool
	Comment   string
	Params    []Param
}

// SubmethodLibrary is one .hsi file and the functions that could be bound.
type SubmethodLibrary struct {
	// Name is the sanitized file stem; the call namespace is its upper case.
	Name      string
	Source    string
	Include   string
	Functions []Submethod
}

func (l SubmethodLibrary) Namespace() string { return strings.ToUpper(l.Name) }

var unsupportedTypes = map[string]bool{
	"file":     true,
	"timer":    true,
	"event":    true,
	"object":   true,
	"resource": true,
}

// ParseSubmethods extracts functions from .hsi text. defs supplies comments
// from the converted .smt file; nil leaves them empty. Functions using
// shapes that cannot be bound are skipped with a warning.
func ParseSubmethods(file, hsi string, defs HxCfg) []Submethod {
	hsi = normalizeNewlines(hsi)
	var out []Submethod
	for _, m := range submethodPattern.FindAllStringSubmatch(hsi, -1) {
		name := m[1]
		if m[2] != name || m[5] != name {
			continue
		}
		fn, err := parseFunction(name, m[3], m[4], m[6], defs)
		if err != nil {
			log.Warn().Msgf("resources.ParseSubmethods skip file=%q submethod=%q err=%v", file, name, err)
			continue
		}
		out = append(out, fn)
	}
	return out
}

var errUnsupported = errors.New("unsupported parameter")

func parseFunction(name, params, returns, initLocals string, defs HxCfg) (Submethod, error) {
	fn := Submethod{Name: name, HasReturn: returns == "variable"}

	var paramComments map[string]string
	if defs != nil {
		comment, pc, err := SubmethodComments(defs, name)
		if err != nil {
			log.Warn().Msgf("resources.parseFunction no comments submethod=%q err=%v", name, err)
		}
		fn.Comment = comment
		paramComments = pc
	}

	var required, defaulted []Param
	for i, pm := range paramPattern.FindAllStringSubmatch(params, -1) {
		p := Param{
			Index:   i,
			Name:    pm[3],
			Type:    pm[1],
			IsArray: pm[4] == "[]",
			Comment: paramComments[pm[3]],
		}
		switch {
		case strings.Contains(initLocals, p.Name):
			p.Direction = ParamOut
		case pm[2] == "&":
			p.Direction = ParamInOut
		default:
			p.Direction = ParamIn
		}
		if d := defaultPattern.FindStringSubmatch(p.Comment); d != nil {
			v := d[1]
			p.Default = &v
			p.Comment = d[2]
		}

		switch {
		case p.Type == "sequence" && p.IsArray:
			return fn, fmt.Errorf("%w: %s: arrays of sequences", errUnsupported, p.Name)
		case unsupportedTypes[p.Type]:
			return fn, fmt.Errorf("%w: %s: type %s", errUnsupported, p.Name, p.Type)
		case p.Default != nil && p.Type != "variable":
			return fn, fmt.Errorf("%w: %s: default on %s", errUnsupported, p.Name, p.Type)
		case p.Default != nil && p.Direction != ParamIn:
			return fn, fmt.Errorf("%w: %s: default on %s parameter", errUnsupported, p.Name, p.Direction)
		}

		if p.Default != nil {
			defaulted = append(defaulted, p)
		} else {
			required = append(required, p)
		}
	}
	fn.Params = append(required, defaulted...)
	return fn, nil
}

// ReadSubmethods loads every .hsi under dir. Each library needs a sibling
// .smt for comments and .hs_ for the include; files starting with "~" are
// editor leftovers and skipped.
func ReadSubmethods(ctx context.Context, conv *Converter, dir string) ([]SubmethodLibrary, error) {
	var hsiFiles []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".hsi") || strings.HasPrefix(d.Name(), "~") {
			return nil
		}
		hsiFiles = append(hsiFiles, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resources: scan %s: %w", dir, err)
	}

	libs := make([]SubmethodLibrary, 0, len(hsiFiles))
	for _, path := range hsiFiles {
		lib, err := readSubmethodLibrary(ctx, conv, path)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

func readSubmethodLibrary(ctx context.Context, conv *Converter, path string) (SubmethodLibrary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SubmethodLibrary{}, err
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))

	var defs HxCfg
	smt := base + ".smt"
	if _, err := os.Stat(smt); err == nil {
		text, err := conv.ToText(ctx, smt)
		if err != nil {
			return SubmethodLibrary{}, err
		}
		if defs, err = ParseHxCfg(text); err != nil {
			return SubmethodLibrary{}, fmt.Errorf("resources: %s: %w", smt, err)
		}
	} else {
		log.Warn().Msgf("resources.ReadSubmethods missing definitions file=%q", smt)
	}

	include, _ := filepath.Abs(base + ".hs_")
	lib := SubmethodLibrary{
		Name:      SanitizeIdentifier(stem(path)),
		Source:    path,
		Include:   include,
		Functions: ParseSubmethods(filepath.Base(path), string(raw), defs),
	}
	if lib.Name == "" {
		return lib, fmt.Errorf("%w: %s", ErrInvalidIdentifier, path)
	}
	log.Info().Msgf("resources.ReadSubmethods library=%q functions=%d", lib.Name, len(lib.Functions))
	return lib, nil
}
