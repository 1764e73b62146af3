package resources

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.go.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("bindings").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).ParseFS(templateFS, "templates/*.go.tmpl"))

// ManifestFile is written next to the generated sources.
const ManifestFile = "manifest.yaml"

// Generator renders Go bindings into one package directory and keeps the
// manifest of what it wrote.
type Generator struct {
	dir      string
	pkg      string
	manifest *Manifest
	now      func() time.Time
}

// NewGenerator prepares dir for package pkg, loading an existing manifest.
func NewGenerator(dir, pkg string) (*Generator, error) {
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("%w: package %q", ErrInvalidIdentifier, pkg)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	m, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	m.Package = pkg
	return &Generator{dir: dir, pkg: pkg, manifest: m, now: time.Now}, nil
}

func (g *Generator) Manifest() *Manifest { return g.manifest }

type constView struct {
	Name  string
	Value string
}

type layoutView struct {
	Package   string
	Source    string
	Type      string
	File      string
	Sequences []constView
	Labware   []constView
}

// Layout writes layout_<name>.go with the layout path and its sequence and
// labware constants.
func (g *Generator) Layout(l DeckLayout) (string, error) {
	typ := camelName(l.Name)
	if typ == "" {
		return "", fmt.Errorf("%w: layout %q", ErrInvalidIdentifier, l.File)
	}
	view := layoutView{
		Package: g.pkg,
		Source:  filepath.Base(l.File),
		Type:    typ,
		File:    l.File,
	}
	for i, name := range uniqueNames(l.Sequences) {
		view.Sequences = append(view.Sequences, constView{Name: typ + "Seq" + name, Value: SequenceRef(l.Sequences[i])})
	}
	for i, name := range uniqueNames(l.Labware) {
		view.Labware = append(view.Labware, constView{Name: typ + "Labware" + name, Value: l.Labware[i]})
	}
	out := "layout_" + strings.ToLower(l.Name) + ".go"
	return g.write("layout.go.tmpl", out, view, ManifestEntry{
		Kind:   KindLayout,
		Source: l.File,
		Items:  len(l.Sequences) + len(l.Labware),
	})
}

type liquidClassView struct {
	Package string
	Source  string
	Classes []constView
}

// LiquidClasses writes liquid_classes.go with one variable per class.
func (g *Generator) LiquidClasses(source string, names []string) (string, error) {
	view := liquidClassView{Package: g.pkg, Source: filepath.Base(source)}
	for i, name := range uniqueNames(names) {
		view.Classes = append(view.Classes, constView{Name: "LC" + name, Value: names[i]})
	}
	return g.write("liquidclasses.go.tmpl", "liquid_classes.go", view, ManifestEntry{
		Kind:   KindLiquidClasses,
		Source: source,
		Items:  len(names),
	})
}

type paramView struct {
	Var         string
	Field       string
	GoType      string
	DefaultExpr string
}

type argView struct {
	Dir  string
	Expr string
}

type functionView struct {
	Name     string
	Method   string
	Options  string
	Doc      []string
	Required []paramView
	Defaults []paramView
	Args     []argView
}

type submethodView struct {
	Package   string
	Source    string
	File      string
	Type      string
	Namespace string
	Include   string
	Functions []functionView
}

// Submethods writes smt_<name>.go with a type wrapping the library and one
// method per submethod. Submethod return values are not retrieved.
func (g *Generator) Submethods(lib SubmethodLibrary) (string, error) {
	typ := camelName(lib.Name)
	if typ == "" {
		return "", fmt.Errorf("%w: library %q", ErrInvalidIdentifier, lib.Source)
	}
	view := submethodView{
		Package:   g.pkg,
		Source:    filepath.Base(lib.Source),
		File:      filepath.Base(lib.Include),
		Type:      typ,
		Namespace: lib.Namespace(),
		Include:   lib.Include,
	}
	methods := map[string]bool{}
	for _, fn := range lib.Functions {
		fv := buildFunctionView(fn, typ)
		if fv.Method == "" || methods[fv.Method] {
			log.Warn().Msgf("resources.Generator.Submethods skip library=%q submethod=%q: no unique method name", lib.Name, fn.Name)
			continue
		}
		methods[fv.Method] = true
		view.Functions = append(view.Functions, fv)
	}
	out := "smt_" + strings.ToLower(lib.Name) + ".go"
	return g.write("submethods.go.tmpl", out, view, ManifestEntry{
		Kind:   KindSubmethods,
		Source: lib.Source,
		Items:  len(view.Functions),
	})
}

func buildFunctionView(fn Submethod, typ string) functionView {
	method := camelName(fn.Name)
	fv := functionView{
		Name:    fn.Name,
		Method:  method,
		Options: typ + method + "Options",
	}
	for _, line := range strings.Split(strings.TrimSpace(fn.Comment), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fv.Doc = append(fv.Doc, line)
		}
	}
	if len(fn.Params) > 0 {
		fv.Doc = append(fv.Doc, "")
	}

	used := map[string]bool{}
	exprs := make(map[int]argView, len(fn.Params))
	for _, p := range fn.Params {
		doc := fmt.Sprintf("  - %s: %s (%s)", p.Name, p.Kind(), p.Direction)
		if c := strings.TrimSpace(p.Comment); c != "" {
			doc += " " + strings.ReplaceAll(c, "\n", " ")
		}
		fv.Doc = append(fv.Doc, doc)

		dir := argDirection(p.Direction)
		if p.Default != nil {
			field := uniqueField(exportedName(camelName(p.Name)), used)
			fv.Defaults = append(fv.Defaults, paramView{Field: field, DefaultExpr: defaultExpr(*p.Default)})
			exprs[p.Index] = argView{Dir: dir, Expr: "o." + field}
			continue
		}
		v := uniqueField(paramVar(p.Name), used)
		goType, expr := paramType(p, v)
		fv.Required = append(fv.Required, paramView{Var: v, GoType: goType})
		exprs[p.Index] = argView{Dir: dir, Expr: expr}
	}
	for i := 0; len(fv.Args) < len(exprs); i++ {
		if a, ok := exprs[i]; ok {
			fv.Args = append(fv.Args, a)
		}
	}
	return fv
}

func argDirection(d ParamDirection) string {
	switch d {
	case ParamOut:
		return "Out"
	case ParamInOut:
		return "InOut"
	default:
		return "In"
	}
}

// paramType maps a parameter to its Go type and the ParamValue expression
// built from variable v.
func paramType(p Param, v string) (string, string) {
	if p.ByValue() {
		return "hslremote.ParamValue", v
	}
	switch p.Kind() {
	case "Variable":
		return "*hslremote.Variable", "hslremote.Ref(" + v + ")"
	case "Array":
		return "*hslremote.Array", "hslremote.Ref(" + v + ")"
	case "Sequence":
		return "*hslremote.Sequence", "hslremote.Ref(" + v + ")"
	case "Device":
		return "*hslremote.Device", "hslremote.Ref(" + v + ")"
	default:
		return "hslremote.ParamValue", v
	}
}

// defaultExpr renders a default from a parameter comment as a ParamValue.
func defaultExpr(raw string) string {
	raw = strings.TrimSpace(raw)
	if s, err := strconv.Unquote(raw); err == nil {
		return "hslremote.String(" + strconv.Quote(s) + ")"
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return "hslremote.Int(" + strconv.Itoa(n) + ")"
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return "hslremote.Float(" + strconv.FormatFloat(f, 'g', -1, 64) + ")"
	}
	return "hslremote.String(" + strconv.Quote(raw) + ")"
}

// reservedVars are names the generated method body already uses.
var reservedVars = map[string]bool{
	"b": true, "o": true, "ctx": true, "opts": true, "lib": true, "err": true, "hslremote": true,
}

func paramVar(name string) string {
	v := camelName(name)
	if v == "" {
		return "p"
	}
	r := []rune(v)
	upper := 0
	for upper < len(r) && unicode.IsUpper(r[upper]) {
		upper++
	}
	lower := 1
	switch {
	case upper == len(r):
		lower = len(r)
	case upper > 1:
		lower = upper - 1
	}
	for i := 0; i < lower; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	v = string(r)
	if token.IsKeyword(v) || reservedVars[v] {
		v += "_"
	}
	return v
}

func uniqueField(name string, used map[string]bool) string {
	if name == "" {
		name = "P"
	}
	out := name
	for n := 2; used[out]; n++ {
		out = name + strconv.Itoa(n)
	}
	used[out] = true
	return out
}

// camelName joins the underscore separated parts of a sanitized name,
// upper-casing the first rune of each: tip_pickup becomes TipPickup.
func camelName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(SanitizeIdentifier(name), "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	out := b.String()
	if out != "" && !unicode.IsLetter([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

func (g *Generator) write(tmpl, name string, view any, entry ManifestEntry) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, view); err != nil {
		return "", fmt.Errorf("resources: render %s: %w", name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("resources: format %s: %w", name, err)
	}
	path := filepath.Join(g.dir, name)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", err
	}
	entry.Output = name
	entry.GeneratedAt = g.now().UTC()
	g.manifest.Record(entry)
	if err := g.manifest.Save(filepath.Join(g.dir, ManifestFile)); err != nil {
		return "", err
	}
	log.Info().Msgf("resources.Generator wrote %s items=%d", path, entry.Items)
	return path, nil
}
