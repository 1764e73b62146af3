package resources

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hexEscapePattern = regexp.MustCompile(`\\0x([A-Za-z0-9]{2})`)
	hxBlockPattern   = regexp.MustCompile(`DataDef,HxPars,3,(\w+),\n\[\n([\s\S]*?)"\)"\n\];`)
	hxLinePattern    = regexp.MustCompile(`^"([\(\)]?)(.*)",`)
)

// Keys of the submethod editor block in a converted .smt file.
const (
	keySubmethods       = "HxMetEd_Submethods"
	keySubmethodList    = "-533725162"
	keySubmethodName    = "1-533725161"
	keySubmethodComment = "1-533725170"
	keyParamList        = "-533725169"
	keyParamComment     = "1-533725167"
	keyParamName        = "1-533725168"
)

// HxCfg is a parsed configuration file: block name to nested string maps.
// Leaves are strings; inner nodes are HxCfg.
type HxCfg map[string]any

// ParseHxCfg reads every "DataDef,HxPars,3,<name>" block of converted text.
// A "(" line opens a nested map, ")" closes it, other lines alternate key
// and value. Repeated keys keep the last value.
func ParseHxCfg(text string) (HxCfg, error) {
	text = hexEscapePattern.ReplaceAllStringFunc(normalizeNewlines(text), decodeHexEscape)
	out := HxCfg{}
	for _, block := range hxBlockPattern.FindAllStringSubmatch(text, -1) {
		node, err := parseHxBlock(block[1], block[2])
		if err != nil {
			return nil, err
		}
		out[block[1]] = node
	}
	return out, nil
}

func parseHxBlock(name, body string) (HxCfg, error) {
	root := HxCfg{}
	stack := []HxCfg{root}
	key := ""
	valueLine := false
	for n, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		m := hxLinePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: block %s line %d: %q", ErrMalformedConfig, name, n+1, line)
		}
		top := stack[len(stack)-1]
		switch {
		case valueLine:
			top[key] = m[2]
			valueLine = false
		case m[1] == "(":
			child := HxCfg{}
			top[m[2]] = child
			stack = append(stack, child)
		case m[1] == ")":
			if len(stack) == 1 {
				return nil, fmt.Errorf("%w: block %s line %d: unbalanced close", ErrMalformedConfig, name, n+1)
			}
			stack = stack[:len(stack)-1]
		default:
			key = m[2]
			valueLine = true
		}
	}
	if len(stack) != 1 || valueLine {
		return nil, fmt.Errorf("%w: block %s ends inside an entry", ErrMalformedConfig, name)
	}
	return root, nil
}

func decodeHexEscape(m string) string {
	v, err := strconv.ParseUint(m[3:], 16, 8)
	if err != nil {
		return m
	}
	return string(rune(v))
}

// Map returns the nested map under key, if any.
func (c HxCfg) Map(key string) (HxCfg, bool) {
	v, ok := c[key].(HxCfg)
	return v, ok
}

// String returns the leaf under key, if any.
func (c HxCfg) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// SubmethodComments returns the description of submethod and its parameter
// descriptions keyed by parameter name.
func SubmethodComments(defs HxCfg, submethod string) (string, map[string]string, error) {
	list, ok := defs.Map(keySubmethods)
	if ok {
		list, ok = list.Map(keySubmethodList)
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: %s: no submethod table", ErrSubmethodNotFound, submethod)
	}
	for _, entry := range list {
		e, ok := entry.(HxCfg)
		if !ok {
			continue
		}
		if name, _ := e.String(keySubmethodName); name != submethod {
			continue
		}
		comment, _ := e.String(keySubmethodComment)
		params := map[string]string{}
		if plist, ok := e.Map(keyParamList); ok {
			for _, p := range plist {
				pe, ok := p.(HxCfg)
				if !ok {
					continue
				}
				pname, _ := pe.String(keyParamName)
				pcomment, _ := pe.String(keyParamComment)
				params[pname] = pcomment
			}
		}
		return comment, params, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrSubmethodNotFound, submethod)
}
