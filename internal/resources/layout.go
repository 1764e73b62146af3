package resources

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
)

// DeckDevice prefixes deck sequence references in a layout.
const DeckDevice = "ML_STAR"

var (
	layoutSequencePattern = regexp.MustCompile(`Seq.\d*.Name, "([A-Za-z0-9_]*)",\n`)
	layoutLabwarePattern  = regexp.MustCompile(`Labware.\d*.Id, "([A-Za-z0-9_]*)",\n`)
)

// DeckLayout lists the named sequences and labware ids of a layout file.
type DeckLayout struct {
	Name      string
	File      string
	Sequences []string
	Labware   []string
}

// SequenceRef is the remote name of a deck sequence, e.g. "ML_STAR.tips".
func SequenceRef(sequence string) string {
	return DeckDevice + "." + sequence
}

// ParseLayout extracts sequence and labware names from converted layout text
// in file order.
func ParseLayout(text string) DeckLayout {
	text = normalizeNewlines(text)
	return DeckLayout{
		Sequences: submatches(layoutSequencePattern, text),
		Labware:   submatches(layoutLabwarePattern, text),
	}
}

// ReadLayout converts and parses the layout file at path.
func ReadLayout(ctx context.Context, conv *Converter, path string) (DeckLayout, error) {
	text, err := conv.ToText(ctx, path)
	if err != nil {
		return DeckLayout{}, err
	}
	layout := ParseLayout(text)
	layout.File, _ = filepath.Abs(path)
	layout.Name = SanitizeIdentifier(strings.ToLower(stem(path)))
	return layout, nil
}

func submatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
