package resources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// binaryMarker stands in for the binary encoding the converter strips.
const binaryMarker = "HXBIN\n"

const layoutText = `DataDef,DECKLAY,...
Seq.0001.Name, "tips",
Seq.0002.Name, "plate_1",
Seq.0003.Name, "plate 2",
Labware.0001.Id, "TIP_CAR_480",
Labware.0002.Id, "PLT_CAR_L5",
`

const hsiText = `// {{{ 5 "tip_pickup" "Begin"
function tip_pickup( device & ML_STAR, sequence & io_seqTips, variable i_strChannelPattern, variable & o_intError ) variable {
// }} ""
private variable x;
// {{ 5 "tip_pickup" "InitLocals"
o_intError = 0;
// }} ""
}
// {{{ 9 "read_file" "Begin"
function read_file( file & i_file ) void {
// }} ""
// {{ 9 "read_file" "InitLocals"
// }} ""
}
// {{{ 12 "mix" "Begin"
function mix( variable i_volume, variable i_cycles, variable & io_values[] ) void {
// }} ""
// {{ 12 "mix" "InitLocals"
// }} ""
}
// {{{ 14 "bad_default" "Begin"
function bad_default( sequence & io_seq ) void {
// }} ""
// {{ 14 "bad_default" "InitLocals"
// }} ""
}
`

const smtText = `DataDef,HxPars,3,HxMetEd_Submethods,
[
"(-533725162",
"(1",
"1-533725161",
"tip_pickup",
"1-533725170",
"Pick up tips",
"(-533725169",
"(0",
"1-533725167",
"Instrument",
"1-533725168",
"ML_STAR",
")",
"(1",
"1-533725167",
"Channels to use",
"1-533725168",
"i_strChannelPattern",
")",
")",
")",
"(2",
"1-533725161",
"mix",
"1-533725170",
"Mix in place",
"(-533725169",
"(0",
"1-533725167",
"Volume in \0xb5l",
"1-533725168",
"i_volume",
")",
"(1",
"1-533725167",
"{{default:3}}Mix cycles",
"1-533725168",
"i_cycles",
")",
")",
")",
"(3",
"1-533725161",
"bad_default",
"1-533725170",
"",
"(-533725169",
"(0",
"1-533725167",
"{{default:1}}Sequence",
"1-533725168",
"io_seq",
")",
")",
")",
")",
")"
];
`

// fakeRunner strips binaryMarker from the file it is asked to convert.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	code  int32
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	code := f.code
	f.mu.Unlock()
	if code != 0 {
		return nil, []byte("cannot convert"), code, errors.New("exit status 3")
	}
	if len(args) != 2 || args[0] != "/t" {
		return nil, []byte("usage"), 2, errors.New("exit status 2")
	}
	raw, err := os.ReadFile(args[1])
	if err != nil {
		return nil, nil, 1, err
	}
	text := strings.TrimPrefix(string(raw), binaryMarker)
	return nil, nil, 0, os.WriteFile(args[1], []byte(text), 0o644)
}

func (f *fakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeBinary(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(binaryMarker+text), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestConverter(t *testing.T, runner *fakeRunner) *Converter {
	t.Helper()
	c := NewConverter("HxCfgFilConverter.exe", t.TempDir(), runner, 0)
	t.Cleanup(c.Close)
	return c
}
