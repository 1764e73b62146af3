package hslremote

import (
	"context"
	"fmt"
	"strings"
)

// SequenceItem is one (labware, position) row.
type SequenceItem struct {
	Labware  string
	Position string
}

// SequenceRow is a row enriched with deck coordinates.
type SequenceRow struct {
	SequenceItem
	X     float64
	Y     float64
	Z     float64
	Angle float64
}

// Table is a column-oriented row source keyed by column name. It needs
// "labware" and "position" columns of equal length; other columns are ignored.
type Table map[string][]string

const (
	ColumnLabware  = "labware"
	ColumnPosition = "position"
)

// Sequence mirrors a remote sequence: rows plus the current and end cursors.
// After every local mutation 0 <= current <= end <= total holds.
type Sequence struct {
	conn    *Connection
	name    string
	items   []SequenceItem
	current int
	end     int
}

type sequenceState struct {
	Labware  []string  `json:"labware"`
	Position []string  `json:"position"`
	End      int       `json:"end"`
	Current  int       `json:"current"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Z        []float64 `json:"z"`
	Angle    []float64 `json:"angle"`
}

// NewSequence declares a sequence remotely and pushes its initial state.
// CopyOf and CopyFrom seed the rows first; DeckSequence binds to an existing
// layout sequence by name and only pulls.
func NewSequence(ctx context.Context, conn *Connection, opts ...MirrorOption) (*Sequence, error) {
	cfg := applyMirrorOptions(opts)
	if cfg.deck && cfg.name == "" {
		return nil, fmt.Errorf("%w: deck sequence requires the layout sequence name", ErrSchema)
	}
	name, err := resolveName("sequence", cfg.name)
	if err != nil {
		return nil, err
	}
	s := &Sequence{conn: conn, name: name}

	switch {
	case cfg.copyFrom != nil:
		s.CopyState(cfg.copyFrom)
	case cfg.copyOf != "":
		if err := s.load(ctx, cfg.copyOf); err != nil {
			return nil, err
		}
	}

	if cfg.deck {
		if err := s.Pull(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	if _, err := conn.execute(ctx, "", fmt.Sprintf("sequence %s;", name)); err != nil {
		return nil, err
	}
	if err := s.Push(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sequence) Name() string { return s.name }

func (s *Sequence) Current() int { return s.current }

func (s *Sequence) End() int { return s.end }

func (s *Sequence) Total() int { return len(s.items) }

// Remaining counts positions from current through end; 0 when exhausted.
func (s *Sequence) Remaining() int {
	if s.current > 0 {
		return s.end - (s.current - 1)
	}
	return 0
}

// Items returns a copy of the rows.
func (s *Sequence) Items() []SequenceItem {
	out := make([]SequenceItem, len(s.items))
	copy(out, s.items)
	return out
}

// SetCurrent moves the cursor; values outside [0, end] mark it exhausted (0).
func (s *Sequence) SetCurrent(current int) {
	if current > s.end || current < 0 {
		current = 0
	}
	s.current = current
}

// SetEnd clamps end into [0, total] and re-clamps current.
func (s *Sequence) SetEnd(end int) {
	if end < 0 {
		end = 0
	}
	if end > len(s.items) {
		end = len(s.items)
	}
	s.end = end
	s.SetCurrent(s.current)
}

// CopyState replaces local rows and cursors with other's.
func (s *Sequence) CopyState(other *Sequence) {
	s.items = other.Items()
	s.end = other.end
	s.current = other.current
	s.SetEnd(s.end)
}

// FromList replaces (or with appendRows extends) the rows. The shorter list
// is recycled to the length of the longer one.
func (s *Sequence) FromList(labware, positions []string, appendRows bool) error {
	if (len(labware) == 0) != (len(positions) == 0) {
		return fmt.Errorf("%w: cannot recycle an empty list (labware=%d positions=%d)", ErrSchema, len(labware), len(positions))
	}
	n := max(len(labware), len(positions))
	rows := make([]SequenceItem, n)
	for i := range rows {
		rows[i] = SequenceItem{Labware: labware[i%len(labware)], Position: positions[i%len(positions)]}
	}
	s.addRows(rows, !appendRows)
	return nil
}

// FromTable is FromList over the labware and position columns of t.
func (s *Sequence) FromTable(t Table, appendRows bool) error {
	lw, okL := t[ColumnLabware]
	pos, okP := t[ColumnPosition]
	if !okL || !okP {
		return fmt.Errorf("%w: table needs %q and %q columns", ErrSchema, ColumnLabware, ColumnPosition)
	}
	if len(lw) != len(pos) {
		return fmt.Errorf("%w: column lengths differ (labware=%d position=%d)", ErrSchema, len(lw), len(pos))
	}
	rows := make([]SequenceItem, len(lw))
	for i := range rows {
		rows[i] = SequenceItem{Labware: lw[i], Position: pos[i]}
	}
	s.addRows(rows, !appendRows)
	return nil
}

// Add appends one row.
func (s *Sequence) Add(labware, position string) {
	s.addRows([]SequenceItem{{Labware: labware, Position: position}}, false)
}

// Insert places a row at the 1-based index at, in [1, total+1].
func (s *Sequence) Insert(at int, labware, position string) error {
	if at < 1 || at > len(s.items)+1 {
		return fmt.Errorf("%w: insert at %d of %d", ErrIndexOutOfRange, at, len(s.items))
	}
	oldTotal := len(s.items)
	items := make([]SequenceItem, 0, oldTotal+1)
	items = append(items, s.items[:at-1]...)
	items = append(items, SequenceItem{Labware: labware, Position: position})
	items = append(items, s.items[at-1:]...)
	s.items = items
	s.afterAdd(oldTotal)
	return nil
}

// Remove deletes rows by 1-based index. Duplicates collapse; any index out
// of range fails before anything is removed.
func (s *Sequence) Remove(indices ...int) error {
	drop := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > len(s.items) {
			return fmt.Errorf("%w: remove %d of %d", ErrIndexOutOfRange, idx, len(s.items))
		}
		drop[idx-1] = struct{}{}
	}
	kept := make([]SequenceItem, 0, len(s.items)-len(drop))
	for i, item := range s.items {
		if _, ok := drop[i]; !ok {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.SetEnd(s.end)
	s.SetCurrent(s.current)
	return nil
}

// Clear empties the rows and resets both cursors.
func (s *Sequence) Clear() {
	s.items = nil
	s.SetCurrent(0)
	s.SetEnd(0)
}

func (s *Sequence) addRows(rows []SequenceItem, replace bool) {
	oldTotal := len(s.items)
	if replace {
		s.items = nil
	}
	s.items = append(s.items, rows...)
	s.afterAdd(oldTotal)
}

// afterAdd extends end when it sat on the old last row and starts an
// exhausted cursor at 1.
func (s *Sequence) afterAdd(oldTotal int) {
	if s.end == oldTotal {
		s.SetEnd(len(s.items))
	}
	s.SetEnd(s.end)
	if s.current == 0 {
		s.SetCurrent(1)
	}
	s.SetCurrent(s.current)
}

// Snapshot returns the rows. With position data it pushes first so the
// runtime resolves coordinates for the current rows.
func (s *Sequence) Snapshot(ctx context.Context, includePositionData bool) ([]SequenceRow, error) {
	if !includePositionData {
		rows := make([]SequenceRow, len(s.items))
		for i, item := range s.items {
			rows[i] = SequenceRow{SequenceItem: item}
		}
		return rows, nil
	}
	if err := s.Push(ctx); err != nil {
		return nil, err
	}
	var st sequenceState
	if err := pullField(ctx, s.conn, "sequence_xyz", s.name, &st); err != nil {
		return nil, err
	}
	n := len(st.Labware)
	if len(st.Position) != n || len(st.X) != n || len(st.Y) != n || len(st.Z) != n || len(st.Angle) != n {
		return nil, fmt.Errorf("%w: sequence %s position data columns differ in length", ErrMalformedResponse, s.name)
	}
	rows := make([]SequenceRow, n)
	for i := range rows {
		rows[i] = SequenceRow{
			SequenceItem: SequenceItem{Labware: st.Labware[i], Position: st.Position[i]},
			X:            st.X[i],
			Y:            st.Y[i],
			Z:            st.Z[i],
			Angle:        st.Angle[i],
		}
	}
	return rows, nil
}

func (s *Sequence) Push(ctx context.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "{ sequence __temp; %s = __temp; }\n", s.name)
	for _, item := range s.items {
		fmt.Fprintf(&b, "%s.Add(\"%s\", \"%s\");\n", s.name, item.Labware, item.Position)
	}
	fmt.Fprintf(&b, "%s.SetCount(%d);\n", s.name, s.end)
	fmt.Fprintf(&b, "%s.SetCurrentPosition(%d);\n", s.name, s.current)
	_, err := s.conn.execute(ctx, b.String(), "")
	return err
}

func (s *Sequence) Pull(ctx context.Context) error {
	return s.load(ctx, s.name)
}

// load replaces local state with the remote sequence named remote.
func (s *Sequence) load(ctx context.Context, remote string) error {
	var st sequenceState
	if err := pullField(ctx, s.conn, "sequence", remote, &st); err != nil {
		return err
	}
	if len(st.Labware) != len(st.Position) {
		return fmt.Errorf("%w: sequence %s labware/position lengths differ", ErrMalformedResponse, remote)
	}
	items := make([]SequenceItem, len(st.Labware))
	for i := range items {
		items[i] = SequenceItem{Labware: st.Labware[i], Position: st.Position[i]}
	}
	s.items = items
	s.SetEnd(st.End)
	s.SetCurrent(st.Current)
	return nil
}
