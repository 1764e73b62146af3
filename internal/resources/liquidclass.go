package resources

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Column positions in the LiquidClass table.
const (
	lcColName         = 1
	lcColDevices      = 4
	lcColOrigin       = 6
	lcColDispenseMode = 7
	lcColTipType      = 8
	lcMinColumns      = lcColTipType + 1
)

// Device ids in the device column.
var (
	device1mL    = []int64{1}
	device5mL    = []int64{7}
	device96Head = []int64{2}
	device384    = []int64{8}
	deviceWash   = []int64{9, 3, 5, 6, 4}
)

var (
	obsoleteTipTypes      = map[int64]bool{6: true, 7: true, 8: true}
	obsoleteDispenseModes = map[int64]bool{0: true, 1: true}
	placeholderNames      = map[string]bool{"a": true, "abc": true, "abcd": true, "1": true}
)

// Selection picks liquid classes by channel hardware and origin.
type Selection struct {
	Channels1mL  bool
	Channels5mL  bool
	Head96       bool
	Head384      bool
	WashStations bool
	// Default includes classes shipped with the software, Custom user ones.
	Default bool
	Custom  bool
}

// DefaultSelection is 1 mL channels and the 96 head, both origins.
func DefaultSelection() Selection {
	return Selection{Channels1mL: true, Head96: true, Default: true, Custom: true}
}

func (s Selection) devices() map[int64]bool {
	out := map[int64]bool{}
	add := func(on bool, ids []int64) {
		if !on {
			return
		}
		for _, id := range ids {
			out[id] = true
		}
	}
	add(s.Channels1mL, device1mL)
	add(s.Channels5mL, device5mL)
	add(s.Head96, device96Head)
	add(s.Head384, device384)
	add(s.WashStations, deviceWash)
	return out
}

func (s Selection) origins() map[int64]bool {
	out := map[int64]bool{}
	if s.Default {
		out[1] = true
	}
	if s.Custom {
		out[0] = true
	}
	return out
}

// LiquidClassCatalog reads liquid class names from a SQLite copy of the
// vendor liquid class database.
type LiquidClassCatalog struct {
	db *sql.DB
}

func OpenLiquidClassCatalog(path string) (*LiquidClassCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("resources: open liquid classes %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("resources: open liquid classes %s: %w", path, err)
	}
	return &LiquidClassCatalog{db: db}, nil
}

// NewLiquidClassCatalog wraps an open database; Close closes it.
func NewLiquidClassCatalog(db *sql.DB) *LiquidClassCatalog {
	return &LiquidClassCatalog{db: db}
}

func (c *LiquidClassCatalog) Close() error {
	return c.db.Close()
}

// Select returns the names of matching liquid classes in table order. A
// class matches when it runs on a selected device, its origin is selected,
// and it uses neither an obsolete tip type nor an obsolete dispense mode.
func (c *LiquidClassCatalog) Select(ctx context.Context, sel Selection) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT * FROM LiquidClass")
	if err != nil {
		return nil, fmt.Errorf("resources: query liquid classes: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) < lcMinColumns {
		return nil, fmt.Errorf("%w: LiquidClass has %d columns, need %d", ErrMalformedConfig, len(cols), lcMinColumns)
	}

	devices := sel.devices()
	origins := sel.origins()
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	var names []string
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("resources: scan liquid class: %w", err)
		}
		name := columnString(values[lcColName])
		if selected(values, name, devices, origins) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	log.Debug().Msgf("resources.LiquidClassCatalog.Select selected=%d", len(names))
	return names, nil
}

func selected(row []any, name string, devices, origins map[int64]bool) bool {
	onDevice := false
	for _, part := range strings.Split(columnString(row[lcColDevices]), ";") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && devices[id] {
			onDevice = true
			break
		}
	}
	if !onDevice {
		return false
	}
	if tip, ok := columnInt(row[lcColTipType]); ok && obsoleteTipTypes[tip] {
		return false
	}
	if placeholderNames[name] {
		return false
	}
	if mode, ok := columnInt(row[lcColDispenseMode]); ok && obsoleteDispenseModes[mode] {
		return false
	}
	origin, ok := columnInt(row[lcColOrigin])
	return ok && origins[origin]
}

func columnString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func columnInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), t == float64(int64(t))
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string, []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(columnString(t)), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
