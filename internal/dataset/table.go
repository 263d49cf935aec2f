package dataset

import "strings"

// Dataset names used in errors, logs and source keys.
const (
	Orders   = "orders"
	Payments = "payments"
	Reviews  = "reviews"
)

// Table is a raw tabular dataset: a header and rows of text cells.
// Rows may be shorter than the header; missing cells read as "".
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Bundle holds the three input tables of one computation.
type Bundle struct {
	Orders   Table
	Payments Table
	Reviews  Table
}

// NormalizeColumn is the comparison form of a header name.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of a column, matched case-insensitively.
func (t Table) ColumnIndex(name string) (int, bool) {
	want := NormalizeColumn(name)
	for i, c := range t.Columns {
		if NormalizeColumn(c) == want {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the trimmed cell at (row, col) or "" when out of range.
func (t Table) Cell(row int, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Clone returns a deep copy so callers can derive new tables without
// touching the input.
func (t Table) Clone() Table {
	out := Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}
