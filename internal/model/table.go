package model

import (
	"strconv"
)

// ValueKind identifies what a table cell holds.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
)

// Value is a single table cell.
type Value struct {
	Kind ValueKind `json:"-"`
	Num  float64   `json:"num,omitempty"`
	Str  string    `json:"str,omitempty"`
}

// Number returns a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text returns a text cell.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Missing returns an empty cell.
func Missing() Value { return Value{} }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the cell the way it is written to CSV exports.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

// ColumnKind is the inferred type of a column.
type ColumnKind string

const (
	ColumnNumeric ColumnKind = "numeric"
	ColumnText    ColumnKind = "text"
)

// Column describes one table column.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Table is an ordered, row-major record table. Rows[i][j] belongs to Columns[j].
type Table struct {
	Columns []Column  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// NumRows returns the number of records.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// NumericColumns returns the indexes of numeric columns in table order.
func (t *Table) NumericColumns() []int {
	var idx []int
	for i, c := range t.Columns {
		if c.Kind == ColumnNumeric {
			idx = append(idx, i)
		}
	}
	return idx
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: make([]Column, len(t.Columns)),
		Rows:    make([][]Value, len(t.Rows)),
	}
	copy(out.Columns, t.Columns)
	for i, row := range t.Rows {
		r := make([]Value, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Head returns a copy of the first n rows (all rows if n exceeds the row count).
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := &Table{Columns: make([]Column, len(t.Columns)), Rows: make([][]Value, n)}
	copy(out.Columns, t.Columns)
	for i := 0; i < n; i++ {
		r := make([]Value, len(t.Rows[i]))
		copy(r, t.Rows[i])
		out.Rows[i] = r
	}
	return out
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
