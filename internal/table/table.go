package table

import (
	"errors"
	"time"
)

// Kind is the primitive kind of a single value, and the declared kind of a column.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTimestamp:
		return "timestamp"
	default:
		return "missing"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText is the inverse of MarshalText. Unknown names read as missing.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "text":
		*k = KindText
	case "number":
		*k = KindNumber
	case "timestamp":
		*k = KindTimestamp
	default:
		*k = KindMissing
	}
	return nil
}

// Value is one cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Text string
	Num  float64
	Time time.Time
}

// Missing reports whether the cell holds no value.
func (v Value) Missing() bool { return v.Kind == KindMissing }

// Key renders a non-missing value as a grouping key.
func (v Value) Key() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return formatNumber(v.Num)
	case KindTimestamp:
		return v.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// Column holds the values of one named column.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// ErrNotCoercible is returned when a column cannot be converted at all.
var ErrNotCoercible = errors.New("column cannot be coerced")

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Values) }

// Distinct counts the distinct non-missing values.
func (c *Column) Distinct() int {
	seen := make(map[string]struct{})
	for _, v := range c.Values {
		if v.Missing() {
			continue
		}
		seen[v.Key()] = struct{}{}
	}
	return len(seen)
}

// Numbers returns the non-missing numeric values in row order.
func (c *Column) Numbers() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Kind == KindNumber {
			out = append(out, v.Num)
		}
	}
	return out
}

// AsTimestamps returns a copy of the column with every value parsed as a
// timestamp. Values that do not parse become missing.
func (c *Column) AsTimestamps() (*Column, error) {
	if c == nil {
		return nil, ErrNotCoercible
	}
	out := &Column{Name: c.Name, Kind: KindTimestamp, Values: make([]Value, len(c.Values))}
	for i, v := range c.Values {
		switch v.Kind {
		case KindTimestamp:
			out.Values[i] = v
		case KindText:
			if t, ok := ParseTime(v.Text); ok {
				out.Values[i] = Value{Kind: KindTimestamp, Time: t}
			}
		case KindNumber:
			// Bare numbers are only accepted as compact dates such as 20240131.
			if t, ok := ParseTime(formatNumber(v.Num)); ok {
				out.Values[i] = Value{Kind: KindTimestamp, Time: t}
			}
		}
	}
	return out, nil
}

// Table is an ordered set of equally long columns.
type Table struct {
	Name     string
	Columns  []*Column
	Warnings []string
}

// Rows returns the row count.
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// WithColumn returns a new table in which the column of the same name is
// replaced. Other columns are shared with the receiver.
func (t *Table) WithColumn(col *Column) *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns)), Warnings: t.Warnings}
	for i, c := range t.Columns {
		if c.Name == col.Name {
			out.Columns[i] = col
			continue
		}
		out.Columns[i] = c
	}
	return out
}

// Select returns a new table holding only the given rows, in the given order.
func (t *Table) Select(rows []int) *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns)), Warnings: t.Warnings}
	for i, c := range t.Columns {
		nc := &Column{Name: c.Name, Kind: c.Kind, Values: make([]Value, len(rows))}
		for j, r := range rows {
			nc.Values[j] = c.Values[r]
		}
		out.Columns[i] = nc
	}
	return out
}

// Where returns the rows for which keep reports true, as a new table.
func (t *Table) Where(keep func(row int) bool) *Table {
	var rows []int
	for i := 0; i < t.Rows(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}
