// Package dashboard holds a classified table for interactive use: it applies
// date-range and segment filters and builds the dashboard for each request.
package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/KaramelBytes/autodash/internal/schema"
	"github.com/KaramelBytes/autodash/internal/table"
	"github.com/KaramelBytes/autodash/internal/views"
)

var (
	// ErrUnknownSegment is returned when a segment filter names a column that
	// is not a dimension.
	ErrUnknownSegment = errors.New("segment column is not a dimension")
	// ErrInvalidRange is returned when From is after To.
	ErrInvalidRange = errors.New("date range start is after its end")
)

// Filter narrows the rows a dashboard is built from. Zero value keeps all rows.
type Filter struct {
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Segment string     `json:"segment,omitempty"`
	Values  []string   `json:"values,omitempty"`
}

// Session is one loaded table and its role assignment. It is immutable after
// New and safe for concurrent use.
type Session struct {
	Name      string
	CreatedAt time.Time
	class     *schema.Classification
}

// New classifies t once. The assignment does not change for the lifetime of
// the session, whatever filters are applied later.
func New(name string, t *table.Table) *Session {
	return &Session{Name: name, CreatedAt: time.Now().UTC(), class: schema.Classify(t)}
}

func (s *Session) Roles() schema.Assignment { return s.class.Roles }

func (s *Session) Classification() *schema.Classification { return s.class }

// Rows is the unfiltered row count.
func (s *Session) Rows() int { return s.class.Table.Rows() }

// Warnings are the loader notes of the source table.
func (s *Session) Warnings() []string {
	if s.class.Table == nil {
		return nil
	}
	return s.class.Table.Warnings
}

// Bounds returns the earliest and latest timestamp of the time column.
func (s *Session) Bounds() (first, last time.Time, ok bool) {
	col, found := s.timeColumn()
	if !found {
		return first, last, false
	}
	for _, v := range col.Values {
		if v.Kind != table.KindTimestamp {
			continue
		}
		if !ok || v.Time.Before(first) {
			first = v.Time
		}
		if !ok || v.Time.After(last) {
			last = v.Time
		}
		ok = true
	}
	return first, last, ok
}

// SegmentValues lists the distinct non-missing values of a dimension, sorted.
func (s *Session) SegmentValues(dim string) ([]string, error) {
	if !s.class.Roles.IsDimension(dim) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSegment, dim)
	}
	col, _ := s.class.Table.Column(dim)
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, v := range col.Values {
		if v.Missing() {
			continue
		}
		k := v.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Apply returns the rows that pass f as a new table. The session table is
// left untouched.
func (s *Session) Apply(f Filter) (*table.Table, error) {
	t := s.class.Table
	if t == nil {
		return &table.Table{}, nil
	}
	if f.From != nil && f.To != nil && dayStart(*f.From).After(dayStart(*f.To)) {
		return nil, ErrInvalidRange
	}
	keeps := make([]func(int) bool, 0, 2)

	if col, ok := s.timeColumn(); ok && (f.From != nil || f.To != nil) {
		var lo, hi time.Time
		if f.From != nil {
			lo = dayStart(*f.From)
		}
		if f.To != nil {
			hi = dayStart(*f.To).AddDate(0, 0, 1)
		}
		keeps = append(keeps, func(i int) bool {
			v := col.Values[i]
			if v.Kind != table.KindTimestamp {
				return false
			}
			d := dayStart(v.Time)
			if f.From != nil && d.Before(lo) {
				return false
			}
			return f.To == nil || d.Before(hi)
		})
	}

	if f.Segment != "" {
		if !s.class.Roles.IsDimension(f.Segment) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSegment, f.Segment)
		}
		if len(f.Values) > 0 {
			col, _ := t.Column(f.Segment)
			keeps = append(keeps, func(i int) bool {
				v := col.Values[i]
				return !v.Missing() && slices.Contains(f.Values, v.Key())
			})
		}
	}

	if len(keeps) == 0 {
		return t, nil
	}
	return t.Where(func(i int) bool {
		for _, keep := range keeps {
			if !keep(i) {
				return false
			}
		}
		return true
	}), nil
}

// Build filters the session table and selects the views for what remains.
func (s *Session) Build(f Filter, p views.Params) (*Dashboard, error) {
	rows, err := s.Apply(f)
	if err != nil {
		return nil, err
	}
	sel, err := views.Select(s.class.Roles, rows, p)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Name:     s.Name,
		Roles:    s.class.Roles,
		Columns:  s.class.Columns,
		Filter:   f,
		Params:   sel.Params,
		Metrics:  sel.Metrics,
		Slots:    sel.Slots,
		Warnings: s.Warnings(),
	}, nil
}

func (s *Session) timeColumn() (*table.Column, bool) {
	if !s.class.Roles.HasTime() || s.class.Table == nil {
		return nil, false
	}
	return s.class.Table.Column(s.class.Roles.Time)
}

// dayStart is the wall-clock date of t in UTC.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a filter bound. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, ok := table.ParseTime(s)
	if !ok {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}
