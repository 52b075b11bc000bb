package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ReadOptions controls how raw files are loaded into a Table.
type ReadOptions struct {
	// Delimiter for CSV. If 0, picks tab for .tsv files and comma otherwise.
	Delimiter rune
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// XLSX sheet selection. SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultReadOptions returns reasonable defaults for loading a dataset.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{MaxRows: 100000, SheetIndex: 1}
}

// ErrNoColumns indicates the input had no header row.
var ErrNoColumns = errors.New("table has no columns")

// ReadCSVFile opens and reads a delimited text file.
func ReadCSVFile(path string, opt ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), opt)
}

// ReadCSV reads delimited text. Invalid UTF-8 sequences are replaced with
// U+FFFD instead of failing the read, and rows the CSV reader rejects are
// skipped with a warning.
func ReadCSV(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	cr := csv.NewReader(transform.NewReader(r, runes.ReplaceIllFormed()))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	b := newBuilder(name, header, opt.MaxRows)
	skipped := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, fmt.Errorf("read row %d: %w", b.seen+1, err)
		}
		b.add(rec)
	}
	t, err := b.build()
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		t.Warnings = append(t.Warnings, fmt.Sprintf("skipped %d malformed rows", skipped))
	}
	return t, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// builder collects raw rows and infers column kinds once all rows are in.
type builder struct {
	name    string
	header  []string
	rows    [][]string
	maxRows int
	seen    int
}

func newBuilder(name string, header []string, maxRows int) *builder {
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	return &builder{name: name, header: uniqueHeader(header), maxRows: maxRows}
}

func (b *builder) add(rec []string) {
	b.seen++
	if len(b.rows) >= b.maxRows {
		return
	}
	row := make([]string, len(b.header))
	copy(row, rec)
	b.rows = append(b.rows, row)
}

func (b *builder) build() (*Table, error) {
	if len(b.header) == 0 {
		return nil, ErrNoColumns
	}
	t := &Table{Name: b.name, Columns: make([]*Column, len(b.header))}
	for j, name := range b.header {
		raw := make([]string, len(b.rows))
		for i, row := range b.rows {
			raw[i] = row[j]
		}
		t.Columns[j] = inferColumn(name, raw)
	}
	if b.seen > len(b.rows) {
		t.Warnings = append(t.Warnings, fmt.Sprintf("loaded only %d/%d rows due to MaxRows", len(b.rows), b.seen))
	}
	return t, nil
}

// FromRecords builds a table from a header and string rows, inferring kinds
// the same way the file readers do.
func FromRecords(name string, header []string, rows [][]string) (*Table, error) {
	b := newBuilder(name, header, 0)
	for _, r := range rows {
		b.add(r)
	}
	return b.build()
}

// inferColumn decides the declared kind: numeric only when every present
// value is numeric, timestamp only when every present value parses as a
// date, otherwise text.
func inferColumn(name string, raw []string) *Column {
	c := &Column{Name: name, Values: make([]Value, len(raw))}
	present, numeric, temporal := 0, 0, 0
	for i, s := range raw {
		s = strings.TrimSpace(s)
		raw[i] = s
		if isMissingToken(s) {
			continue
		}
		present++
		if _, ok := parseNumber(s); ok {
			numeric++
			continue
		}
		if _, ok := ParseTime(s); ok {
			temporal++
		}
	}
	switch {
	case present == 0:
		c.Kind = KindMissing
	case numeric == present:
		c.Kind = KindNumber
	case temporal == present:
		c.Kind = KindTimestamp
	default:
		c.Kind = KindText
	}
	for i, s := range raw {
		if isMissingToken(s) {
			continue
		}
		switch c.Kind {
		case KindNumber:
			f, _ := parseNumber(s)
			c.Values[i] = Value{Kind: KindNumber, Num: f}
		case KindTimestamp:
			tm, _ := ParseTime(s)
			c.Values[i] = Value{Kind: KindTimestamp, Time: tm}
		default:
			c.Values[i] = Value{Kind: KindText, Text: s}
		}
	}
	return c
}

// uniqueHeader trims names, names blank headers by position and suffixes
// repeated names with .1, .2, ...
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = fmt.Sprintf("%s.%d", base, seen[base])
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
