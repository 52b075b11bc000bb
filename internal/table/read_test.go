package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var ordersCSV = strings.Join([]string{
	"order_date,customer_id,amount,region,note",
	"2024-01-05,c1,10.5,north,ok",
	"2024-01-20,c2,4,south,",
	"2024-02-02,c1,NA,north,late",
	"not a date,c3,7.25,east,ok",
}, "\n")

func TestReadCSVInfersKinds(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(ordersCSV), "orders.csv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Rows() != 4 {
		t.Fatalf("rows = %d, want 4", tbl.Rows())
	}
	want := map[string]Kind{
		"order_date":  KindText,
		"customer_id": KindText,
		"amount":      KindNumber,
		"region":      KindText,
		"note":        KindText,
	}
	for name, kind := range want {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if c.Kind != kind {
			t.Fatalf("%s kind = %s, want %s", name, c.Kind, kind)
		}
	}
	amount, _ := tbl.Column("amount")
	if !amount.Values[2].Missing() {
		t.Fatalf("NA should be missing, got %#v", amount.Values[2])
	}
	if got := amount.Numbers(); len(got) != 3 || got[0] != 10.5 || got[2] != 7.25 {
		t.Fatalf("numbers = %#v", got)
	}
	note, _ := tbl.Column("note")
	if !note.Values[1].Missing() {
		t.Fatalf("empty cell should be missing")
	}
	region, _ := tbl.Column("region")
	if region.Distinct() != 3 {
		t.Fatalf("region distinct = %d, want 3", region.Distinct())
	}
}

func TestReadCSVAllDatesIsTimestamp(t *testing.T) {
	in := "created,v\n2024-03-01,1\n2024-03-02 10:30:00,2\n,3\n"
	tbl, err := ReadCSV(strings.NewReader(in), "t.csv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	c, _ := tbl.Column("created")
	if c.Kind != KindTimestamp {
		t.Fatalf("kind = %s, want timestamp", c.Kind)
	}
	if !c.Values[0].Time.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first = %v", c.Values[0].Time)
	}
	if !c.Values[2].Missing() {
		t.Fatalf("blank should be missing")
	}
}

func TestReadCSVReplacesInvalidBytes(t *testing.T) {
	in := []byte("name,qty\ncaf\xe9,1\nok,2\n")
	tbl, err := ReadCSV(strings.NewReader(string(in)), "latin1.csv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	c, _ := tbl.Column("name")
	if c.Values[0].Text != "caf\uFFFD" {
		t.Fatalf("value = %q, want replacement char", c.Values[0].Text)
	}
}

func TestReadCSVHeaderHandling(t *testing.T) {
	in := "a,a,,a\n1,2,3,4\n"
	tbl, err := ReadCSV(strings.NewReader(in), "h.csv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	got := strings.Join(tbl.Names(), "|")
	if got != "a|a.1|Unnamed: 2|a.2" {
		t.Fatalf("names = %s", got)
	}

	if _, err := ReadCSV(strings.NewReader(""), "empty.csv", DefaultReadOptions()); err != ErrNoColumns {
		t.Fatalf("empty input err = %v, want ErrNoColumns", err)
	}
}

func TestReadCSVMaxRowsAndShortRows(t *testing.T) {
	in := "a,b\n1,x\n2\n3,z\n"
	opt := DefaultReadOptions()
	opt.MaxRows = 2
	tbl, err := ReadCSV(strings.NewReader(in), "m.csv", opt)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Rows())
	}
	b, _ := tbl.Column("b")
	if !b.Values[1].Missing() {
		t.Fatalf("padded cell should be missing")
	}
	if len(tbl.Warnings) != 1 || tbl.Warnings[0] != "loaded only 2/3 rows due to MaxRows" {
		t.Fatalf("warnings = %#v", tbl.Warnings)
	}
}

func TestReadFileTSVByExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "metrics.tsv")
	if err := os.WriteFile(p, []byte("x\ty\n1\t2\n3\t4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := ReadFile(p, DefaultReadOptions())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if tbl.Name != "metrics.tsv" || len(tbl.Columns) != 2 {
		t.Fatalf("table = %s with %d cols", tbl.Name, len(tbl.Columns))
	}
	if _, err := ReadFile(filepath.Join(dir, "nope.csv"), DefaultReadOptions()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSelectAndWithColumnDoNotMutate(t *testing.T) {
	tbl, err := FromRecords("s", []string{"k", "v"}, [][]string{{"a", "1"}, {"b", "2"}, {"c", "3"}})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	sub := tbl.Where(func(row int) bool { return row != 1 })
	if sub.Rows() != 2 || tbl.Rows() != 3 {
		t.Fatalf("rows sub=%d orig=%d", sub.Rows(), tbl.Rows())
	}
	k, _ := sub.Column("k")
	if k.Values[1].Text != "c" {
		t.Fatalf("sub second key = %q", k.Values[1].Text)
	}
	repl := &Column{Name: "v", Kind: KindText, Values: make([]Value, 3)}
	next := tbl.WithColumn(repl)
	orig, _ := tbl.Column("v")
	if orig.Kind != KindNumber {
		t.Fatalf("original column replaced in place")
	}
	if got, _ := next.Column("v"); got != repl {
		t.Fatalf("replacement not applied")
	}
}

func TestAsTimestampsCoercesToMissing(t *testing.T) {
	c := &Column{Name: "d", Kind: KindText, Values: []Value{
		{Kind: KindText, Text: "2024-01-31"},
		{Kind: KindText, Text: "garbage"},
		{},
		{Kind: KindText, Text: "01/02/2024"},
	}}
	out, err := c.AsTimestamps()
	if err != nil {
		t.Fatalf("AsTimestamps: %v", err)
	}
	if out.Kind != KindTimestamp {
		t.Fatalf("kind = %s", out.Kind)
	}
	if out.Values[0].Kind != KindTimestamp || !out.Values[1].Missing() || !out.Values[2].Missing() {
		t.Fatalf("values = %#v", out.Values)
	}
	if out.Values[3].Time.Month() != time.January || out.Values[3].Time.Day() != 2 {
		t.Fatalf("month-first parse = %v", out.Values[3].Time)
	}
	if c.Values[1].Kind != KindText {
		t.Fatalf("source column mutated")
	}
	var nilCol *Column
	if _, err := nilCol.AsTimestamps(); err != ErrNotCoercible {
		t.Fatalf("nil column err = %v", err)
	}
}

func TestReadStreamSelectsLoaderByName(t *testing.T) {
	tbl, err := Read(strings.NewReader("a\tb\n1\tx\n"), "upload.tsv", DefaultReadOptions())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := tbl.Names(); len(got) != 2 || got[1] != "b" {
		t.Fatalf("tsv stream not split on tabs: %v", got)
	}

	// Unknown names fall back to comma separated text.
	tbl, err = Read(strings.NewReader("a,b\n1,2\n"), "paste", DefaultReadOptions())
	if err != nil {
		t.Fatalf("Read fallback: %v", err)
	}
	if tbl.Rows() != 1 || tbl.Name != "paste" {
		t.Fatalf("unexpected table: rows=%d name=%q", tbl.Rows(), tbl.Name)
	}

	if _, err := Read(strings.NewReader("not a zip"), "book.xlsx", DefaultReadOptions()); err == nil {
		t.Fatalf("expected error for invalid workbook")
	}
}
