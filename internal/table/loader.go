package table

import (
	"fmt"
	"io"
	"strings"
)

// Loader reads one tabular file format.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt ReadOptions) (*Table, error)
	// Decode reads the same format from a stream, e.g. an HTTP upload.
	Decode(r io.Reader, name string, opt ReadOptions) (*Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ReadFile selects a loader based on filename. Unknown extensions are read
// as comma separated text.
func ReadFile(path string, opt ReadOptions) (*Table, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return ReadCSVFile(path, opt)
}

// Read is ReadFile for streams; name only selects the loader and labels the table.
func Read(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	for _, l := range registry {
		if l.CanLoad(name) {
			return l.Decode(r, name, opt)
		}
	}
	return csvLoader{}.Decode(r, name, opt)
}

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvLoader) Load(path string, opt ReadOptions) (*Table, error) {
	return ReadCSVFile(path, opt)
}

func (csvLoader) Decode(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(name)
	}
	return ReadCSV(r, name, opt)
}

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Load(path string, opt ReadOptions) (*Table, error) {
	return ReadXLSXFile(path, opt)
}

func (xlsxLoader) Decode(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return ReadXLSX(b, name, opt)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
