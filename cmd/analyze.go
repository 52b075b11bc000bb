package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/autodash/internal/dashboard"
	"github.com/KaramelBytes/autodash/internal/table"
	"github.com/KaramelBytes/autodash/internal/utils"
	"github.com/KaramelBytes/autodash/internal/views"
	"github.com/spf13/cobra"
)

// dashFlags are the loading, filter and view flags shared by analyze and
// analyze-batch.
type dashFlags struct {
	delimiter   string
	maxRows     int
	sheetName   string
	sheetIndex  int
	granularity string
	groupBy     string
	dist        string
	x           string
	y           string
	colorBy     string
	from        string
	to          string
	segment     string
	values      []string
	format      string
}

func (f *dashFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (default from config, else by extension)")
	fl.IntVar(&f.maxRows, "max-rows", 100000, "maximum rows to load (0 = unlimited)")
	fl.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fl.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fl.StringVar(&f.granularity, "granularity", "", "time trend bucket: day|week|month (or D|W|M)")
	fl.StringVar(&f.groupBy, "group-by", "", "dimension for the category breakdown and ranked bar")
	fl.StringVar(&f.dist, "dist", "", "numeric column for the distribution")
	fl.StringVar(&f.x, "x", "", "numeric column for the scatter x axis")
	fl.StringVar(&f.y, "y", "", "numeric column for the scatter y axis")
	fl.StringVar(&f.colorBy, "color-by", "", "dimension to color scatter points by")
	fl.StringVar(&f.from, "from", "", "keep rows on or after this date")
	fl.StringVar(&f.to, "to", "", "keep rows on or before this date (whole day)")
	fl.StringVar(&f.segment, "segment", "", "dimension to filter on")
	fl.StringSliceVar(&f.values, "values", nil, "segment values to keep (comma-separated, repeatable)")
	fl.StringVar(&f.format, "format", "", "output format: md|json (default from config)")
}

func (f *dashFlags) readOptions(cmd *cobra.Command) (table.ReadOptions, error) {
	c := currentConfig()
	opt := table.DefaultReadOptions()
	opt.MaxRows = c.MaxRows
	if cmd.Flags().Changed("max-rows") {
		opt.MaxRows = f.maxRows
	}
	if opt.MaxRows < 0 {
		return opt, fmt.Errorf("invalid --max-rows: %d", opt.MaxRows)
	}
	delim := c.Delimiter
	if f.delimiter != "" {
		delim = f.delimiter
	}
	if delim != "" {
		r, err := parseDelimiter(delim)
		if err != nil {
			return opt, err
		}
		opt.Delimiter = r
	}
	opt.SheetName = f.sheetName
	opt.SheetIndex = f.sheetIndex
	return opt, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case ",":
		return ',', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

func (f *dashFlags) filter() (dashboard.Filter, error) {
	var out dashboard.Filter
	var err error
	if out.From, err = dashboard.ParseDate(f.from); err != nil {
		return out, fmt.Errorf("--from: %w", err)
	}
	if out.To, err = dashboard.ParseDate(f.to); err != nil {
		return out, fmt.Errorf("--to: %w", err)
	}
	out.Segment = f.segment
	for _, v := range f.values {
		if v = strings.TrimSpace(v); v != "" {
			out.Values = append(out.Values, v)
		}
	}
	if len(out.Values) > 0 && out.Segment == "" {
		return out, fmt.Errorf("--values requires --segment")
	}
	return out, nil
}

func (f *dashFlags) params() (views.Params, error) {
	raw := f.granularity
	if raw == "" {
		raw = currentConfig().DefaultGranularity
	}
	g, err := views.ParseGranularity(raw)
	if err != nil {
		return views.Params{}, err
	}
	return views.Params{
		Granularity:  g,
		GroupBy:      f.groupBy,
		Distribution: f.dist,
		X:            f.x,
		Y:            f.y,
		ColorBy:      f.colorBy,
	}, nil
}

func (f *dashFlags) outputFormat() (string, error) {
	format := f.format
	if format == "" {
		format = currentConfig().OutputFormat
	}
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return "md", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported --format: %s (use md|json)", format)
	}
}

// build loads path and renders its dashboard in the requested format.
func (f *dashFlags) build(cmd *cobra.Command, path string) (string, error) {
	opt, err := f.readOptions(cmd)
	if err != nil {
		return "", err
	}
	filter, err := f.filter()
	if err != nil {
		return "", err
	}
	params, err := f.params()
	if err != nil {
		return "", err
	}
	format, err := f.outputFormat()
	if err != nil {
		return "", err
	}

	tbl, err := table.ReadFile(path, opt)
	if err != nil {
		return "", err
	}
	sess := dashboard.New(tbl.Name, tbl)
	log.Debug("table classified", "file", path, "rows", sess.Rows(), "roles", sess.Roles())
	d, err := sess.Build(filter, params)
	if err != nil {
		return "", err
	}
	if format == "json" {
		b, err := utils.PrettyJSON(d)
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	}
	return d.Markdown(), nil
}

var anaFlags dashFlags
var anaOutputPath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify a CSV/TSV/XLSX table and print its dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := anaFlags.build(cmd, args[0])
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(out)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote dashboard to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the dashboard")
}
