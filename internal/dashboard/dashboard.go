package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/autodash/internal/schema"
	"github.com/KaramelBytes/autodash/internal/views"
)

// Dashboard is the fully resolved result of one Build.
type Dashboard struct {
	Name     string              `json:"name"`
	Roles    schema.Assignment   `json:"roles"`
	Columns  []schema.ColumnRole `json:"columns"`
	Filter   Filter              `json:"filter"`
	Params   views.Params        `json:"-"`
	Metrics  views.Metrics       `json:"metrics"`
	Slots    []views.Slot        `json:"slots"`
	Warnings []string            `json:"warnings,omitempty"`
}

// Slot returns the slot of the given kind.
func (d *Dashboard) Slot(kind views.SlotKind) views.Slot {
	for _, s := range d.Slots {
		if s.Kind == kind {
			return s
		}
	}
	return views.Slot{Kind: kind}
}

// maxPoints caps the scatter rows and raw values echoed in text output.
const maxPoints = 10

// Markdown renders a compact text dashboard for terminals and files.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[DASHBOARD]\n")
	if d.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", d.Name))
	}
	if d.Filter.From != nil || d.Filter.To != nil {
		b.WriteString(fmt.Sprintf("Date range: %s .. %s\n", fmtDate(d.Filter.From), fmtDate(d.Filter.To)))
	}
	if d.Filter.Segment != "" && len(d.Filter.Values) > 0 {
		b.WriteString(fmt.Sprintf("Segment: %s in [%s]\n", d.Filter.Segment, strings.Join(d.Filter.Values, ", ")))
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range d.Columns {
		b.WriteString(fmt.Sprintf("- %s: %s (%s)\n", safeVal(c.Name), c.Role, c.Kind))
	}

	m := d.Metrics
	b.WriteString("\n[METRICS]\n")
	b.WriteString(fmt.Sprintf("- Rows analyzed: %d\n", m.RowsAnalyzed))
	if m.HasRevenue {
		b.WriteString(fmt.Sprintf("- Total revenue: %.2f\n", m.TotalRevenue))
	} else {
		b.WriteString("- Total revenue: n/a\n")
	}
	if m.HasUser {
		b.WriteString(fmt.Sprintf("- Active users: %d\n", m.ActiveUsers))
	} else {
		b.WriteString("- Active users: n/a\n")
	}
	if m.ARPU != nil {
		b.WriteString(fmt.Sprintf("- ARPU: %.2f\n", *m.ARPU))
	}

	for _, s := range d.Slots {
		b.WriteString(fmt.Sprintf("\n[%s]\n", strings.ToUpper(s.Title)))
		if !s.Available {
			b.WriteString(fmt.Sprintf("unavailable: %s\n", s.Reason))
			continue
		}
		writeSlot(&b, s)
	}

	if len(d.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range d.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeSlot(b *strings.Builder, s views.Slot) {
	switch s.Kind {
	case views.SlotTimeTrend:
		b.WriteString(fmt.Sprintf("%s of %s by %s (%s)\n", s.Aggregation, s.Y, s.X, s.Granularity))
		for _, bk := range s.Buckets {
			b.WriteString(fmt.Sprintf("- %s: %.4g\n", bk.End.Format("2006-01-02"), bk.Value))
		}
	case views.SlotBreakdown, views.SlotRankedBar:
		b.WriteString(fmt.Sprintf("%s of %s by %s (top %d)\n", s.Aggregation, s.Y, s.X, s.Limit))
		for _, g := range s.Groups {
			b.WriteString(fmt.Sprintf("- %s: %.4g\n", safeVal(g.Key), g.Value))
		}
	case views.SlotDistribution:
		sum := s.Summary
		b.WriteString(fmt.Sprintf("%s: n=%d\n", s.Y, sum.Count))
		if sum.Count == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("- min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g\n", sum.Min, sum.Q1, sum.Median, sum.Q3, sum.Max))
		b.WriteString(fmt.Sprintf("- mean %.4g, std %.4g\n", sum.Mean, sum.Std))
		if len(sum.Outliers) > 0 {
			b.WriteString(fmt.Sprintf("- outliers: %d above |z|>3.5\n", len(sum.Outliers)))
		}
	case views.SlotCorrelation:
		b.WriteString(fmt.Sprintf("%s vs %s", s.X, s.Y))
		if s.ColorBy != "" {
			b.WriteString(fmt.Sprintf(" colored by %s", s.ColorBy))
		}
		b.WriteString(fmt.Sprintf(" (%d points)\n", len(s.Points)))
		if s.R != nil {
			b.WriteString(fmt.Sprintf("- r=%.3f\n", *s.R))
		}
		for i, p := range s.Points {
			if i == maxPoints {
				b.WriteString(fmt.Sprintf("- ... %d more\n", len(s.Points)-maxPoints))
				break
			}
			if p.Group != "" {
				b.WriteString(fmt.Sprintf("- (%.4g, %.4g) %s\n", p.X, p.Y, safeVal(p.Group)))
				continue
			}
			b.WriteString(fmt.Sprintf("- (%.4g, %.4g)\n", p.X, p.Y))
		}
	}
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.Format("2006-01-02")
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
