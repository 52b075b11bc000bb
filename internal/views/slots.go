// Package views picks which summary visualizations a table supports and
// computes the data behind each of them.
package views

import (
	"github.com/KaramelBytes/autodash/internal/schema"
	"github.com/KaramelBytes/autodash/internal/table"
)

const (
	BreakdownLimit = 10
	RankedBarLimit = 15
)

// SlotKind names one of the five fixed dashboard positions.
type SlotKind string

const (
	SlotTimeTrend    SlotKind = "time_trend"
	SlotBreakdown    SlotKind = "category_breakdown"
	SlotRankedBar    SlotKind = "ranked_bar"
	SlotDistribution SlotKind = "distribution"
	SlotCorrelation  SlotKind = "correlation"
)

// Kinds lists the slots in dashboard order.
var Kinds = []SlotKind{SlotTimeTrend, SlotBreakdown, SlotRankedBar, SlotDistribution, SlotCorrelation}

// Aggregation is how a slot reduces its rows.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggCount Aggregation = "count"
	AggNone  Aggregation = "none"
)

// Slot is the resolved content of one dashboard position. When Available is
// false only Kind, Title and Reason are set.
type Slot struct {
	Kind        SlotKind    `json:"kind"`
	Title       string      `json:"title"`
	Available   bool        `json:"available"`
	Reason      string      `json:"reason,omitempty"`
	X           string      `json:"x,omitempty"`
	Y           string      `json:"y,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty"`
	ColorBy     string      `json:"color_by,omitempty"`
	Granularity Granularity `json:"granularity,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	// Options are the columns a user may switch this slot to.
	Options      []string `json:"options,omitempty"`
	ColorOptions []string `json:"color_options,omitempty"`

	Buckets []Bucket  `json:"buckets,omitempty"`
	Groups  []Group   `json:"groups,omitempty"`
	Summary *Summary  `json:"summary,omitempty"`
	Values  []float64 `json:"values,omitempty"`
	Points  []Point   `json:"points,omitempty"`
	R       *float64  `json:"r,omitempty"`
}

// Point is one row of the scatter plot.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Group string  `json:"group,omitempty"`
}

// Selection is the full view selection for one table.
type Selection struct {
	Params  Params  `json:"-"`
	Slots   []Slot  `json:"slots"`
	Metrics Metrics `json:"metrics"`
}

// Slot returns the slot of the given kind.
func (s *Selection) Slot(kind SlotKind) Slot {
	for _, sl := range s.Slots {
		if sl.Kind == kind {
			return sl
		}
	}
	return Slot{Kind: kind}
}

// Select resolves the five slots for t. The assignment must come from
// classifying t (or a row subset of it) so the time column holds timestamps.
// Every slot is resolved independently; one being unavailable never affects
// another.
func Select(a schema.Assignment, t *table.Table, p Params) (*Selection, error) {
	rp, err := p.resolve(a)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = &table.Table{}
	}
	return &Selection{
		Params: rp,
		Slots: []Slot{
			timeTrend(a, t, rp),
			breakdown(a, t, rp),
			rankedBar(a, t, rp),
			distribution(a, t, rp),
			correlation(a, t, rp),
		},
		Metrics: ComputeMetrics(a, t),
	}, nil
}

// metric is revenue when assigned, else the first numeric measure.
func metric(a schema.Assignment) string {
	if a.HasRevenue() {
		return a.Revenue
	}
	if len(a.NumericMeasures) > 0 {
		return a.NumericMeasures[0]
	}
	return ""
}

func unavailable(kind SlotKind, title, reason string) Slot {
	return Slot{Kind: kind, Title: title, Reason: reason}
}

func timeTrend(a schema.Assignment, t *table.Table, p Params) Slot {
	const title = "Trend over time"
	if !a.HasTime() {
		return unavailable(SlotTimeTrend, title, "No time column found")
	}
	y := metric(a)
	if y == "" {
		return unavailable(SlotTimeTrend, title, "No numeric column to aggregate")
	}
	return Slot{
		Kind:        SlotTimeTrend,
		Title:       title,
		Available:   true,
		X:           a.Time,
		Y:           y,
		Aggregation: AggSum,
		Granularity: p.Granularity,
		Buckets:     trend(t, a.Time, y, p.Granularity),
	}
}

func breakdown(a schema.Assignment, t *table.Table, p Params) Slot {
	const title = "Category breakdown"
	if len(a.Dimensions) == 0 {
		return unavailable(SlotBreakdown, title, "No categorical columns")
	}
	s := Slot{
		Kind:        SlotBreakdown,
		Title:       title,
		Available:   true,
		X:           p.GroupBy,
		Y:           "count",
		Aggregation: AggCount,
		Limit:       BreakdownLimit,
		Options:     a.Dimensions,
	}
	measure := ""
	if a.HasRevenue() {
		measure = a.Revenue
		s.Y = a.Revenue
		s.Aggregation = AggSum
	}
	s.Groups = groupAndAggregate(t, p.GroupBy, measure, BreakdownLimit)
	return s
}

func rankedBar(a schema.Assignment, t *table.Table, p Params) Slot {
	const title = "Top categories"
	if len(a.Dimensions) == 0 {
		return unavailable(SlotRankedBar, title, "No categorical columns")
	}
	y := metric(a)
	if y == "" {
		return unavailable(SlotRankedBar, title, "No numeric column to rank by")
	}
	return Slot{
		Kind:        SlotRankedBar,
		Title:       title,
		Available:   true,
		X:           p.GroupBy,
		Y:           y,
		Aggregation: AggSum,
		ColorBy:     y,
		Limit:       RankedBarLimit,
		Options:     a.Dimensions,
		Groups:      groupAndAggregate(t, p.GroupBy, y, RankedBarLimit),
	}
}

func distribution(a schema.Assignment, t *table.Table, p Params) Slot {
	const title = "Distribution"
	if len(a.NumericMeasures) == 0 {
		return unavailable(SlotDistribution, title, "No numeric columns")
	}
	s := Slot{
		Kind:        SlotDistribution,
		Title:       title,
		Available:   true,
		Y:           p.Distribution,
		Aggregation: AggNone,
		Options:     a.NumericMeasures,
	}
	if col, ok := t.Column(p.Distribution); ok {
		s.Values = col.Numbers()
	}
	s.Summary = summarize(s.Values)
	return s
}

func correlation(a schema.Assignment, t *table.Table, p Params) Slot {
	const title = "Correlation"
	if len(a.NumericMeasures) < 2 {
		return unavailable(SlotCorrelation, title, "Need at least 2 numeric columns")
	}
	s := Slot{
		Kind:         SlotCorrelation,
		Title:        title,
		Available:    true,
		X:            p.X,
		Y:            p.Y,
		Aggregation:  AggNone,
		ColorBy:      p.ColorBy,
		Options:      a.NumericMeasures,
		ColorOptions: a.Dimensions,
	}
	xc, okX := t.Column(p.X)
	yc, okY := t.Column(p.Y)
	if !okX || !okY {
		return s
	}
	var cc *table.Column
	if p.ColorBy != "" {
		cc, _ = t.Column(p.ColorBy)
	}
	var xs, ys []float64
	for i := range xc.Values {
		xv, yv := xc.Values[i], yc.Values[i]
		if xv.Kind != table.KindNumber || yv.Kind != table.KindNumber {
			continue
		}
		pt := Point{X: xv.Num, Y: yv.Num}
		if cc != nil {
			pt.Group = cc.Values[i].Key()
		}
		s.Points = append(s.Points, pt)
		xs = append(xs, xv.Num)
		ys = append(ys, yv.Num)
	}
	if r, ok := pearson(xs, ys); ok {
		s.R = &r
	}
	return s
}
