package views

import (
	"sort"
	"time"

	"github.com/KaramelBytes/autodash/internal/table"
)

// Group is one aggregated category.
type Group struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Bucket is one period of the time trend. Start and End are calendar days,
// End inclusive; End is the period label.
type Bucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value float64   `json:"value"`
}

// groupAndAggregate runs group → aggregate → sort → limit. With an empty
// measure it counts rows per key, otherwise it sums the measure; missing
// measure values add nothing. Rows with a missing key are dropped.
func groupAndAggregate(t *table.Table, dimension, measure string, limit int) []Group {
	dim, ok := t.Column(dimension)
	if !ok {
		return nil
	}
	var m *table.Column
	if measure != "" {
		if m, ok = t.Column(measure); !ok {
			return nil
		}
	}

	sums := make(map[string]float64)
	order := make([]string, 0)
	for i, v := range dim.Values {
		if v.Missing() {
			continue
		}
		key := v.Key()
		if _, seen := sums[key]; !seen {
			order = append(order, key)
			sums[key] = 0
		}
		if m == nil {
			sums[key]++
			continue
		}
		if mv := m.Values[i]; mv.Kind == table.KindNumber {
			sums[key] += mv.Num
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{Key: key, Value: sums[key]})
	}
	sortGroups(groups)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// sortGroups orders by value descending, ties by key ascending.
func sortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Value != groups[j].Value {
			return groups[i].Value > groups[j].Value
		}
		return groups[i].Key < groups[j].Key
	})
}

// trend sums measure per period of g between the first and last timestamp.
// Periods with no contributing rows are present with value 0.
func trend(t *table.Table, timeCol, measure string, g Granularity) []Bucket {
	tc, ok := t.Column(timeCol)
	if !ok {
		return nil
	}
	m, ok := t.Column(measure)
	if !ok {
		return nil
	}

	var first, last time.Time
	sums := make(map[int64]float64)
	found := false
	for i, v := range tc.Values {
		if v.Kind != table.KindTimestamp {
			continue
		}
		start := periodStart(v.Time, g)
		if !found || start.Before(first) {
			first = start
		}
		if !found || start.After(last) {
			last = start
		}
		found = true
		if mv := m.Values[i]; mv.Kind == table.KindNumber {
			sums[start.Unix()] += mv.Num
		}
	}
	if !found {
		return nil
	}

	var out []Bucket
	for s := first; !s.After(last); s = nextPeriod(s, g) {
		out = append(out, Bucket{Start: s, End: periodEnd(s, g), Value: sums[s.Unix()]})
	}
	return out
}

// periodStart buckets by the wall-clock date of t, in UTC. The offset t was
// written with is ignored.
func periodStart(t time.Time, g Granularity) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Week:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func nextPeriod(start time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return start.AddDate(0, 0, 7)
	case Month:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func periodEnd(start time.Time, g Granularity) time.Time {
	return nextPeriod(start, g).AddDate(0, 0, -1)
}
