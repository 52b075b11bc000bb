package views

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/autodash/internal/schema"
)

// Granularity is the period the time trend is bucketed by.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ParseGranularity accepts day|week|month and the short forms D|W|M.
// An empty string means Month.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "month", "monthly":
		return Month, nil
	case "w", "week", "weekly":
		return Week, nil
	case "d", "day", "daily":
		return Day, nil
	default:
		return "", &ParamError{Param: "granularity", Value: s, Allowed: []string{"day", "week", "month"}}
	}
}

// Params are the user-chosen slot parameters. Empty fields take defaults.
// GroupBy is shared by the category breakdown and the ranked bar.
type Params struct {
	Granularity  Granularity
	GroupBy      string
	Distribution string
	X            string
	Y            string
	ColorBy      string
}

// ParamError reports a parameter naming a column outside its allowed role.
type ParamError struct {
	Param   string
	Value   string
	Allowed []string
}

func (e *ParamError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q: no eligible columns", e.Param, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Param, e.Value, strings.Join(e.Allowed, ", "))
}

// resolve validates p against the assignment and fills in defaults.
func (p Params) resolve(a schema.Assignment) (Params, error) {
	out := p
	g, err := ParseGranularity(string(p.Granularity))
	if err != nil {
		return out, err
	}
	out.Granularity = g
	if out.GroupBy, err = pick("group_by", p.GroupBy, a.Dimensions, 0); err != nil {
		return out, err
	}
	if out.Distribution, err = pick("dist", p.Distribution, a.NumericMeasures, 0); err != nil {
		return out, err
	}
	if out.X, err = pick("x", p.X, a.NumericMeasures, 0); err != nil {
		return out, err
	}
	if out.Y, err = pick("y", p.Y, a.NumericMeasures, 1); err != nil {
		return out, err
	}
	if p.ColorBy != "" && !slices.Contains(a.Dimensions, p.ColorBy) {
		return out, &ParamError{Param: "color_by", Value: p.ColorBy, Allowed: a.Dimensions}
	}
	return out, nil
}

// pick returns v when it is in allowed, or allowed[def] when v is empty.
func pick(param, v string, allowed []string, def int) (string, error) {
	if v == "" {
		if def < len(allowed) {
			return allowed[def], nil
		}
		return "", nil
	}
	if !slices.Contains(allowed, v) {
		return "", &ParamError{Param: param, Value: v, Allowed: allowed}
	}
	return v, nil
}
