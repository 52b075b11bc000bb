package schema

import (
	"strings"

	"github.com/KaramelBytes/autodash/internal/table"
)

// MaxDimensionCardinality is the exclusive upper bound on distinct values for
// a text column to be used as a dimension.
const MaxDimensionCardinality = 100

// NameRule maps lower-cased column-name substrings to a role.
type NameRule struct {
	Role       Role
	Substrings []string
}

// NameRules is the substring table consulted by the name-based rules. Any
// substring matching the trimmed, lower-cased column name is a hit.
var NameRules = []NameRule{
	{Role: RoleTime, Substrings: []string{"date", "time", "created"}},
	{Role: RoleRevenue, Substrings: []string{"revenue", "amount", "price", "sales", "cost"}},
	{Role: RoleUser, Substrings: []string{"user_id", "customer_id", "email", "uid"}},
}

// MatchName reports whether the column name hits the substring set of role.
func MatchName(role Role, name string) bool {
	clean := strings.ToLower(strings.TrimSpace(name))
	for _, nr := range NameRules {
		if nr.Role != role {
			continue
		}
		for _, s := range nr.Substrings {
			if strings.Contains(clean, s) {
				return true
			}
		}
	}
	return false
}

// Rule is one step of the classification chain. It returns the next
// assignment and true when it claims the column. A non-nil column replaces
// the input column in the classified table.
type Rule struct {
	Name  string
	Role  Role
	Apply func(col *table.Column, a Assignment) (Assignment, *table.Column, bool)
}

// DefaultRules returns the fixed chain: time, revenue, user, numeric,
// dimension. Order decides ties, e.g. a column that matches both the revenue
// and the user substrings becomes revenue.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "time-name-or-type", Role: RoleTime, Apply: timeRule},
		{Name: "revenue-name-numeric", Role: RoleRevenue, Apply: revenueRule},
		{Name: "user-name", Role: RoleUser, Apply: userRule},
		{Name: "numeric-type", Role: RoleNumeric, Apply: numericRule},
		{Name: "low-cardinality-text", Role: RoleDimension, Apply: dimensionRule},
	}
}

func timeRule(col *table.Column, a Assignment) (Assignment, *table.Column, bool) {
	if a.HasTime() {
		return a, nil, false
	}
	if !MatchName(RoleTime, col.Name) && col.Kind != table.KindTimestamp {
		return a, nil, false
	}
	coerced, err := col.AsTimestamps()
	if err != nil {
		return a, nil, false
	}
	return a.withTime(col.Name), coerced, true
}

func revenueRule(col *table.Column, a Assignment) (Assignment, *table.Column, bool) {
	if a.HasRevenue() || !MatchName(RoleRevenue, col.Name) || col.Kind != table.KindNumber {
		return a, nil, false
	}
	return a.withRevenue(col.Name), nil, true
}

func userRule(col *table.Column, a Assignment) (Assignment, *table.Column, bool) {
	if a.HasUser() || !MatchName(RoleUser, col.Name) {
		return a, nil, false
	}
	return a.withUser(col.Name), nil, true
}

func numericRule(col *table.Column, a Assignment) (Assignment, *table.Column, bool) {
	if col.Kind != table.KindNumber {
		return a, nil, false
	}
	return a.withNumeric(col.Name), nil, true
}

func dimensionRule(col *table.Column, a Assignment) (Assignment, *table.Column, bool) {
	if col.Kind != table.KindText || col.Distinct() >= MaxDimensionCardinality {
		return a, nil, false
	}
	return a.withDimension(col.Name), nil, true
}
