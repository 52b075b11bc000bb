package schema

import (
	"slices"

	"github.com/KaramelBytes/autodash/internal/table"
)

// Role is the semantic category a column is assigned to.
type Role string

const (
	RoleTime         Role = "time"
	RoleUser         Role = "user"
	RoleRevenue      Role = "revenue"
	RoleNumeric      Role = "numeric"
	RoleDimension    Role = "dimension"
	RoleUnclassified Role = "unclassified"
)

// Assignment is the classifier output. Empty Time, User or Revenue means the
// role is unassigned. Revenue, when set, is also the first entry it
// contributed to NumericMeasures.
type Assignment struct {
	Time            string   `json:"time,omitempty"`
	User            string   `json:"user,omitempty"`
	Revenue         string   `json:"revenue,omitempty"`
	NumericMeasures []string `json:"numeric_measures"`
	Dimensions      []string `json:"dimensions"`
}

func (a Assignment) HasTime() bool    { return a.Time != "" }
func (a Assignment) HasUser() bool    { return a.User != "" }
func (a Assignment) HasRevenue() bool { return a.Revenue != "" }

// IsDimension reports whether name is one of the grouping columns.
func (a Assignment) IsDimension(name string) bool { return slices.Contains(a.Dimensions, name) }

// IsNumeric reports whether name is eligible for arithmetic aggregation.
func (a Assignment) IsNumeric(name string) bool { return slices.Contains(a.NumericMeasures, name) }

// clone copies the slices so a rule can extend them without touching the
// previous step of the fold.
func (a Assignment) clone() Assignment {
	a.NumericMeasures = slices.Clone(a.NumericMeasures)
	a.Dimensions = slices.Clone(a.Dimensions)
	return a
}

func (a Assignment) withTime(name string) Assignment {
	n := a.clone()
	n.Time = name
	return n
}

func (a Assignment) withUser(name string) Assignment {
	n := a.clone()
	n.User = name
	return n
}

func (a Assignment) withRevenue(name string) Assignment {
	n := a.clone()
	n.Revenue = name
	n.NumericMeasures = append(n.NumericMeasures, name)
	return n
}

func (a Assignment) withNumeric(name string) Assignment {
	n := a.clone()
	n.NumericMeasures = append(n.NumericMeasures, name)
	return n
}

func (a Assignment) withDimension(name string) Assignment {
	n := a.clone()
	n.Dimensions = append(n.Dimensions, name)
	return n
}

// ColumnRole explains which rule classified a column.
type ColumnRole struct {
	Name string     `json:"name"`
	Kind table.Kind `json:"kind"`
	Role Role       `json:"role"`
	Rule string     `json:"rule,omitempty"`
}

// Classification is the result of one classification pass. Table is the
// input table with the time column coerced to timestamps; the input itself
// is left untouched.
type Classification struct {
	Roles   Assignment   `json:"roles"`
	Columns []ColumnRole `json:"columns"`
	Table   *table.Table `json:"-"`
}

// RoleOf returns the role a column ended up in.
func (c *Classification) RoleOf(name string) Role {
	for _, cr := range c.Columns {
		if cr.Name == name {
			return cr.Role
		}
	}
	return RoleUnclassified
}
