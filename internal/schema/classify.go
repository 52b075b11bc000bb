// Package schema assigns semantic roles to the columns of an unlabeled table
// from column names and value kinds alone.
package schema

import (
	"github.com/KaramelBytes/autodash/internal/table"
)

// Classify runs DefaultRules over the table. It never fails; columns no rule
// claims are reported as unclassified.
func Classify(t *table.Table) *Classification {
	return ClassifyWith(t, DefaultRules())
}

// ClassifyWith folds every column, left to right, through the ordered rules.
// The first rule that claims a column wins and later rules are not consulted
// for it.
func ClassifyWith(t *table.Table, rules []Rule) *Classification {
	out := &Classification{
		Roles: Assignment{NumericMeasures: []string{}, Dimensions: []string{}},
		Table: t,
	}
	if t == nil {
		return out
	}
	for _, col := range t.Columns {
		cr := ColumnRole{Name: col.Name, Kind: col.Kind, Role: RoleUnclassified}
		for _, r := range rules {
			next, replaced, ok := r.Apply(col, out.Roles)
			if !ok {
				continue
			}
			out.Roles = next
			if replaced != nil {
				out.Table = out.Table.WithColumn(replaced)
				cr.Kind = replaced.Kind
			}
			cr.Role = r.Role
			cr.Rule = r.Name
			break
		}
		out.Columns = append(out.Columns, cr)
	}
	return out
}
