package views

import (
	"github.com/KaramelBytes/autodash/internal/schema"
	"github.com/KaramelBytes/autodash/internal/table"
)

// Metrics are the headline numbers of a dashboard.
type Metrics struct {
	RowsAnalyzed int     `json:"rows_analyzed"`
	TotalRevenue float64 `json:"total_revenue"`
	ActiveUsers  int     `json:"active_users"`
	// ARPU is nil unless both revenue and user are assigned and there is at
	// least one active user.
	ARPU       *float64 `json:"arpu,omitempty"`
	HasRevenue bool     `json:"has_revenue"`
	HasUser    bool     `json:"has_user"`
}

// ComputeMetrics derives the headline numbers for the rows of t.
func ComputeMetrics(a schema.Assignment, t *table.Table) Metrics {
	m := Metrics{RowsAnalyzed: t.Rows(), HasRevenue: a.HasRevenue(), HasUser: a.HasUser()}
	if col, ok := t.Column(a.Revenue); ok && m.HasRevenue {
		for _, v := range col.Numbers() {
			m.TotalRevenue += v
		}
	}
	if col, ok := t.Column(a.User); ok && m.HasUser {
		m.ActiveUsers = col.Distinct()
	}
	if m.HasRevenue && m.HasUser && m.ActiveUsers > 0 {
		arpu := m.TotalRevenue / float64(m.ActiveUsers)
		m.ARPU = &arpu
	}
	return m
}
