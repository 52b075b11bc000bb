package schema_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/autodash/internal/schema"
	"github.com/KaramelBytes/autodash/internal/table"
)

func mustTable(t *testing.T, header []string, rows [][]string) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords("test.csv", header, rows)
	require.NoError(t, err)
	return tbl
}

func ordersTable(t *testing.T) *table.Table {
	regions := []string{"north", "south", "east", "west"}
	var rows [][]string
	for i := 0; i < 12; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("2024-%02d-15", i%12+1),
			fmt.Sprintf("c%d", i%5),
			fmt.Sprintf("%d.5", i*10),
			regions[i%4],
		})
	}
	return mustTable(t, []string{"order_date", "customer_id", "amount", "region"}, rows)
}

func TestClassifyOrdersExample(t *testing.T) {
	c := schema.Classify(ordersTable(t))

	assert.Equal(t, "order_date", c.Roles.Time)
	assert.Equal(t, "customer_id", c.Roles.User)
	assert.Equal(t, "amount", c.Roles.Revenue)
	assert.Equal(t, []string{"amount"}, c.Roles.NumericMeasures)
	assert.Equal(t, []string{"region"}, c.Roles.Dimensions)

	col, ok := c.Table.Column("order_date")
	require.True(t, ok)
	assert.Equal(t, table.KindTimestamp, col.Kind)
	assert.Equal(t, schema.RoleTime, c.RoleOf("order_date"))
	assert.Equal(t, schema.RoleDimension, c.RoleOf("region"))
}

func TestClassifyHighCardinalityCategory(t *testing.T) {
	var rows [][]string
	for i := 0; i < 150; i++ {
		rows = append(rows, []string{fmt.Sprintf("o-%03d", i), fmt.Sprintf("%d", i+1), fmt.Sprintf("%d", i/2), fmt.Sprintf("cat-%d", i)})
	}
	c := schema.Classify(mustTable(t, []string{"id", "price", "cost", "category"}, rows))

	assert.Equal(t, "price", c.Roles.Revenue)
	assert.Equal(t, []string{"price", "cost"}, c.Roles.NumericMeasures)
	assert.Empty(t, c.Roles.Dimensions)
	assert.Equal(t, schema.RoleUnclassified, c.RoleOf("category"))
	assert.Equal(t, schema.RoleUnclassified, c.RoleOf("id"))
	assert.Equal(t, schema.RoleNumeric, c.RoleOf("cost"))
}

func TestClassifyCardinalityBoundary(t *testing.T) {
	build := func(distinct int) *table.Table {
		var rows [][]string
		for i := 0; i < distinct; i++ {
			rows = append(rows, []string{fmt.Sprintf("v%d", i)})
		}
		return mustTable(t, []string{"segment"}, rows)
	}
	assert.Equal(t, []string{"segment"}, schema.Classify(build(99)).Roles.Dimensions)
	assert.Empty(t, schema.Classify(build(100)).Roles.Dimensions)
}

func TestClassifyFirstDateColumnWins(t *testing.T) {
	tbl := mustTable(t,
		[]string{"created_at", "ship_date", "updated_time"},
		[][]string{{"2024-01-01", "2024-01-03", "x"}, {"2024-01-02", "2024-01-04", "y"}},
	)
	c := schema.Classify(tbl)

	assert.Equal(t, "created_at", c.Roles.Time)
	// ship_date parses as timestamps but the time slot is locked.
	assert.Equal(t, schema.RoleUnclassified, c.RoleOf("ship_date"))
	// updated_time is low-cardinality text and falls through to dimensions.
	assert.Equal(t, []string{"updated_time"}, c.Roles.Dimensions)
}

func TestClassifyTimeRuleCoercesUnparseable(t *testing.T) {
	tbl := mustTable(t, []string{"event_time", "v"}, [][]string{{"2024-05-01", "1"}, {"soon", "2"}, {"", "3"}})
	c := schema.Classify(tbl)

	require.Equal(t, "event_time", c.Roles.Time)
	col, _ := c.Table.Column("event_time")
	assert.Equal(t, table.KindTimestamp, col.Values[0].Kind)
	assert.True(t, col.Values[1].Missing())
	assert.True(t, col.Values[2].Missing())

	orig, _ := tbl.Column("event_time")
	assert.Equal(t, table.KindText, orig.Kind, "input table must not be mutated")
}

func TestClassifyTimestampKindWithoutNameMatch(t *testing.T) {
	tbl := mustTable(t, []string{"signup", "score"}, [][]string{{"2024-01-01", "1"}, {"2024-02-01", "2"}})
	c := schema.Classify(tbl)
	assert.Equal(t, "signup", c.Roles.Time)
	assert.Equal(t, []string{"score"}, c.Roles.NumericMeasures)
}

func TestClassifyRevenueRequiresNumeric(t *testing.T) {
	tbl := mustTable(t, []string{"sales_rep", "unit_price"}, [][]string{{"ann", "3"}, {"bob", "4"}})
	c := schema.Classify(tbl)

	assert.Equal(t, "unit_price", c.Roles.Revenue)
	assert.Equal(t, []string{"sales_rep"}, c.Roles.Dimensions)
}

func TestClassifyRevenueBeforeUser(t *testing.T) {
	tbl := mustTable(t, []string{"billing_user_amount", "user_id"}, [][]string{{"1", "u1"}, {"2", "u2"}})
	c := schema.Classify(tbl)

	assert.Equal(t, "billing_user_amount", c.Roles.Revenue)
	assert.Equal(t, "user_id", c.Roles.User)
}

func TestClassifyUserHasNoTypeConstraint(t *testing.T) {
	tbl := mustTable(t, []string{"uid", "email", "visits"}, [][]string{{"1", "a@x", "3"}, {"2", "b@x", "4"}})
	c := schema.Classify(tbl)

	assert.Equal(t, "uid", c.Roles.User)
	// email would match the user rule but the slot is taken; it is low-cardinality text.
	assert.Equal(t, []string{"email"}, c.Roles.Dimensions)
	assert.Equal(t, []string{"visits"}, c.Roles.NumericMeasures)
}

func TestClassifySecondRevenueFallsToNumeric(t *testing.T) {
	tbl := mustTable(t, []string{"price", "cost", "Total Sales"}, [][]string{{"1", "2", "3"}})
	c := schema.Classify(tbl)

	assert.Equal(t, "price", c.Roles.Revenue)
	assert.Equal(t, []string{"price", "cost", "Total Sales"}, c.Roles.NumericMeasures)
}

func TestClassifyAllMissingColumnIsUnclassified(t *testing.T) {
	tbl := mustTable(t, []string{"blank", "n"}, [][]string{{"", "1"}, {"NA", "2"}})
	c := schema.Classify(tbl)
	assert.Equal(t, schema.RoleUnclassified, c.RoleOf("blank"))
	assert.Equal(t, []string{"n"}, c.Roles.NumericMeasures)
}

func TestClassifyMutualExclusivity(t *testing.T) {
	tbl := mustTable(t,
		[]string{"date", "time", "revenue", "amount", "user_id", "email", "qty", "tier", "notes"},
		[][]string{
			{"2024-01-01", "2024-01-01", "1", "2", "u1", "a@x", "5", "gold", "n1"},
			{"2024-01-02", "bad", "3", "4", "u2", "b@x", "6", "silver", "n2"},
		},
	)
	c := schema.Classify(tbl)

	seen := map[string]int{}
	for _, name := range []string{c.Roles.Time, c.Roles.User, c.Roles.Revenue} {
		if name != "" {
			seen[name]++
		}
	}
	for _, d := range c.Roles.Dimensions {
		seen[d]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, "column %s appears in %d roles", name, n)
	}
	assert.True(t, c.Roles.IsNumeric(c.Roles.Revenue))
	for _, cr := range c.Columns {
		if cr.Role == schema.RoleNumeric {
			assert.False(t, c.Roles.IsDimension(cr.Name))
		}
	}
	assert.Len(t, c.Columns, 9)
}

func TestClassifyIsDeterministic(t *testing.T) {
	tbl := ordersTable(t)
	first := schema.Classify(tbl)
	second := schema.Classify(tbl)
	assert.Equal(t, first.Roles, second.Roles)
	assert.Equal(t, first.Columns, second.Columns)
}

func TestClassifyNilTable(t *testing.T) {
	c := schema.Classify(nil)
	assert.Empty(t, c.Roles.NumericMeasures)
	assert.False(t, c.Roles.HasTime())
}

func TestMatchNameTable(t *testing.T) {
	tests := []struct {
		role schema.Role
		name string
		want bool
	}{
		{schema.RoleTime, "  Order_DATE ", true},
		{schema.RoleTime, "runtime_ms", true},
		{schema.RoleTime, "createdAt", true},
		{schema.RoleTime, "day", false},
		{schema.RoleRevenue, "GrossRevenue", true},
		{schema.RoleRevenue, "Unit Cost", true},
		{schema.RoleRevenue, "profit", false},
		{schema.RoleUser, "Customer_ID", true},
		{schema.RoleUser, "contact_email", true},
		{schema.RoleUser, "userid", false},
		{schema.RoleUser, "fluid_level", true},
		{schema.RoleDimension, "anything", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, schema.MatchName(tt.role, tt.name), "%s/%q", tt.role, tt.name)
	}
}

func TestClassifyWithCustomChain(t *testing.T) {
	tbl := mustTable(t, []string{"amount", "region"}, [][]string{{"1", "a"}})
	// Only the dimension rule: numeric columns stay unclassified.
	rules := schema.DefaultRules()[4:]
	c := schema.ClassifyWith(tbl, rules)
	assert.Empty(t, c.Roles.NumericMeasures)
	assert.Equal(t, []string{"region"}, c.Roles.Dimensions)
	assert.Equal(t, "low-cardinality-text", c.Columns[1].Rule)
}
