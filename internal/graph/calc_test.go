package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnorm/internal/process"
	"dnorm/internal/schema"
)

func TestOrderCalcColumnsOrdersByDependency(t *testing.T) {
	table := &process.ProcessedTable{
		Name: "invoice_lines",
		Columns: []*process.ResolvedColumn{
			{Name: "quantity", Def: &schema.ColumnDef{Type: schema.DataTypeInteger}},
			{Name: "unit_price", Def: &schema.ColumnDef{Type: schema.DataTypeDecimal}},
			{Name: "subtotal", Def: &schema.ColumnDef{Type: schema.DataTypeDecimal, Calculated: "quantity * unit_price"}},
			{Name: "total_with_tax", Def: &schema.ColumnDef{Type: schema.DataTypeDecimal, Calculated: "ROUND(subtotal * 1.2, 2)"}},
		},
	}
	table.ColumnIndex = map[string]*process.ResolvedColumn{}
	for _, c := range table.Columns {
		table.ColumnIndex[c.Name] = c
	}

	order, err := OrderCalcColumns(table)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "subtotal", order[0])
	assert.Equal(t, "total_with_tax", order[1])
}

func TestOrderCalcColumnsRejectsCycle(t *testing.T) {
	table := &process.ProcessedTable{
		Name: "t",
		Columns: []*process.ResolvedColumn{
			{Name: "a", Def: &schema.ColumnDef{Calculated: "b + 1"}},
			{Name: "b", Def: &schema.ColumnDef{Calculated: "a + 1"}},
		},
	}
	table.ColumnIndex = map[string]*process.ResolvedColumn{}
	for _, c := range table.Columns {
		table.ColumnIndex[c.Name] = c
	}

	_, err := OrderCalcColumns(table)
	assert.Error(t, err)
}
