package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dnorm/internal/process"
	"dnorm/internal/schema"
)

func TestSQLTypeMapsPortableTypes(t *testing.T) {
	assert.Equal(t, "INT", SQLType(&schema.ColumnDef{Type: schema.DataTypeInteger}))
	assert.Equal(t, "VARCHAR(255)", SQLType(&schema.ColumnDef{Type: schema.DataTypeVarchar, Size: 255}))
	assert.Equal(t, "DECIMAL(10,2)", SQLType(&schema.ColumnDef{Type: schema.DataTypeDecimal, Size: 10, Decimal: 2}))
	assert.Equal(t, "DECIMAL", SQLType(&schema.ColumnDef{Type: schema.DataTypeNumeric}))
	assert.Equal(t, "TINYINT(1)", SQLType(&schema.ColumnDef{Type: schema.DataTypeBoolean}))
	assert.Equal(t, "JSON", SQLType(&schema.ColumnDef{Type: schema.DataTypeJSON}))
}

func bookTable() *process.ProcessedTable {
	table := &process.ProcessedTable{
		Name: "books",
		Columns: []*process.ResolvedColumn{
			{Name: "id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true}},
			{Name: "author_id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger}, FromFK: "author", SourcePK: "id"},
			{Name: "title", Def: &schema.ColumnDef{Type: schema.DataTypeVarchar, Size: 255}},
			{Name: "review_count", Def: &schema.ColumnDef{
				Type:       schema.DataTypeInteger,
				Automation: &schema.AutomationDef{Type: schema.AutomationCount, Table: "reviews", ForeignKey: "book"},
			}},
		},
		ForeignKeys: map[string]*schema.ForeignKeyDef{
			"author": {Table: "authors"},
		},
	}
	table.ColumnIndex = map[string]*process.ResolvedColumn{}
	for _, c := range table.Columns {
		table.ColumnIndex[c.Name] = c
	}
	return table
}

func TestEmitCreateTableRendersAggregationColumnWithZeroDefault(t *testing.T) {
	sql := EmitCreateTable(bookTable())
	assert.Contains(t, sql, "CREATE TABLE books (")
	assert.Contains(t, sql, "review_count INT NOT NULL DEFAULT 0 COMMENT 'maintained by generated triggers'")
	assert.Contains(t, sql, "id INT NOT NULL AUTO_INCREMENT")
	assert.Contains(t, sql, "PRIMARY KEY (id)")
}

func TestEmitCreateTableRendersAggregationColumnWithoutSafeDefault(t *testing.T) {
	table := &process.ProcessedTable{
		Name: "reviews",
		Columns: []*process.ResolvedColumn{
			{Name: "id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true}},
			{Name: "last_reviewed_at", Def: &schema.ColumnDef{
				Type:       schema.DataTypeTimestamp,
				Automation: &schema.AutomationDef{Type: schema.AutomationLatest, Table: "review_events", ForeignKey: "review"},
			}},
		},
	}
	table.ColumnIndex = map[string]*process.ResolvedColumn{}
	for _, c := range table.Columns {
		table.ColumnIndex[c.Name] = c
	}

	sql := EmitCreateTable(table)
	assert.Contains(t, sql, "last_reviewed_at TIMESTAMP NULL COMMENT 'maintained by generated triggers; no default: column type has no safe sentinel value'")
}

func TestEmitCreateTableRendersForeignKeyConstraint(t *testing.T) {
	sql := EmitCreateTable(bookTable())
	assert.Contains(t, sql, "CONSTRAINT fk_books_author FOREIGN KEY (author_id) REFERENCES authors (id)")
}

func TestEmitSeedContentQuotesAndSortsColumns(t *testing.T) {
	table := &process.ProcessedTable{
		Name: "statuses",
		Content: []map[string]string{
			{"name": "open", "id": "1"},
			{"name": "it's closed", "id": "2"},
		},
	}
	sql := EmitSeedContent(table)
	assert.Contains(t, sql, "INSERT INTO statuses (id, name) VALUES ('1', 'open');")
	assert.Contains(t, sql, "INSERT INTO statuses (id, name) VALUES ('2', 'it''s closed');")
}

func TestEmitSeedContentEmptyWhenNoRows(t *testing.T) {
	table := &process.ProcessedTable{Name: "empty"}
	assert.Empty(t, EmitSeedContent(table))
}

func TestEmitSchemaRendersInGivenOrder(t *testing.T) {
	authors := &process.ProcessedTable{
		Name: "authors",
		Columns: []*process.ResolvedColumn{
			{Name: "id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true}},
		},
	}
	authors.ColumnIndex = map[string]*process.ResolvedColumn{"id": authors.Columns[0]}
	books := bookTable()

	ps := &process.ProcessedSchema{
		Tables: map[string]*process.ProcessedTable{"authors": authors, "books": books},
	}
	sql := EmitSchema(ps, []string{"authors", "books"})

	authorIdx := indexOf(t, sql, "CREATE TABLE authors")
	bookIdx := indexOf(t, sql, "CREATE TABLE books")
	assert.Less(t, authorIdx, bookIdx)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	t.Fatalf("expected %q to contain %q", haystack, needle)
	return -1
}
