package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnorm/internal/schema"
)

func bookAuthorDoc() *schema.Document {
	return &schema.Document{
		Columns: map[string]*schema.ColumnDef{
			"id":   {Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true},
			"name": {Type: schema.DataTypeVarchar, Size: 255},
		},
		Tables: map[string]*schema.TableDef{
			"authors": {
				Name:        "authors",
				Columns:     map[string]*schema.ColumnEntry{"id": {Kind: schema.EntryNull}, "name": {Kind: schema.EntryNull}},
				ColumnOrder: []string{"id", "name"},
				ForeignKeys: map[string]*schema.ForeignKeyDef{},
			},
			"books": {
				Name: "books",
				Columns: map[string]*schema.ColumnEntry{
					"id":    {Kind: schema.EntryNull},
					"title": {Kind: schema.EntryString, InheritName: "name"},
				},
				ColumnOrder: []string{"id", "title"},
				ForeignKeys: map[string]*schema.ForeignKeyDef{
					"author": {Table: "authors"},
				},
				FKOrder: []string{"author"},
			},
		},
		TableOrder: []string{"authors", "books"},
	}
}

func TestProcessSchemaSynthesizesFKColumn(t *testing.T) {
	ps, err := ProcessSchema(bookAuthorDoc())
	require.NoError(t, err)

	books, ok := ps.Table("books")
	require.True(t, ok)

	c, ok := books.Column("author_id")
	require.True(t, ok, "expected synthesized author_id column")
	assert.Equal(t, schema.DataTypeInteger, c.Def.Type)
	assert.False(t, c.Def.PrimaryKey)
	assert.False(t, c.Def.Sequence)
	assert.Equal(t, "author", c.FromFK)
	assert.Equal(t, "id", c.SourcePK)
}

func TestProcessSchemaResolvesInheritance(t *testing.T) {
	ps, err := ProcessSchema(bookAuthorDoc())
	require.NoError(t, err)

	books, _ := ps.Table("books")
	title, ok := books.Column("title")
	require.True(t, ok)
	assert.Equal(t, schema.DataTypeVarchar, title.Def.Type)
	assert.Equal(t, 255, title.Def.Size)
}

func TestProcessSchemaRejectsFKCycle(t *testing.T) {
	doc := &schema.Document{
		Columns: map[string]*schema.ColumnDef{
			"id": {Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true},
		},
		Tables: map[string]*schema.TableDef{
			"a": {
				Name:        "a",
				Columns:     map[string]*schema.ColumnEntry{"id": {Kind: schema.EntryNull}},
				ColumnOrder: []string{"id"},
				ForeignKeys: map[string]*schema.ForeignKeyDef{"b": {Table: "b"}},
				FKOrder:     []string{"b"},
			},
			"b": {
				Name:        "b",
				Columns:     map[string]*schema.ColumnEntry{"id": {Kind: schema.EntryNull}},
				ColumnOrder: []string{"id"},
				ForeignKeys: map[string]*schema.ForeignKeyDef{"a": {Table: "a"}},
				FKOrder:     []string{"a"},
			},
		},
		TableOrder: []string{"a", "b"},
	}

	_, err := ProcessSchema(doc)
	assert.Error(t, err)
}

func TestPrimaryKeyColumnsComposite(t *testing.T) {
	table := &ProcessedTable{
		Columns: []*ResolvedColumn{
			{Name: "a", Def: &schema.ColumnDef{PrimaryKey: true}},
			{Name: "b", Def: &schema.ColumnDef{PrimaryKey: true}},
			{Name: "c", Def: &schema.ColumnDef{}},
		},
	}
	pks := table.PrimaryKeyColumns()
	require.Len(t, pks, 2)
	assert.Equal(t, "a", pks[0].Name)
	assert.Equal(t, "b", pks[1].Name)
}
