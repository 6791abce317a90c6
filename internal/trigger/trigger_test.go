package trigger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnorm/internal/process"
	"dnorm/internal/schema"
)

// authorsBooksSchema builds a two-table processed schema by hand: authors
// (parent, with COUNT/SUM/MAX/LATEST aggregates fed by books) and books (child,
// with a FOLLOW cascade pulling the author's name and a synthesized FK).
func authorsBooksSchema(t *testing.T) *process.ProcessedSchema {
	t.Helper()

	authors := &process.ProcessedTable{
		Name: "authors",
		Columns: []*process.ResolvedColumn{
			{Name: "id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true}},
			{Name: "name", Def: &schema.ColumnDef{Type: schema.DataTypeVarchar, Size: 255}},
			{Name: "book_count", Def: &schema.ColumnDef{
				Type:       schema.DataTypeInteger,
				Automation: &schema.AutomationDef{Type: schema.AutomationCount, Table: "books", ForeignKey: "author"},
			}},
			{Name: "total_pages", Def: &schema.ColumnDef{
				Type:       schema.DataTypeInteger,
				Automation: &schema.AutomationDef{Type: schema.AutomationSum, Table: "books", ForeignKey: "author", Column: "pages"},
			}},
			{Name: "longest_title_pages", Def: &schema.ColumnDef{
				Type:       schema.DataTypeInteger,
				Automation: &schema.AutomationDef{Type: schema.AutomationMax, Table: "books", ForeignKey: "author", Column: "pages"},
			}},
			{Name: "latest_title", Def: &schema.ColumnDef{
				Type:       schema.DataTypeVarchar,
				Size:       255,
				Automation: &schema.AutomationDef{Type: schema.AutomationLatest, Table: "books", ForeignKey: "author", Column: "title"},
			}},
		},
	}
	authors.ColumnIndex = indexColumns(authors.Columns)

	books := &process.ProcessedTable{
		Name: "books",
		Columns: []*process.ResolvedColumn{
			{Name: "id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger, PrimaryKey: true, Sequence: true}},
			{Name: "author_id", Def: &schema.ColumnDef{Type: schema.DataTypeInteger}, FromFK: "author", SourcePK: "id"},
			{Name: "title", Def: &schema.ColumnDef{Type: schema.DataTypeVarchar, Size: 255}},
			{Name: "pages", Def: &schema.ColumnDef{Type: schema.DataTypeInteger}},
			{Name: "author_name", Def: &schema.ColumnDef{
				Type:       schema.DataTypeVarchar,
				Size:       255,
				Automation: &schema.AutomationDef{Type: schema.AutomationFollow, Table: "authors", ForeignKey: "author", Column: "name"},
			}},
		},
	}
	books.ColumnIndex = indexColumns(books.Columns)

	ps := &process.ProcessedSchema{
		Tables:     map[string]*process.ProcessedTable{"authors": authors, "books": books},
		TableOrder: []string{"authors", "books"},
	}
	return ps
}

func indexColumns(cols []*process.ResolvedColumn) map[string]*process.ResolvedColumn {
	idx := make(map[string]*process.ResolvedColumn, len(cols))
	for _, c := range cols {
		idx[c.Name] = c
	}
	return idx
}

func TestAnalyzeBuildsCascadeAndAggregationLinks(t *testing.T) {
	ps := authorsBooksSchema(t)

	automations, err := Analyze(ps)
	require.NoError(t, err)

	books := automations["books"]
	require.Len(t, books.Pulls, 1)
	assert.Equal(t, "author_name", books.Pulls[0].ChildColumn)
	assert.True(t, books.Pulls[0].Live)

	authors := automations["authors"]
	require.Len(t, authors.PushToChildren, 1)
	assert.Equal(t, "books", authors.PushToChildren[0].ChildTable)

	require.Len(t, books.PushToParents, 4)
}

func TestGenerateTableEmitsConsolidatedTriggers(t *testing.T) {
	ps := authorsBooksSchema(t)
	automations, err := Analyze(ps)
	require.NoError(t, err)

	triggers, err := GenerateAll(automations)
	require.NoError(t, err)

	books := triggers["books"]
	require.NotNil(t, books)
	assert.Contains(t, books.Insert, "books_before_insert_genlogic")
	assert.Contains(t, books.Insert, "SET NEW.author_name")
	assert.Contains(t, books.Update, "books_before_update_genlogic")
	assert.Contains(t, books.Delete, "books_before_delete_genlogic")

	authors := triggers["authors"]
	require.NotNil(t, authors)
	assert.Contains(t, authors.Update, "UPDATE books SET author_name = NEW.name")
}

func TestSumStatementsBranchOnFKChange(t *testing.T) {
	link := AggregationLink{
		ParentTable: "authors", ParentColumn: "total_pages",
		ChildTable: "books", SourceColumn: "pages",
		FKColumns: []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
		Type:      schema.AutomationSum,
	}

	insertStmts := sumStatements(link, "INSERT")
	require.Len(t, insertStmts, 1)
	assert.Contains(t, insertStmts[0], "+ NEW.pages")

	deleteStmts := sumStatements(link, "DELETE")
	require.Len(t, deleteStmts, 1)
	assert.Contains(t, deleteStmts[0], "- OLD.pages")

	updateStmts := sumStatements(link, "UPDATE")
	joined := strings.Join(updateStmts, "\n")
	assert.Contains(t, joined, "NOT (OLD.author_id <=> NEW.author_id)")
	assert.Contains(t, joined, "NEW.pages - OLD.pages")
}

func TestCountStatementsNonNullVariant(t *testing.T) {
	link := AggregationLink{
		ParentTable: "authors", ParentColumn: "published_count",
		ChildTable: "books", SourceColumn: "published_at",
		FKColumns: []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
		Type:      schema.AutomationCount,
	}
	stmts := countStatements(link, "INSERT")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "IF(NEW.published_at IS NOT NULL, 1, 0)")
}

func TestCountStatementsPlainVariant(t *testing.T) {
	link := AggregationLink{
		ParentTable: "authors", ParentColumn: "book_count",
		ChildTable:   "books",
		FKColumns:    []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
		Type:         schema.AutomationCount,
	}
	stmts := countStatements(link, "INSERT")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "+ (1)")
}

func TestExtremumRescanOnDeleteAndUpdate(t *testing.T) {
	link := AggregationLink{
		ParentTable: "authors", ParentColumn: "longest_title_pages",
		ChildTable: "books", SourceColumn: "pages",
		FKColumns: []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
		Type:      schema.AutomationMax,
	}
	del := extremumStatements(link, "DELETE")
	require.Len(t, del, 1)
	assert.Contains(t, del[0], "SELECT MAX(pages) FROM books WHERE author_id = OLD.author_id")

	upd := extremumStatements(link, "UPDATE")
	require.Len(t, upd, 1)
	assert.Contains(t, upd[0], "SELECT MAX(pages) FROM books WHERE author_id = NEW.author_id")
}

func TestExtremumLatestRescanUsesOrderColumn(t *testing.T) {
	link := AggregationLink{
		ParentTable: "authors", ParentColumn: "latest_title",
		ChildTable: "books", SourceColumn: "title",
		ChildOrderColumn: "id",
		FKColumns:        []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
		Type:             schema.AutomationLatest,
	}
	upd := extremumStatements(link, "UPDATE")
	require.Len(t, upd, 1)
	assert.Contains(t, upd[0], "ORDER BY id DESC LIMIT 1")
}

func TestExtremumInsertTakesCheapComparisonPath(t *testing.T) {
	link := AggregationLink{
		ParentTable: "authors", ParentColumn: "longest_title_pages",
		ChildTable: "books", SourceColumn: "pages",
		FKColumns: []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
		Type:      schema.AutomationMax,
	}
	ins := extremumStatements(link, "INSERT")
	require.Len(t, ins, 1)
	assert.Contains(t, ins[0], "NEW.pages > longest_title_pages")
}

func TestPullStatementsSnapshotOnlyRePullsWhenFKChanged(t *testing.T) {
	a := &TableAutomations{
		Pulls: []CascadeLink{{
			ChildColumn: "author_name", ParentColumn: "name", ParentTable: "authors",
			FKColumns: []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
			Live:      false,
		}},
	}
	insert := pullStatements(a, false)
	require.Len(t, insert, 1)
	assert.NotContains(t, insert[0], "IF")

	update := pullStatements(a, true)
	joined := strings.Join(update, "\n")
	assert.Contains(t, joined, "IF NOT (OLD.author_id <=> NEW.author_id) THEN")
}

func TestPullStatementsFollowAlwaysRePulls(t *testing.T) {
	a := &TableAutomations{
		Pulls: []CascadeLink{{
			ChildColumn: "author_name", ParentColumn: "name", ParentTable: "authors",
			FKColumns: []FKColumnPair{{LocalColumn: "author_id", ParentColumn: "id"}},
			Live:      true,
		}},
	}
	update := pullStatements(a, true)
	require.Len(t, update, 1)
	assert.NotContains(t, update[0], "IF")
}

func TestSyncStatementsSkipPullOnly(t *testing.T) {
	a := &TableAutomations{
		Sync: map[string]*schema.SyncDef{
			"mirror": {
				Target:       "mirror_table",
				Direction:    schema.SyncPull,
				Operations:   []schema.SyncOperation{schema.SyncInsert},
				ColumnMap:    map[string]string{"id": "source_id"},
				ColumnMapOrder: []string{"id"},
			},
		},
	}
	assert.Empty(t, syncStatements(a, "insert"))
}

func TestSyncStatementsPushEmitsInsert(t *testing.T) {
	a := &TableAutomations{
		Sync: map[string]*schema.SyncDef{
			"mirror": {
				Target:         "mirror_table",
				Direction:      schema.SyncPush,
				Operations:     []schema.SyncOperation{schema.SyncInsert},
				ColumnMap:      map[string]string{"id": "source_id"},
				ColumnMapOrder: []string{"id"},
			},
		},
	}
	stmts := syncStatements(a, "insert")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "INSERT INTO mirror_table (source_id) VALUES (NEW.id);")
}

func TestSpreadInsertStatementUsesRecursiveCTE(t *testing.T) {
	a := &TableAutomations{
		Spread: map[string]*schema.SpreadDef{
			"booking_days": {
				Target:         "booking_days",
				TrackingColumn: "booking_id",
				Generate:       schema.GenerateRange{StartDate: "start_date", EndDate: "end_date", Interval: "day"},
				ColumnMap:      map[string]string{"id": "booking_id"},
				ColumnMapOrder: []string{"id"},
			},
		},
	}
	stmts := spreadStatements(a)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "DELETE FROM booking_days WHERE booking_id = NEW.id;")
	assert.Contains(t, stmts[1], "WITH RECURSIVE spread_series")
	assert.Contains(t, stmts[1], "INTERVAL 1 DAY")
}

func TestSpreadDeleteAllStatementsUseOldRow(t *testing.T) {
	a := &TableAutomations{
		Spread: map[string]*schema.SpreadDef{
			"booking_days": {
				Target: "booking_days", TrackingColumn: "booking_id",
				ColumnMap: map[string]string{"id": "booking_id"}, ColumnMapOrder: []string{"id"},
			},
		},
	}
	stmts := spreadDeleteAllStatements(a)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "WHERE booking_id = OLD.id;")
}
