package diff

import (
	"fmt"

	"dnorm/internal/emit"
	"dnorm/internal/process"
	"dnorm/internal/schema"
)

// SQLStatements renders a SchemaDiff as additive DDL: CREATE TABLE for
// every added table, ALTER TABLE ... ADD COLUMN for every added column, and
// ALTER TABLE ... ADD CONSTRAINT for every added foreign key on an existing
// table. Nothing it emits can drop or rename existing state.
func SQLStatements(d *SchemaDiff, newSchema *process.ProcessedSchema) []string {
	var stmts []string

	for _, name := range d.AddedTables {
		table, ok := newSchema.Table(name)
		if !ok {
			continue
		}
		stmts = append(stmts, emit.EmitCreateTable(table))
	}

	for _, td := range d.ModifiedTables {
		table, ok := newSchema.Table(td.Name)
		if !ok {
			continue
		}
		for _, colName := range td.AddedColumns {
			c, ok := table.Column(colName)
			if !ok {
				continue
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", td.Name, c.Name, emit.SQLType(c.Def)))
		}
		for _, fkName := range td.AddedForeignKeys {
			stmt, ok := foreignKeyAlterStatement(table, fkName)
			if !ok {
				continue
			}
			stmts = append(stmts, stmt)
		}
	}

	return stmts
}

// foreignKeyAlterStatement renders an ALTER TABLE ... ADD CONSTRAINT for one
// newly added foreign key (spec.md §4.7), matching the constraint naming and
// column ordering internal/emit's CREATE TABLE path uses.
func foreignKeyAlterStatement(table *process.ProcessedTable, fkName string) (string, bool) {
	fk, ok := table.ForeignKeys[fkName]
	if !ok {
		return "", false
	}

	var localCols, targetCols []string
	for _, c := range table.Columns {
		if c.FromFK == fkName {
			localCols = append(localCols, c.Name)
			targetCols = append(targetCols, c.SourcePK)
		}
	}
	if len(localCols) == 0 {
		return "", false
	}

	stmt := fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s (%s)",
		table.Name, table.Name, fkName, joinCols(localCols), fk.Table, joinCols(targetCols),
	)
	if fk.OnDelete != schema.RefActionNone {
		stmt += fmt.Sprintf(" ON DELETE %s", fk.OnDelete)
	}
	return stmt + ";", true
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
