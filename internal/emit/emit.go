// Package emit implements the SQL emitter (spec.md §5): it renders a
// processed schema's tables as MySQL CREATE TABLE DDL, maps dialect-
// agnostic data types to MySQL column types, and renders seed-content INSERT
// statements. Trigger procedures are built by internal/trigger, not here.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"dnorm/internal/process"
	"dnorm/internal/schema"
)

// SQLType maps a portable DataType (and its size/decimal, where relevant)
// to a concrete MySQL column type.
func SQLType(c *schema.ColumnDef) string {
	switch c.Type {
	case schema.DataTypeInteger:
		return "INT"
	case schema.DataTypeVarchar:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	case schema.DataTypeChar:
		return fmt.Sprintf("CHAR(%d)", c.Size)
	case schema.DataTypeBit:
		return fmt.Sprintf("BIT(%d)", c.Size)
	case schema.DataTypeNumeric, schema.DataTypeDecimal:
		if c.Size > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", c.Size, c.Decimal)
		}
		return "DECIMAL"
	case schema.DataTypeText:
		return "TEXT"
	case schema.DataTypeDate:
		return "DATE"
	case schema.DataTypeTimestamp:
		return "TIMESTAMP"
	case schema.DataTypeBoolean:
		return "TINYINT(1)"
	case schema.DataTypeJSON:
		return "JSON"
	default:
		return "TEXT"
	}
}

// EmitCreateTable renders one table's CREATE TABLE statement. Aggregation
// columns (SUM/COUNT/MAX/MIN/LATEST) carry a type-appropriate DEFAULT (0 for
// numerics, '' for strings, FALSE for booleans) so they read as a real value
// before the first contributing child row exists, rather than NULL — child
// source columns may still be NULL and the generated trigger bodies coalesce
// them. Types with no safe sentinel (date/timestamp/JSON/bit, e.g. a LATEST
// timestamp) stay nullable with no DEFAULT. A comment records that the
// column's value is maintained entirely by generated triggers, not by
// application writes.
func EmitCreateTable(table *process.ProcessedTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table.Name)

	var lines []string
	for _, c := range table.Columns {
		lines = append(lines, "  "+columnDefinitionSQL(c))
	}
	if pk := primaryKeyClause(table); pk != "" {
		lines = append(lines, "  "+pk)
	}
	lines = append(lines, foreignKeyClauses(table)...)

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n) ENGINE=InnoDB;\n")
	return b.String()
}

func columnDefinitionSQL(c *process.ResolvedColumn) string {
	def := c.Def
	var parts []string
	parts = append(parts, c.Name, SQLType(def))

	if def.Automation != nil && def.Automation.Type.IsAggregation() {
		return aggregationColumnSQL(parts, def)
	}

	if !def.PrimaryKey {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if def.Sequence {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if def.Unique && !def.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

// aggregationColumnSQL renders the NULL/NOT NULL/DEFAULT clause for an
// aggregation column. Most data types have a safe zero-value sentinel, so
// they're declared NOT NULL DEFAULT <sentinel>; the remaining types (no safe
// sentinel — e.g. a LATEST timestamp) stay NULL with no DEFAULT, noted in the
// comment so a reader knows it's deliberate, not an oversight.
func aggregationColumnSQL(parts []string, def *schema.ColumnDef) string {
	if d, ok := aggregationDefault(def.Type); ok {
		parts = append(parts, "NOT NULL", "DEFAULT", d)
		return strings.Join(parts, " ") + " COMMENT 'maintained by generated triggers'"
	}
	parts = append(parts, "NULL")
	return strings.Join(parts, " ") + " COMMENT 'maintained by generated triggers; no default: column type has no safe sentinel value'"
}

// aggregationDefault returns the type-appropriate DEFAULT literal for an
// aggregation column (spec.md §4.4/§4.8), or false for types with no safe
// sentinel value.
func aggregationDefault(t schema.DataType) (string, bool) {
	switch t {
	case schema.DataTypeInteger, schema.DataTypeNumeric, schema.DataTypeDecimal:
		return "0", true
	case schema.DataTypeVarchar, schema.DataTypeChar, schema.DataTypeText:
		return "''", true
	case schema.DataTypeBoolean:
		return "FALSE", true
	default:
		return "", false
	}
}

func primaryKeyClause(table *process.ProcessedTable) string {
	pks := table.PrimaryKeyColumns()
	if len(pks) == 0 {
		return ""
	}
	names := make([]string, len(pks))
	for i, c := range pks {
		names[i] = c.Name
	}
	return fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(names, ", "))
}

func foreignKeyClauses(table *process.ProcessedTable) []string {
	var out []string
	names := make([]string, 0, len(table.ForeignKeys))
	for n := range table.ForeignKeys {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, fkName := range names {
		fk := table.ForeignKeys[fkName]
		var localCols, targetCols []string
		for _, c := range table.Columns {
			if c.FromFK == fkName {
				localCols = append(localCols, c.Name)
				targetCols = append(targetCols, c.SourcePK)
			}
		}
		clause := fmt.Sprintf(
			"  CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s (%s)",
			table.Name, fkName, strings.Join(localCols, ", "), fk.Table, strings.Join(targetCols, ", "),
		)
		if fk.OnDelete != schema.RefActionNone {
			clause += fmt.Sprintf(" ON DELETE %s", fk.OnDelete)
		}
		out = append(out, clause)
	}
	return out
}

// EmitSchema renders CREATE TABLE statements for every table, in
// dependency order (a table is emitted after every table it references),
// so the DDL can run top to bottom against an empty database.
func EmitSchema(ps *process.ProcessedSchema, order []string) string {
	var b strings.Builder
	for _, name := range order {
		table, ok := ps.Table(name)
		if !ok {
			continue
		}
		b.WriteString(EmitCreateTable(table))
		b.WriteString("\n")
	}
	return b.String()
}

// EmitSeedContent renders INSERT statements for a table's declared seed
// rows (spec.md §3, `content`), in declaration order.
func EmitSeedContent(table *process.ProcessedTable) string {
	if len(table.Content) == 0 {
		return ""
	}
	var b strings.Builder
	for _, row := range table.Content {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		vals := make([]string, len(cols))
		for i, col := range cols {
			vals[i] = quoteSQLLiteral(row[col])
		}
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s);\n",
			table.Name, strings.Join(cols, ", "), strings.Join(vals, ", "))
	}
	return b.String()
}

func quoteSQLLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
