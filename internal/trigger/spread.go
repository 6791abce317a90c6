package trigger

import (
	"fmt"
	"strings"

	"dnorm/internal/schema"
)

// spreadStatements emits the SPREAD step (spec.md §4.6) for INSERT and
// UPDATE: this table's row multiplies into one row per interval across a
// date range in a target table. Every run first deletes any previously
// generated rows for this owning row (a no-op on first INSERT) and then
// regenerates the full range, which keeps UPDATE idempotent without
// having to diff the old and new ranges.
//
// The date series is built with a recursive CTE rather than a trigger-body
// loop, so the whole step stays a single statement per target and doesn't
// need its own DECLARE section ahead of the fixed PULL/calculated-column
// statements earlier in the body.
func spreadStatements(a *TableAutomations) []string {
	var lines []string
	for _, name := range sortedSpreadNames(a.Spread) {
		sd := a.Spread[name]
		lines = append(lines, spreadDeleteStatement(sd, "NEW"))
		lines = append(lines, spreadInsertStatement(sd))
	}
	return lines
}

// spreadDeleteAllStatements emits the DELETE step's cleanup of previously
// generated rows, since the owning row is going away.
func spreadDeleteAllStatements(a *TableAutomations) []string {
	var lines []string
	for _, name := range sortedSpreadNames(a.Spread) {
		lines = append(lines, spreadDeleteStatement(a.Spread[name], "OLD"))
	}
	return lines
}

func sortedSpreadNames(m map[string]*schema.SpreadDef) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sortStringsLocal(names)
	return names
}

func spreadDeleteStatement(sd *schema.SpreadDef, rowAlias string) string {
	return fmt.Sprintf("  DELETE FROM %s WHERE %s = %s.%s;", sd.Target, sd.TrackingColumn, rowAlias, spreadTrackingSource(sd))
}

// spreadTrackingSource is the owning-row column written into the target's
// tracking column: the foreign key column when this table already has
// one pointing elsewhere in the chain is out of scope here (spread has no
// declared foreign_key field), so the owning row's identity is carried by
// whatever source column feeds the tracking column in column_map, falling
// back to the tracking column's own name if the owning row happens to
// share it.
func spreadTrackingSource(sd *schema.SpreadDef) string {
	for _, src := range sd.ColumnMapOrder {
		if sd.ColumnMap[src] == sd.TrackingColumn {
			return src
		}
	}
	return sd.TrackingColumn
}

func spreadInsertStatement(sd *schema.SpreadDef) string {
	unit := strings.ToUpper(sd.Generate.Interval)

	var cols, vals []string
	cols = append(cols, sd.TrackingColumn)
	vals = append(vals, "NEW."+spreadTrackingSource(sd))

	cols = append(cols, "spread_date")
	vals = append(vals, "s.d")

	for _, src := range sd.ColumnMapOrder {
		dst := sd.ColumnMap[src]
		if dst == sd.TrackingColumn {
			continue
		}
		cols = append(cols, dst)
		vals = append(vals, "NEW."+src)
	}
	for _, dst := range sd.LiteralOrder {
		cols = append(cols, dst)
		vals = append(vals, sd.Literals[dst])
	}

	return fmt.Sprintf(
		"  INSERT INTO %s (%s)\n"+
			"    WITH RECURSIVE spread_series AS (\n"+
			"      SELECT NEW.%s AS d\n"+
			"      UNION ALL\n"+
			"      SELECT d + INTERVAL 1 %s FROM spread_series WHERE d + INTERVAL 1 %s <= NEW.%s\n"+
			"    )\n"+
			"    SELECT %s FROM spread_series s;",
		sd.Target, strings.Join(cols, ", "),
		sd.Generate.StartDate,
		unit, unit, sd.Generate.EndDate,
		strings.Join(vals, ", "),
	)
}
