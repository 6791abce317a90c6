package trigger

import (
	"fmt"
	"strings"

	"dnorm/internal/schema"
)

// syncStatements emits the SYNC step (spec.md §4.5): mirroring this
// table's row into a target table. Only push and bidirectional
// directions are emitted from the owning side — a pull-only sync is the
// target table's responsibility to declare against its own rows, since
// nothing on this side changed to justify firing this trigger.
func syncStatements(a *TableAutomations, op string) []string {
	var lines []string
	for _, name := range sortedSyncNames(a.Sync) {
		sd := a.Sync[name]
		if sd.Direction != schema.SyncPush && sd.Direction != schema.SyncBidirectional {
			continue
		}
		if !sd.HasOperation(schema.SyncOperation(op)) {
			continue
		}
		switch op {
		case "insert":
			lines = append(lines, syncInsertStatement(sd))
		case "update":
			lines = append(lines, syncUpdateStatement(sd))
		case "delete":
			lines = append(lines, syncDeleteStatement(sd))
		}
	}
	return lines
}

func sortedSyncNames(m map[string]*schema.SyncDef) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sortStringsLocal(names)
	return names
}

func syncInsertStatement(sd *schema.SyncDef) string {
	var cols, vals []string
	for _, src := range sd.ColumnMapOrder {
		dst := sd.ColumnMap[src]
		cols = append(cols, dst)
		vals = append(vals, "NEW."+src)
	}
	for _, dst := range sd.LiteralOrder {
		cols = append(cols, dst)
		vals = append(vals, sd.Literals[dst])
	}
	return fmt.Sprintf(
		"  INSERT INTO %s (%s) VALUES (%s);",
		sd.Target, strings.Join(cols, ", "), strings.Join(vals, ", "),
	)
}

func syncUpdateStatement(sd *schema.SyncDef) string {
	var sets []string
	for _, src := range sd.ColumnMapOrder {
		dst := sd.ColumnMap[src]
		sets = append(sets, fmt.Sprintf("%s = NEW.%s", dst, src))
	}
	for _, dst := range sd.LiteralOrder {
		sets = append(sets, fmt.Sprintf("%s = %s", dst, sd.Literals[dst]))
	}
	return fmt.Sprintf(
		"  UPDATE %s SET %s WHERE %s;",
		sd.Target, strings.Join(sets, ", "), syncMatchPredicate(sd, "NEW"),
	)
}

func syncDeleteStatement(sd *schema.SyncDef) string {
	return fmt.Sprintf("  DELETE FROM %s WHERE %s;", sd.Target, syncMatchPredicate(sd, "OLD"))
}

func syncMatchPredicate(sd *schema.SyncDef, rowAlias string) string {
	var parts []string
	for _, src := range sd.MatchColumnOrder {
		dst := sd.MatchColumns[src]
		parts = append(parts, fmt.Sprintf("%s = %s.%s", dst, rowAlias, src))
	}
	parts = append(parts, sd.MatchConditions...)
	if len(parts) == 0 {
		return "1=1"
	}
	return strings.Join(parts, " AND ")
}

func sortStringsLocal(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}
