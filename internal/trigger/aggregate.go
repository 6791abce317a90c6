package trigger

import (
	"fmt"

	"dnorm/internal/schema"
)

// pushToParentStatements emits the PUSH-to-parents step: this table's
// rows feed one or more SUM/COUNT/MAX/MIN/LATEST columns on a parent
// table (spec.md §4.4).
//
// SUM and COUNT are maintained incrementally: each statement applies only
// the delta this row's operation introduces. MAX/MIN/LATEST cannot be
// maintained incrementally on DELETE or on an UPDATE that might lower the
// current extremum — losing the row that held the extremum requires
// rescanning the remaining siblings — so DELETE and every UPDATE fall back
// to an O(n) rescan of the child table, while INSERT takes the cheap
// comparison path.
func pushToParentStatements(a *TableAutomations, op string) []string {
	var lines []string
	for _, link := range a.PushToParents {
		switch link.Type {
		case schema.AutomationSum:
			lines = append(lines, sumStatements(link, op)...)
		case schema.AutomationCount:
			lines = append(lines, countStatements(link, op)...)
		case schema.AutomationMax, schema.AutomationMin, schema.AutomationLatest:
			lines = append(lines, extremumStatements(link, op)...)
		}
	}
	return lines
}

func oldWhere(link AggregationLink) string {
	return joinPredicate(link.FKColumns, "OLD")
}

func newWhere(link AggregationLink) string {
	return joinPredicate(link.FKColumns, "NEW")
}

func sumStatements(link AggregationLink, op string) []string {
	col, parent, src := link.ParentColumn, link.ParentTable, link.SourceColumn
	switch op {
	case "INSERT":
		return []string{fmt.Sprintf(
			"  UPDATE %s SET %s = COALESCE(%s, 0) + NEW.%s WHERE %s;",
			parent, col, col, src, newWhere(link),
		)}
	case "DELETE":
		return []string{fmt.Sprintf(
			"  UPDATE %s SET %s = COALESCE(%s, 0) - OLD.%s WHERE %s;",
			parent, col, col, src, oldWhere(link),
		)}
	case "UPDATE":
		guard := fkChangedGuard(link.FKColumns)
		return []string{
			fmt.Sprintf("  IF %s THEN", guard),
			fmt.Sprintf("    UPDATE %s SET %s = COALESCE(%s, 0) - OLD.%s WHERE %s;", parent, col, col, src, oldWhere(link)),
			fmt.Sprintf("    UPDATE %s SET %s = COALESCE(%s, 0) + NEW.%s WHERE %s;", parent, col, col, src, newWhere(link)),
			"  ELSE",
			fmt.Sprintf("    IF %s THEN", changedGuard("OLD."+src, "NEW."+src)),
			fmt.Sprintf("      UPDATE %s SET %s = COALESCE(%s, 0) + (NEW.%s - OLD.%s) WHERE %s;", parent, col, col, src, src, newWhere(link)),
			"    END IF;",
			"  END IF;",
		}
	}
	return nil
}

// countStatements handles both COUNT (every row counts) and the
// COUNT_NONNULL subtype (only rows where SourceColumn is non-null count),
// distinguished by whether SourceColumn is set.
func countStatements(link AggregationLink, op string) []string {
	col, parent := link.ParentColumn, link.ParentTable
	nonNull := link.SourceColumn != ""

	contributes := func(rowAlias string) string {
		if !nonNull {
			return "1"
		}
		return fmt.Sprintf("IF(%s.%s IS NOT NULL, 1, 0)", rowAlias, link.SourceColumn)
	}

	switch op {
	case "INSERT":
		return []string{fmt.Sprintf(
			"  UPDATE %s SET %s = COALESCE(%s, 0) + (%s) WHERE %s;",
			parent, col, col, contributes("NEW"), newWhere(link),
		)}
	case "DELETE":
		return []string{fmt.Sprintf(
			"  UPDATE %s SET %s = COALESCE(%s, 0) - (%s) WHERE %s;",
			parent, col, col, contributes("OLD"), oldWhere(link),
		)}
	case "UPDATE":
		guard := fkChangedGuard(link.FKColumns)
		lines := []string{
			fmt.Sprintf("  IF %s THEN", guard),
			fmt.Sprintf("    UPDATE %s SET %s = COALESCE(%s, 0) - (%s) WHERE %s;", parent, col, col, contributes("OLD"), oldWhere(link)),
			fmt.Sprintf("    UPDATE %s SET %s = COALESCE(%s, 0) + (%s) WHERE %s;", parent, col, col, contributes("NEW"), newWhere(link)),
		}
		if nonNull {
			lines = append(lines,
				"  ELSE",
				fmt.Sprintf("    IF %s THEN", changedGuard("OLD."+link.SourceColumn, "NEW."+link.SourceColumn)),
				fmt.Sprintf("      UPDATE %s SET %s = COALESCE(%s, 0) + (%s) - (%s) WHERE %s;", parent, col, col, contributes("NEW"), contributes("OLD"), newWhere(link)),
				"    END IF;",
			)
		}
		lines = append(lines, "  END IF;")
		return lines
	}
	return nil
}

// extremumStatements handles MAX/MIN/LATEST. INSERT takes the cheap
// comparison path; DELETE and UPDATE always rescan, since determining
// whether an update safely preserves the extremum (rather than just
// narrowing the cheap path for an edge case that's rare in practice) adds
// complexity this generator doesn't try to buy back.
func extremumStatements(link AggregationLink, op string) []string {
	col, parent := link.ParentColumn, link.ParentTable

	switch op {
	case "INSERT":
		cmp := ">"
		if link.Type == schema.AutomationMin {
			cmp = "<"
		}
		if link.Type == schema.AutomationLatest {
			return []string{fmt.Sprintf(
				"  UPDATE %s SET %s = NEW.%s WHERE %s;",
				parent, col, link.SourceColumn, newWhere(link),
			)}
		}
		return []string{fmt.Sprintf(
			"  UPDATE %s SET %s = NEW.%s WHERE %s AND (%s IS NULL OR NEW.%s %s %s);",
			parent, col, link.SourceColumn, newWhere(link), col, link.SourceColumn, cmp, col,
		)}
	case "DELETE":
		return []string{rescanStatement(link, "OLD")}
	case "UPDATE":
		return []string{rescanStatement(link, "NEW")}
	}
	return nil
}

// rescanStatement recomputes a MAX/MIN/LATEST column from scratch over
// every remaining row in the child table pointing at the same parent.
func rescanStatement(link AggregationLink, rowAlias string) string {
	where := joinPredicate(link.FKColumns, rowAlias)
	childParts := make([]string, len(link.FKColumns))
	for i, p := range link.FKColumns {
		childParts[i] = fmt.Sprintf("%s = %s.%s", p.LocalColumn, rowAlias, p.LocalColumn)
	}
	childWhere := joinAnd(childParts)
	var agg string
	switch link.Type {
	case schema.AutomationMax:
		agg = fmt.Sprintf("SELECT MAX(%s) FROM %s WHERE %s", link.SourceColumn, link.ChildTable, childWhere)
	case schema.AutomationMin:
		agg = fmt.Sprintf("SELECT MIN(%s) FROM %s WHERE %s", link.SourceColumn, link.ChildTable, childWhere)
	case schema.AutomationLatest:
		order := link.ChildOrderColumn
		agg = fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s ORDER BY %s DESC LIMIT 1",
			link.SourceColumn, link.ChildTable, childWhere, order,
		)
	}
	return fmt.Sprintf("  UPDATE %s SET %s = (%s) WHERE %s;", link.ParentTable, link.ParentColumn, agg, where)
}
