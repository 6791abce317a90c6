package trigger

import "fmt"

// pullStatements emits the PULL step: this table reading a value from its
// parent through a foreign key (spec.md §4.4 SNAPSHOT/FOLLOW).
//
// On INSERT every cascade column is pulled unconditionally — there is no
// prior value to preserve. On UPDATE, SNAPSHOT columns are only re-pulled
// if the owning foreign key itself changed (a snapshot is fixed at the
// moment the row first points at that parent); FOLLOW columns are always
// re-pulled, since they track the parent's current value for as long as
// the row exists.
func pullStatements(a *TableAutomations, isUpdate bool) []string {
	var lines []string
	for _, link := range a.Pulls {
		assign := fmt.Sprintf(
			"  SET NEW.%s = (SELECT %s FROM %s WHERE %s LIMIT 1);",
			link.ChildColumn, link.ParentColumn, link.ParentTable, joinPredicate(link.FKColumns, "NEW"),
		)
		if !isUpdate || link.Live {
			lines = append(lines, assign)
			continue
		}
		lines = append(lines, fmt.Sprintf("  IF %s THEN", fkChangedGuard(link.FKColumns)))
		lines = append(lines, "  "+assign)
		lines = append(lines, "  END IF;")
	}
	return lines
}

// pushToChildrenStatements emits the PUSH-to-children step: this table,
// as the parent side of a FOLLOW cascade, propagating a changed column
// down into every child row that mirrors it.
func pushToChildrenStatements(a *TableAutomations) []string {
	var lines []string
	for _, link := range a.PushToChildren {
		guard := changedGuard("OLD."+link.ParentColumn, "NEW."+link.ParentColumn)
		lines = append(lines, fmt.Sprintf("  IF %s THEN", guard))
		lines = append(lines, fmt.Sprintf(
			"    UPDATE %s SET %s = NEW.%s WHERE %s;",
			link.ChildTable, link.ChildColumn, link.ParentColumn, childMatchPredicate(link.FKColumns, "NEW"),
		))
		lines = append(lines, "  END IF;")
	}
	return lines
}

// joinPredicate renders the WHERE clause matching a parent row against
// the current (NEW or OLD) child row's foreign-key columns — used when the
// trigger is firing on the child (e.g. PULL, where rowAlias is the child row
// and the parent's own PK is on the left).
func joinPredicate(pairs []FKColumnPair, rowAlias string) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s = %s.%s", p.ParentColumn, rowAlias, p.LocalColumn)
	}
	return joinAnd(parts)
}

// childMatchPredicate renders the WHERE clause matching child rows against
// the current (NEW or OLD) parent row's primary key — used when the trigger
// is firing on the parent (PUSH-to-children), where rowAlias is the parent
// row and the child's foreign-key column is on the left.
func childMatchPredicate(pairs []FKColumnPair, rowAlias string) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s = %s.%s", p.LocalColumn, rowAlias, p.ParentColumn)
	}
	return joinAnd(parts)
}

// fkChangedGuard renders a guard that is true when any of the row's
// foreign-key columns changed between OLD and NEW.
func fkChangedGuard(pairs []FKColumnPair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = changedGuard("OLD."+p.LocalColumn, "NEW."+p.LocalColumn)
	}
	return joinOr(parts)
}

func joinAnd(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " AND "
		}
		out += p
	}
	return out
}

func joinOr(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " OR "
		}
		out += p
	}
	return out
}
