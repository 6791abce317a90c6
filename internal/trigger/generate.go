package trigger

import (
	"fmt"
	"sort"
	"strings"
)

// TableTriggers holds the three consolidated procedures generated for one
// table, one per DML operation (spec.md §4.4: a single BEFORE trigger per
// operation per table, not one trigger per directive).
type TableTriggers struct {
	Table  string
	Insert string
	Update string
	Delete string
}

// triggerName follows the naming convention from spec.md §6: every
// generated trigger carries a `_genlogic` suffix so a re-run can find and
// drop its own previous output before regenerating (internal/executor).
func triggerName(table, op string) string {
	return fmt.Sprintf("%s_before_%s_genlogic", table, op)
}

// GenerateAll builds the consolidated trigger procedures for every table
// named in automationsByTable.
func GenerateAll(automationsByTable map[string]*TableAutomations) (map[string]*TableTriggers, error) {
	result := make(map[string]*TableTriggers, len(automationsByTable))
	names := make([]string, 0, len(automationsByTable))
	for name := range automationsByTable {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tt, err := GenerateTable(automationsByTable[name])
		if err != nil {
			return nil, err
		}
		result[name] = tt
	}
	return result, nil
}

// GenerateTable builds the three trigger procedures for one table.
func GenerateTable(a *TableAutomations) (*TableTriggers, error) {
	table := a.Table.Name
	return &TableTriggers{
		Table:  table,
		Insert: buildProcedure(table, "insert", a, buildInsertBody(a)),
		Update: buildProcedure(table, "update", a, buildUpdateBody(a)),
		Delete: buildProcedure(table, "delete", a, buildDeleteBody(a)),
	}, nil
}

func buildProcedure(table, op string, a *TableAutomations, body []string) string {
	var b strings.Builder
	name := triggerName(table, op)
	fmt.Fprintf(&b, "DROP TRIGGER IF EXISTS %s;\n", name)
	fmt.Fprintf(&b, "DELIMITER $$\n")
	fmt.Fprintf(&b, "CREATE TRIGGER %s BEFORE %s ON %s FOR EACH ROW\nBEGIN\n", name, strings.ToUpper(op), table)
	if len(body) == 0 {
		b.WriteString("  -- no derivation directives apply to this operation\n")
	}
	for _, line := range body {
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("END$$\n")
	b.WriteString("DELIMITER ;\n")
	return b.String()
}

// buildInsertBody follows the fixed step order: PULL, calculated columns,
// PUSH-to-parents, SYNC, SPREAD. PUSH-to-children fires on UPDATE only (it
// reacts to a change in an already-existing parent row); on INSERT there
// are no child rows yet to push down to.
func buildInsertBody(a *TableAutomations) []string {
	var lines []string
	lines = append(lines, pullStatements(a, false)...)
	lines = append(lines, calculatedStatements(a)...)
	lines = append(lines, pushToParentStatements(a, "INSERT")...)
	lines = append(lines, syncStatements(a, "insert")...)
	lines = append(lines, spreadStatements(a)...)
	return lines
}

// buildUpdateBody runs every step: PULL (re-pull if the owning FK
// changed), PUSH-to-children (this table is a FOLLOW parent), calculated
// columns, PUSH-to-parents (this table feeds an aggregate), SYNC, SPREAD.
func buildUpdateBody(a *TableAutomations) []string {
	var lines []string
	lines = append(lines, pullStatements(a, true)...)
	lines = append(lines, pushToChildrenStatements(a)...)
	lines = append(lines, calculatedStatements(a)...)
	lines = append(lines, pushToParentStatements(a, "UPDATE")...)
	lines = append(lines, syncStatements(a, "update")...)
	lines = append(lines, spreadStatements(a)...)
	return lines
}

// buildDeleteBody only needs PUSH-to-parents (aggregates must drop this
// row's contribution), SYNC, and the SPREAD cleanup of this row's generated
// rows; a deleted row has no calculated columns to compute and nothing to
// pull or push to children.
func buildDeleteBody(a *TableAutomations) []string {
	var lines []string
	lines = append(lines, pushToParentStatements(a, "DELETE")...)
	lines = append(lines, syncStatements(a, "delete")...)
	lines = append(lines, spreadDeleteAllStatements(a)...)
	return lines
}

// changedGuard renders a MySQL null-safe "is distinct from" check. MySQL
// has no IS DISTINCT FROM operator, so this negates the null-safe
// equality operator <=> instead.
func changedGuard(a, b string) string {
	return fmt.Sprintf("NOT (%s <=> %s)", a, b)
}
