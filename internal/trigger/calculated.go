package trigger

import (
	"fmt"
	"regexp"
	"strings"

	"dnorm/internal/process"
)

// bareIdentifierRe matches either a bare identifier (price) or an
// already-qualified one (NEW.price, OLD.price) so qualifyExpression can
// tell the two apart with a single pass.
var bareIdentifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?`)

// calculatedStatements emits the calculated-columns step, in dependency
// order (CalcOrder), qualifying bare column references in each
// expression with NEW. so the expression reads the row's already-settled
// values (including any earlier calculated column in the same step).
func calculatedStatements(a *TableAutomations) []string {
	var lines []string
	for _, col := range a.CalcOrder {
		c, ok := a.Table.Column(col)
		if !ok {
			continue
		}
		expr := qualifyExpression(c.Def.Calculated, a.Table)
		lines = append(lines, fmt.Sprintf("  SET NEW.%s = %s;", col, expr))
	}
	return lines
}

// qualifyExpression rewrites bare references to this table's own columns
// with a NEW. qualifier. A match that already contains a dot (NEW.x,
// OLD.x, or any other table-qualified reference) is left untouched, as
// is anything that isn't one of the table's own column names.
func qualifyExpression(expr string, table *process.ProcessedTable) string {
	return bareIdentifierRe.ReplaceAllStringFunc(expr, func(match string) string {
		if strings.Contains(match, ".") {
			return match
		}
		if _, ok := table.Column(match); !ok {
			return match
		}
		return "NEW." + match
	})
}
