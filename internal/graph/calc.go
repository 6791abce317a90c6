package graph

import (
	"fmt"
	"regexp"
	"strings"

	"dnorm/internal/process"
)

// identifierRe extracts bare identifiers from a calculated-column SQL
// expression. It deliberately doesn't try to parse SQL — it just finds
// everything that looks like a name, and calcIdentifiers filters out
// keywords and function names from the result.
var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// sqlKeywords and sqlFunctions are excluded from identifier extraction so
// that e.g. `ROUND(price * qty, 2)` resolves to the dependency {price,
// qty}, not {ROUND, price, qty}. Not exhaustive — this is the same
// pragmatic deny-list approach the teacher's raw_types.go takes for base
// type keywords, not a SQL parser.
var sqlKeywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NULL": true, "IS": true,
	"IN": true, "LIKE": true, "BETWEEN": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "TRUE": true, "FALSE": true,
	"DISTINCT": true, "AS": true, "NEW": true, "OLD": true,
}

var sqlFunctions = map[string]bool{
	"COALESCE": true, "IFNULL": true, "NULLIF": true, "CONCAT": true,
	"SUM": true, "COUNT": true, "MAX": true, "MIN": true, "AVG": true,
	"ROUND": true, "ABS": true, "CAST": true, "CONVERT": true,
	"NOW": true, "CURDATE": true, "CURTIME": true, "DATE": true,
	"DATEDIFF": true, "DATE_ADD": true, "DATE_SUB": true, "TIMESTAMPDIFF": true,
	"UPPER": true, "LOWER": true, "TRIM": true, "SUBSTRING": true,
	"LENGTH": true, "GREATEST": true, "LEAST": true, "IF": true,
}

// calcIdentifiers extracts the set of plausible column names referenced
// by a calculated-column expression.
func calcIdentifiers(expr string) []string {
	matches := identifierRe.FindAllString(expr, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		up := strings.ToUpper(m)
		if sqlKeywords[up] || sqlFunctions[up] {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// BuildCalcGraph builds one table's calculated-column dependency graph: an
// edge from a calculated column to every other calculated column on the
// same table that its expression references. Plain (non-calculated)
// columns referenced by an expression aren't graph nodes — they carry no
// ordering constraint, since their value is already settled by the time
// triggers run the calculated-column step.
func BuildCalcGraph(table *process.ProcessedTable) *Graph {
	g := New()
	calculated := make(map[string]bool)
	for _, c := range table.Columns {
		if c.Def.Calculated != "" {
			calculated[c.Name] = true
			g.AddNode(c.Name)
		}
	}
	for _, c := range table.Columns {
		if c.Def.Calculated == "" {
			continue
		}
		for _, ref := range calcIdentifiers(c.Def.Calculated) {
			if ref == c.Name {
				continue
			}
			if calculated[ref] {
				g.AddEdge(c.Name, ref)
			}
		}
	}
	return g
}

// OrderCalcColumns returns a table's calculated columns in evaluation
// order (a column referencing another calculated column is ordered after
// it), rejecting circular calculated-column definitions as fatal per
// spec.md §4.3.
func OrderCalcColumns(table *process.ProcessedTable) ([]string, error) {
	g := BuildCalcGraph(table)
	if err := g.DetectCycle(); err != nil {
		return nil, fmt.Errorf("graph: table %q calculated columns: %w", table.Name, err)
	}
	order, err := g.TopoSort()
	if err != nil {
		return nil, fmt.Errorf("graph: table %q calculated columns: %w", table.Name, err)
	}
	return order, nil
}
