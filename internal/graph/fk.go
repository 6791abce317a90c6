package graph

import (
	"fmt"

	"dnorm/internal/process"
)

// BuildFKGraph builds the table-level foreign-key graph: an edge from a
// table to every table it references. Per spec.md §4.3, a cycle here is
// fatal — dnorm cannot order CREATE TABLE statements (or decide
// trigger-safe insert order) for a schema whose foreign keys cycle.
func BuildFKGraph(ps *process.ProcessedSchema) *Graph {
	g := New()
	for _, name := range ps.TableOrder {
		g.AddNode(name)
	}
	for _, name := range ps.TableOrder {
		table, _ := ps.Table(name)
		for _, fkName := range table.FKOrder {
			fk := table.ForeignKeys[fkName]
			g.AddEdge(name, fk.Table)
		}
	}
	return g
}

// CheckFKGraph builds the FK graph and rejects it if it contains a cycle.
func CheckFKGraph(ps *process.ProcessedSchema) (*Graph, error) {
	g := BuildFKGraph(ps)
	if err := g.DetectCycle(); err != nil {
		return nil, fmt.Errorf("graph: foreign key cycle: %w", err)
	}
	return g, nil
}
