package diff

import (
	"sort"

	"dnorm/internal/process"
)

func compareTable(oldT, newT *process.ProcessedTable) *TableDiff {
	td := &TableDiff{Name: newT.Name}

	compareColumns(oldT, newT, td)
	compareForeignKeys(oldT, newT, td)

	if td.isEmpty() {
		return nil
	}

	sort.Strings(td.AddedColumns)
	sort.Strings(td.AddedForeignKeys)
	return td
}

func compareColumns(oldT, newT *process.ProcessedTable, td *TableDiff) {
	for _, c := range newT.Columns {
		if _, exists := oldT.ColumnIndex[c.Name]; !exists {
			td.AddedColumns = append(td.AddedColumns, c.Name)
		}
	}
}

func compareForeignKeys(oldT, newT *process.ProcessedTable, td *TableDiff) {
	for _, name := range newT.FKOrder {
		if _, exists := oldT.ForeignKeys[name]; !exists {
			td.AddedForeignKeys = append(td.AddedForeignKeys, name)
		}
	}
}
