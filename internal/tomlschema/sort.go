package tomlschema

import "sort"

// sortStrings sorts ss in place. TOML's inline and dotted maps do not
// preserve key declaration order on decode, so anything keyed by a TOML
// map (foreign_keys, sync, spread, match_columns, column_map, literals)
// is ordered deterministically by name instead.
func sortStrings(ss []string) {
	sort.Strings(ss)
}
