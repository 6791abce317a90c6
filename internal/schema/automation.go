package schema

import "strings"

// AutomationType is the derivation kind requested by an `automation`
// directive (spec.md §3).
type AutomationType string

const (
	AutomationSum      AutomationType = "SUM"
	AutomationCount    AutomationType = "COUNT"
	AutomationMax      AutomationType = "MAX"
	AutomationMin      AutomationType = "MIN"
	AutomationLatest   AutomationType = "LATEST"
	AutomationSnapshot AutomationType = "SNAPSHOT"
	AutomationFollow   AutomationType = "FOLLOW"
)

// ParseAutomationType normalizes the raw `type` string, resolving the
// FETCH/FETCH_UPDATES aliases to SNAPSHOT/FOLLOW (spec.md §3).
func ParseAutomationType(raw string) (AutomationType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(AutomationSum):
		return AutomationSum, true
	case string(AutomationCount):
		return AutomationCount, true
	case string(AutomationMax):
		return AutomationMax, true
	case string(AutomationMin):
		return AutomationMin, true
	case string(AutomationLatest):
		return AutomationLatest, true
	case string(AutomationSnapshot), "FETCH":
		return AutomationSnapshot, true
	case string(AutomationFollow), "FETCH_UPDATES":
		return AutomationFollow, true
	default:
		return "", false
	}
}

// IsAggregation reports whether t is one of SUM/COUNT/MAX/MIN/LATEST,
// declared on a parent column summarizing a child table.
func (t AutomationType) IsAggregation() bool {
	switch t {
	case AutomationSum, AutomationCount, AutomationMax, AutomationMin, AutomationLatest:
		return true
	default:
		return false
	}
}

// IsCascade reports whether t is SNAPSHOT or FOLLOW, declared on a child
// column sourcing a parent row.
func (t AutomationType) IsCascade() bool {
	return t == AutomationSnapshot || t == AutomationFollow
}

// AutomationDef is the `automation` directive on a column (spec.md §3).
//
// For an aggregation, it is declared on the parent column: Table is the
// child table, ForeignKey names an FK in the child pointing back to this
// parent, and Column is the child column being aggregated.
//
// For a cascade, it is declared on the child column: Table is the parent
// table, ForeignKey names an FK in the owning (child) table pointing to
// that parent, and Column is the parent column being copied.
type AutomationDef struct {
	Type       AutomationType
	Table      string
	ForeignKey string
	Column     string
}
