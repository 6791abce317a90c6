// Package schema contains the parsed, in-memory representation of a dnorm
// schema document: reusable column types, tables, and their derivation
// directives (automations, calculated columns, sync, spread, seed content).
//
// Nothing in this package touches a file or a database connection — it is
// the shape a collaborator (internal/tomlschema) hands to the compiler
// core (internal/validate, internal/process, internal/graph,
// internal/trigger).
package schema

import "fmt"

// Document is the top-level parsed schema: reusable column definitions and
// table definitions.
type Document struct {
	Columns     map[string]*ColumnDef
	Tables      map[string]*TableDef
	TableOrder  []string
}

// DataType is the portable, dialect-agnostic column type category.
type DataType string

const (
	DataTypeInteger   DataType = "integer"
	DataTypeVarchar   DataType = "varchar"
	DataTypeNumeric   DataType = "numeric"
	DataTypeText      DataType = "text"
	DataTypeDate      DataType = "date"
	DataTypeTimestamp DataType = "timestamp"
	DataTypeBoolean   DataType = "boolean"
	DataTypeChar      DataType = "char"
	DataTypeBit       DataType = "bit"
	DataTypeDecimal   DataType = "decimal"
	DataTypeJSON      DataType = "json"
)

// sizeRequirement classifies how the `size` field is treated for a DataType.
type sizeRequirement int

const (
	sizeProhibited sizeRequirement = iota
	sizeOptional
	sizeRequired
)

func (t DataType) sizeRequirement() sizeRequirement {
	switch t {
	case DataTypeVarchar, DataTypeChar, DataTypeBit:
		return sizeRequired
	case DataTypeNumeric, DataTypeDecimal:
		return sizeOptional
	default:
		return sizeProhibited
	}
}

// ValidDataType reports whether s names one of the recognized dialect types.
func ValidDataType(s string) bool {
	switch DataType(s) {
	case DataTypeInteger, DataTypeVarchar, DataTypeNumeric, DataTypeText,
		DataTypeDate, DataTypeTimestamp, DataTypeBoolean, DataTypeChar,
		DataTypeBit, DataTypeDecimal, DataTypeJSON:
		return true
	default:
		return false
	}
}

// ColumnDef is a reusable column type declared under the document's top
// level `columns` map, or the fields carried by a table-column entry.
type ColumnDef struct {
	Type       DataType
	Size       int
	Decimal    int
	PrimaryKey bool
	Unique     bool
	Sequence   bool

	Automation *AutomationDef
	Calculated string // SQL expression; mutually exclusive with Automation.
}

// Validate checks the size/decimal rules from spec.md §3's type table.
// It does not check automation/calculated mutual exclusion; that is a
// cross-reference concern handled by internal/validate.
func (c *ColumnDef) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !ValidDataType(string(c.Type)) {
		return fmt.Errorf("unknown type %q", c.Type)
	}
	switch c.Type.sizeRequirement() {
	case sizeRequired:
		if c.Size <= 0 {
			return fmt.Errorf("type %q requires a positive size", c.Type)
		}
	case sizeProhibited:
		if c.Size != 0 {
			return fmt.Errorf("type %q does not accept a size", c.Type)
		}
		if c.Decimal != 0 {
			return fmt.Errorf("type %q does not accept a decimal", c.Type)
		}
	case sizeOptional:
		// size optional, decimal requires size.
	}
	if c.Decimal < 0 {
		return fmt.Errorf("decimal must be non-negative")
	}
	if c.Decimal > 0 && c.Size <= 0 {
		return fmt.Errorf("decimal requires size to be set")
	}
	return nil
}

// clone returns a deep-enough copy of c suitable for overlaying fields onto.
// Automation is not deep-copied because overlay always replaces it
// wholesale, never merges into it.
func (c *ColumnDef) clone() *ColumnDef {
	cp := *c
	return &cp
}

// EntryKind tags which of the four inheritance-shorthand shapes a table's
// column entry uses (spec.md §3, "table-column entry").
type EntryKind int

const (
	// EntryNull inherits the reusable column whose name equals the entry's
	// own key, with no overrides.
	EntryNull EntryKind = iota
	// EntryString inherits a differently-named reusable column, with no
	// overrides.
	EntryString
	// EntryRef inherits a named reusable column and overlays explicit
	// fields on top of it.
	EntryRef
	// EntryFull carries a full column definition with no inheritance.
	EntryFull
)

// ColumnEntry is one table's reference to a column: either inheriting a
// reusable column (Null/String/Ref) or declaring one outright (Full).
type ColumnEntry struct {
	Kind EntryKind

	// InheritName is the reusable column name for EntryString and EntryRef.
	// Unused for EntryNull (the key itself is the name) and EntryFull.
	InheritName string

	// Overlay holds the fields explicitly set on an EntryRef entry, to be
	// field-level-replaced onto the inherited definition. Nil for the other
	// kinds.
	Overlay *ColumnDef

	// Def is the column definition for EntryFull. Nil for the other kinds.
	Def *ColumnDef
}

// ForeignKeyDef declares a foreign key from the owning table to Table,
// optionally renaming the synthesized child columns with Prefix/Suffix.
type ForeignKeyDef struct {
	Table    string
	Prefix   string
	Suffix   string
	OnDelete ReferentialAction
}

// ReferentialAction is the action taken when a referenced row changes.
type ReferentialAction string

const (
	RefActionNone       ReferentialAction = ""
	RefActionCascade    ReferentialAction = "CASCADE"
	RefActionRestrict   ReferentialAction = "RESTRICT"
	RefActionSetNull    ReferentialAction = "SET NULL"
	RefActionNoAction   ReferentialAction = "NO ACTION"
)

// TableDef is one table: its column entries (in declaration order),
// foreign keys, UI hints, and derivation directives.
type TableDef struct {
	Name string

	Columns     map[string]*ColumnEntry
	ColumnOrder []string

	ForeignKeys map[string]*ForeignKeyDef
	FKOrder     []string

	UINotes []UINote

	Sync    map[string]*SyncDef
	Spread  map[string]*SpreadDef
	Content []map[string]string
}

// UINote is a presentation hint consumed by downstream tooling (not the
// core pipeline); carried through unchanged.
type UINote string

const (
	UINoteSingleton UINote = "singleton"
	UINoteNoInsert  UINote = "no-insert"
	UINoteNoUpdate  UINote = "no-update"
	UINoteNoDelete  UINote = "no-delete"
)

// SyncDirection controls which side of a SYNC relationship initiates
// propagation.
type SyncDirection string

const (
	SyncPush          SyncDirection = "push"
	SyncPull          SyncDirection = "pull"
	SyncBidirectional SyncDirection = "bidirectional"
)

// SyncOperation is one of the row operations a SYNC directive mirrors.
type SyncOperation string

const (
	SyncInsert SyncOperation = "insert"
	SyncUpdate SyncOperation = "update"
	SyncDelete SyncOperation = "delete"
)

// SyncDef mirrors row changes on the owning table into a target table
// (spec.md §4.5).
type SyncDef struct {
	Target          string // table key under Table.Sync; kept for error messages.
	Direction       SyncDirection
	Operations      []SyncOperation
	MatchColumns    map[string]string // source column -> target column, ordered via MatchColumnOrder
	MatchColumnOrder []string
	MatchConditions []string
	ColumnMap       map[string]string // source column -> target column
	ColumnMapOrder  []string
	Literals        map[string]string // target column -> literal SQL expression
	LiteralOrder    []string
}

// HasOperation reports whether op is declared for this sync.
func (s *SyncDef) HasOperation(op SyncOperation) bool {
	for _, o := range s.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// SpreadDef multiplies one row of the owning table into many rows of a
// target table over a date range (spec.md §4.6).
type SpreadDef struct {
	Target         string
	Generate       GenerateRange
	ColumnMap      map[string]string
	ColumnMapOrder []string
	Literals       map[string]string
	LiteralOrder   []string
	TrackingColumn string
}

// GenerateRange names the three source columns that drive a SPREAD loop.
type GenerateRange struct {
	StartDate string
	EndDate   string
	Interval  string
}
