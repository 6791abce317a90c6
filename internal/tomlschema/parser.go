// Package tomlschema reads a dnorm schema document written in TOML and
// converts it into the dialect-agnostic internal/schema representation the
// compiler core operates on.
//
// This package is a collaborator per spec.md §6 ("Parser"): it performs no
// cross-reference validation and no graph analysis, only syntactic
// decoding plus the minimal classification needed to resolve the four
// table-column entry shapes (spec.md §3).
package tomlschema

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"dnorm/internal/schema"
)

// tomlDocument is the top-level TOML document shape.
type tomlDocument struct {
	Columns map[string]tomlColumnDef `toml:"columns"`
	Tables  []tomlTable              `toml:"tables"`
}

type tomlColumnDef struct {
	Type       string `toml:"type"`
	Size       int    `toml:"size"`
	Decimal    int    `toml:"decimal"`
	PrimaryKey bool   `toml:"primary_key"`
	Unique     bool   `toml:"unique"`
	Sequence   bool   `toml:"sequence"`

	Automation *tomlAutomation `toml:"automation"`
	Calculated string          `toml:"calculated"`
}

type tomlAutomation struct {
	Type       string `toml:"type"`
	Table      string `toml:"table"`
	ForeignKey string `toml:"foreign_key"`
	Column     string `toml:"column"`
}

type tomlTable struct {
	Name        string                   `toml:"name"`
	Columns     []tomlColumnEntry        `toml:"columns"`
	ForeignKeys map[string]tomlForeignKey `toml:"foreign_keys"`
	UINotes     []string                 `toml:"ui-notes"`
	Sync        map[string]tomlSync      `toml:"sync"`
	Spread      map[string]tomlSpread    `toml:"spread"`
	Content     []map[string]string      `toml:"content"`
}

// tomlColumnEntry is one [[tables.columns]] element. Which of the four
// inheritance shapes it represents is decided by which of
// Inherit/Ref/Type is set; see classifyEntry.
type tomlColumnEntry struct {
	Key     string `toml:"key"`
	Inherit string `toml:"inherit"`
	Ref     string `toml:"ref"`

	tomlColumnDef
}

type tomlForeignKey struct {
	Table    string `toml:"table"`
	Prefix   string `toml:"prefix"`
	Suffix   string `toml:"suffix"`
	OnDelete string `toml:"on_delete"`
}

type tomlSync struct {
	Direction       string            `toml:"direction"`
	Operations      []string          `toml:"operations"`
	MatchColumns    map[string]string `toml:"match_columns"`
	MatchConditions []string          `toml:"match_conditions"`
	ColumnMap       map[string]string `toml:"column_map"`
	Literals        map[string]string `toml:"literals"`
}

type tomlSpread struct {
	Generate struct {
		StartDate string `toml:"start_date"`
		EndDate   string `toml:"end_date"`
		Interval  string `toml:"interval"`
	} `toml:"generate"`
	ColumnMap      map[string]string `toml:"column_map"`
	Literals       map[string]string `toml:"literals"`
	TrackingColumn string            `toml:"tracking_column"`
}

// Parser decodes dnorm TOML schema documents.
type Parser struct{}

// NewParser creates a new TOML schema document parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens path and parses it as a dnorm schema document.
func (p *Parser) ParseFile(path string) (*schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tomlschema: open %q: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads a TOML schema document from r.
func (p *Parser) Parse(r io.Reader) (*schema.Document, error) {
	var td tomlDocument
	meta, err := toml.NewDecoder(r).Decode(&td)
	if err != nil {
		return nil, fmt.Errorf("tomlschema: decode: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("tomlschema: unrecognized key %q", undecoded[0].String())
	}

	return newConverter(&td).convert()
}

type converter struct {
	td *tomlDocument
}

func newConverter(td *tomlDocument) *converter {
	return &converter{td: td}
}

func (c *converter) convert() (*schema.Document, error) {
	doc := &schema.Document{
		Columns: make(map[string]*schema.ColumnDef, len(c.td.Columns)),
		Tables:  make(map[string]*schema.TableDef, len(c.td.Tables)),
	}

	for name, tc := range c.td.Columns {
		cd, err := convertColumnDef(&tc)
		if err != nil {
			return nil, fmt.Errorf("tomlschema: column %q: %w", name, err)
		}
		doc.Columns[name] = cd
	}

	for i := range c.td.Tables {
		tt := &c.td.Tables[i]
		if tt.Name == "" {
			return nil, fmt.Errorf("tomlschema: table at index %d has no name", i)
		}
		if _, dup := doc.Tables[tt.Name]; dup {
			return nil, fmt.Errorf("tomlschema: duplicate table %q", tt.Name)
		}
		td, err := c.convertTable(tt)
		if err != nil {
			return nil, fmt.Errorf("tomlschema: table %q: %w", tt.Name, err)
		}
		doc.Tables[tt.Name] = td
		doc.TableOrder = append(doc.TableOrder, tt.Name)
	}

	return doc, nil
}

func convertColumnDef(tc *tomlColumnDef) (*schema.ColumnDef, error) {
	cd := &schema.ColumnDef{
		Type:       schema.DataType(tc.Type),
		Size:       tc.Size,
		Decimal:    tc.Decimal,
		PrimaryKey: tc.PrimaryKey,
		Unique:     tc.Unique,
		Sequence:   tc.Sequence,
		Calculated: tc.Calculated,
	}
	if tc.Automation != nil {
		at, ok := schema.ParseAutomationType(tc.Automation.Type)
		if !ok {
			return nil, fmt.Errorf("unknown automation type %q", tc.Automation.Type)
		}
		cd.Automation = &schema.AutomationDef{
			Type:       at,
			Table:      tc.Automation.Table,
			ForeignKey: tc.Automation.ForeignKey,
			Column:     tc.Automation.Column,
		}
	}
	return cd, nil
}

func (c *converter) convertTable(tt *tomlTable) (*schema.TableDef, error) {
	td := &schema.TableDef{
		Name:        tt.Name,
		Columns:     make(map[string]*schema.ColumnEntry, len(tt.Columns)),
		ForeignKeys: make(map[string]*schema.ForeignKeyDef, len(tt.ForeignKeys)),
		Sync:        make(map[string]*schema.SyncDef, len(tt.Sync)),
		Spread:      make(map[string]*schema.SpreadDef, len(tt.Spread)),
	}

	for _, note := range tt.UINotes {
		td.UINotes = append(td.UINotes, schema.UINote(note))
	}

	for i := range tt.Columns {
		entry := &tt.Columns[i]
		if entry.Key == "" {
			return nil, fmt.Errorf("column at index %d has no key", i)
		}
		if _, dup := td.Columns[entry.Key]; dup {
			return nil, fmt.Errorf("duplicate column %q", entry.Key)
		}
		ce, err := classifyEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", entry.Key, err)
		}
		td.Columns[entry.Key] = ce
		td.ColumnOrder = append(td.ColumnOrder, entry.Key)
	}

	fkNames := sortedKeys(tt.ForeignKeys)
	for _, name := range fkNames {
		fk := tt.ForeignKeys[name]
		td.ForeignKeys[name] = &schema.ForeignKeyDef{
			Table:    fk.Table,
			Prefix:   fk.Prefix,
			Suffix:   fk.Suffix,
			OnDelete: schema.ReferentialAction(fk.OnDelete),
		}
		td.FKOrder = append(td.FKOrder, name)
	}

	for name, s := range tt.Sync {
		sd, err := convertSync(name, &s)
		if err != nil {
			return nil, fmt.Errorf("sync %q: %w", name, err)
		}
		td.Sync[name] = sd
	}

	for name, s := range tt.Spread {
		td.Spread[name] = convertSpread(name, &s)
	}

	td.Content = tt.Content

	return td, nil
}

// classifyEntry decides which of the four inheritance shapes a
// [[tables.columns]] element represents, per spec.md §3.
func classifyEntry(e *tomlColumnEntry) (*schema.ColumnEntry, error) {
	hasRef := e.Ref != ""
	hasInherit := e.Inherit != ""
	hasType := e.Type != ""

	switch {
	case hasRef:
		overlay, err := convertColumnDef(&e.tomlColumnDef)
		if err != nil {
			return nil, err
		}
		return &schema.ColumnEntry{Kind: schema.EntryRef, InheritName: e.Ref, Overlay: overlay}, nil
	case hasInherit:
		return &schema.ColumnEntry{Kind: schema.EntryString, InheritName: e.Inherit}, nil
	case hasType:
		def, err := convertColumnDef(&e.tomlColumnDef)
		if err != nil {
			return nil, err
		}
		return &schema.ColumnEntry{Kind: schema.EntryFull, Def: def}, nil
	default:
		return &schema.ColumnEntry{Kind: schema.EntryNull}, nil
	}
}

func convertSync(target string, s *tomlSync) (*schema.SyncDef, error) {
	sd := &schema.SyncDef{
		Target:          target,
		Direction:       schema.SyncDirection(s.Direction),
		MatchColumns:    s.MatchColumns,
		MatchConditions: s.MatchConditions,
		ColumnMap:       s.ColumnMap,
		Literals:        s.Literals,
	}
	sd.MatchColumnOrder = sortedKeys(s.MatchColumns)
	sd.ColumnMapOrder = sortedKeys(s.ColumnMap)
	sd.LiteralOrder = sortedKeys(s.Literals)
	for _, op := range s.Operations {
		sd.Operations = append(sd.Operations, schema.SyncOperation(op))
	}
	return sd, nil
}

func convertSpread(target string, s *tomlSpread) *schema.SpreadDef {
	sp := &schema.SpreadDef{
		Target: target,
		Generate: schema.GenerateRange{
			StartDate: s.Generate.StartDate,
			EndDate:   s.Generate.EndDate,
			Interval:  s.Generate.Interval,
		},
		ColumnMap:      s.ColumnMap,
		Literals:       s.Literals,
		TrackingColumn: s.TrackingColumn,
	}
	sp.ColumnMapOrder = sortedKeys(s.ColumnMap)
	sp.LiteralOrder = sortedKeys(s.Literals)
	return sp
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}
