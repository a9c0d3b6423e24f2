// Package dataset holds the compiled-in manifest of loadable crash datasets:
// destination tables, staging tables, column types, derived geometry and the
// conflict policy applied on re-load. It is the allow-list every SQL
// identifier used by the populator is drawn from.
package dataset

import (
	"errors"
	"fmt"
	"regexp"

	"crashloader/internal/ddl"
)

// ErrUnknownDataset is returned by Lookup for names outside the manifest.
var ErrUnknownDataset = errors.New("dataset: unknown dataset")

// LineColumn is the staging-only ordinal column filled in file order by the
// bulk import. It never appears in a normalized header (those cannot start
// with an underscore).
const LineColumn = "_source_line"

// SRID is the spatial reference of every derived geometry column.
const SRID = 4326

var identRE = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdent reports whether s is a plain lowercase Postgres identifier of at
// most 63 bytes.
func ValidIdent(s string) bool { return identRE.MatchString(s) }

// Type is the logical destination type of a column.
type Type string

const (
	Text      Type = "text"
	Integer   Type = "integer"
	BigInt    Type = "bigint"
	Double    Type = "double"
	Timestamp Type = "timestamp"
	Boolean   Type = "boolean"
)

// SQLType maps the logical type onto the Postgres column type.
func (t Type) SQLType() string {
	switch t {
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Double:
		return "DOUBLE PRECISION"
	case Timestamp:
		return "TIMESTAMP WITHOUT TIME ZONE"
	case Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (t Type) valid() bool {
	switch t {
	case Text, Integer, BigInt, Double, Timestamp, Boolean:
		return true
	}
	return false
}

// Column is one typed destination column fed from one staging column.
type Column struct {
	Name string
	// Source is the normalized CSV header name; empty means Name.
	Source string
	Type   Type
	// Layout is a to_timestamp format for Timestamp columns ("MM/DD/YYYY").
	// Empty means the plain ::timestamp cast.
	Layout string
	// Truthy and Falsy override the boolean literals (compared lowercased).
	Truthy []string
	Falsy  []string
}

// SourceName returns the staging column the value is read from.
func (c Column) SourceName() string {
	if c.Source != "" {
		return c.Source
	}
	return c.Name
}

// Geometry describes a derived point column built from two Double columns.
type Geometry struct {
	Column    string
	Latitude  string
	Longitude string
}

// ConflictPolicy decides what happens when an incoming key already exists.
type ConflictPolicy int

const (
	// Overwrite replaces every non-key column ("last load wins").
	Overwrite ConflictPolicy = iota
	// Ignore keeps the stored row untouched ("first load wins").
	Ignore
)

func (p ConflictPolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Ignore:
		return "ignore"
	default:
		return fmt.Sprintf("ConflictPolicy(%d)", int(p))
	}
}

// Dataset is one CSV file shape and the table it lands in.
type Dataset struct {
	Name         string
	Table        string
	StagingTable string
	Key          string
	Columns      []Column
	Geometry     *Geometry
	Conflict     ConflictPolicy
	// Indexes lists columns that get a single-column secondary index.
	Indexes []string
}

// Column returns the destination column called name.
func (d Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Validate checks the manifest entry for internal consistency.
func (d Dataset) Validate() error {
	for _, id := range []string{d.Name, d.Table, d.StagingTable, d.Key} {
		if !ValidIdent(id) {
			return fmt.Errorf("dataset %q: invalid identifier %q", d.Name, id)
		}
	}
	if d.Table == d.StagingTable {
		return fmt.Errorf("dataset %q: staging table must differ from destination table", d.Name)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset %q: no columns", d.Name)
	}

	names := make(map[string]struct{}, len(d.Columns)+1)
	for _, c := range d.Columns {
		if !ValidIdent(c.Name) || !ValidIdent(c.SourceName()) {
			return fmt.Errorf("dataset %q: invalid column identifier %q", d.Name, c.Name)
		}
		if !c.Type.valid() {
			return fmt.Errorf("dataset %q: column %s has unknown type %q", d.Name, c.Name, c.Type)
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("dataset %q: duplicate column %s", d.Name, c.Name)
		}
		names[c.Name] = struct{}{}
	}

	key, ok := d.Column(d.Key)
	if !ok {
		return fmt.Errorf("dataset %q: key column %s not declared", d.Name, d.Key)
	}
	if key.Type != Integer && key.Type != BigInt && key.Type != Text {
		return fmt.Errorf("dataset %q: key column %s must be integer, bigint or text", d.Name, d.Key)
	}

	if g := d.Geometry; g != nil {
		if !ValidIdent(g.Column) {
			return fmt.Errorf("dataset %q: invalid geometry column %q", d.Name, g.Column)
		}
		if _, dup := names[g.Column]; dup {
			return fmt.Errorf("dataset %q: geometry column %s collides with a declared column", d.Name, g.Column)
		}
		for _, coord := range []string{g.Latitude, g.Longitude} {
			c, ok := d.Column(coord)
			if !ok || c.Type != Double {
				return fmt.Errorf("dataset %q: geometry coordinate %s must be a declared double column", d.Name, coord)
			}
		}
	}

	for _, idx := range d.Indexes {
		if _, ok := d.Column(idx); !ok {
			return fmt.Errorf("dataset %q: index column %s not declared", d.Name, idx)
		}
	}
	return nil
}

// TableDef renders the destination table definition.
func (d Dataset) TableDef() ddl.TableDef {
	cols := make([]ddl.ColumnDef, 0, len(d.Columns)+1)
	for _, c := range d.Columns {
		cols = append(cols, ddl.ColumnDef{
			Name:       c.Name,
			SQLType:    c.Type.SQLType(),
			Nullable:   c.Name != d.Key,
			PrimaryKey: c.Name == d.Key,
		})
	}
	if d.Geometry != nil {
		cols = append(cols, ddl.ColumnDef{
			Name:     d.Geometry.Column,
			SQLType:  fmt.Sprintf("geometry(Point, %d)", SRID),
			Nullable: true,
		})
	}
	return ddl.TableDef{FQN: d.Table, Columns: cols, IfNotExists: true}
}

// IndexDefs renders the secondary index definitions.
func (d Dataset) IndexDefs() []ddl.IndexDef {
	out := make([]ddl.IndexDef, 0, len(d.Indexes))
	for _, col := range d.Indexes {
		out = append(out, ddl.IndexDef{
			Name:    d.Table + "_" + col + "_idx",
			Table:   d.Table,
			Columns: []string{col},
		})
	}
	return out
}
