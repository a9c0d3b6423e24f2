package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, geometry(Point, 4326))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., now())
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name and an ordered list of columns. The name may
// be schema-qualified in dotted form ("schema.table"); each segment is quoted
// separately by the renderers.
type TableDef struct {
	FQN     string
	Columns []ColumnDef

	// IfNotExists renders CREATE TABLE IF NOT EXISTS. Destination tables use
	// it; staging tables are always dropped first and created plain.
	IfNotExists bool
}

// IndexDef is a plain (non-unique) btree index over one or more columns.
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
}
