package pgsql

import (
	"fmt"
	"strings"

	"crashloader/internal/dataset"
	"crashloader/internal/ddl"
)

// DropTableSQL renders DROP TABLE IF EXISTS for table.
func DropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + ddl.QuoteFQN(table) + ";"
}

// StagingTableDef is the all-text staging table for header, in file order,
// followed by the import ordinal column.
func StagingTableDef(table string, header []string) (ddl.TableDef, error) {
	if len(header) == 0 {
		return ddl.TableDef{}, fmt.Errorf("staging %s: empty header", table)
	}
	cols := make([]ddl.ColumnDef, 0, len(header)+1)
	for _, h := range header {
		if !dataset.ValidIdent(h) || h == dataset.LineColumn {
			return ddl.TableDef{}, fmt.Errorf("staging %s: invalid column %q", table, h)
		}
		cols = append(cols, ddl.ColumnDef{Name: h, SQLType: "TEXT", Nullable: true})
	}
	cols = append(cols, ddl.ColumnDef{Name: dataset.LineColumn, SQLType: "BIGSERIAL"})
	return ddl.TableDef{FQN: table, Columns: cols}, nil
}

// CreateStagingSQL renders CREATE TABLE for the staging table of b.
func CreateStagingSQL(b dataset.Binding) (string, error) {
	def, err := StagingTableDef(b.Dataset.StagingTable, b.Header)
	if err != nil {
		return "", err
	}
	return ddl.BuildCreateTableSQL(def)
}

// CreateTableSQL renders the destination table and its secondary indexes.
func CreateTableSQL(ds dataset.Dataset) ([]string, error) {
	create, err := ddl.BuildCreateTableSQL(ds.TableDef())
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", ds.Table, err)
	}
	out := []string{create}
	for _, idx := range ds.IndexDefs() {
		s, err := ddl.BuildCreateIndexSQL(idx)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", ds.Table, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ColumnList renders header as a quoted, comma separated column list.
func ColumnList(header []string) string {
	return strings.Join(ddl.QuoteIdents(header), ",")
}
