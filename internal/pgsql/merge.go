package pgsql

import (
	"fmt"
	"strings"

	"crashloader/internal/dataset"
	"crashloader/internal/ddl"
)

// BuildMerge renders the single statement that casts the staging rows of b
// into the destination table.
//
// Rows whose typed key is NULL are dropped. When a key repeats inside one
// file the row with the highest ordinal (the last one in the file) wins, so
// the insert never touches the same key twice. The geometry column, if any,
// is a point built from (longitude, latitude) only when both are present.
// Existing keys are overwritten or left alone according to the dataset's
// conflict policy. An overwrite only touches columns the file feeds; columns
// missing from the header keep their stored values.
func BuildMerge(b dataset.Binding) (string, error) {
	ds := b.Dataset
	if err := ds.Validate(); err != nil {
		return "", err
	}
	if _, ok := b.Source(ds.Key); !ok {
		return "", fmt.Errorf("merge %s: key column %s is not bound", ds.Name, ds.Key)
	}

	key := ddl.QuoteIdent(ds.Key)

	typed := make([]string, 0, len(ds.Columns)+1)
	insertCols := make([]string, 0, len(ds.Columns)+1)
	selectCols := make([]string, 0, len(ds.Columns)+1)
	updateCols := make([]string, 0, len(ds.Columns)+1)
	for _, c := range ds.Columns {
		q := ddl.QuoteIdent(c.Name)
		expr := NullExpr(c)
		if src, ok := b.Source(c.Name); ok {
			var err error
			if expr, err = CastExpr(c, src); err != nil {
				return "", fmt.Errorf("merge %s: %w", ds.Name, err)
			}
			updateCols = append(updateCols, q)
		}
		typed = append(typed, expr+" AS "+q)
		insertCols = append(insertCols, q)
		selectCols = append(selectCols, q)
	}
	typed = append(typed, ddl.QuoteIdent(dataset.LineColumn))

	if g := ds.Geometry; g != nil {
		lat, lon := ddl.QuoteIdent(g.Latitude), ddl.QuoteIdent(g.Longitude)
		insertCols = append(insertCols, ddl.QuoteIdent(g.Column))
		selectCols = append(selectCols, fmt.Sprintf(
			"CASE WHEN %s IS NOT NULL AND %s IS NOT NULL THEN ST_SetSRID(ST_MakePoint(%s, %s), %d) ELSE NULL END",
			lat, lon, lon, lat, dataset.SRID))
		updateCols = append(updateCols, ddl.QuoteIdent(g.Column))
	}

	var sb strings.Builder
	sb.WriteString("WITH typed AS (\n  SELECT\n    ")
	sb.WriteString(strings.Join(typed, ",\n    "))
	fmt.Fprintf(&sb, "\n  FROM %s\n),\n", ddl.QuoteFQN(ds.StagingTable))
	fmt.Fprintf(&sb, "latest AS (\n  SELECT DISTINCT ON (%s) *\n  FROM typed\n  WHERE %s IS NOT NULL\n  ORDER BY %s, %s DESC\n)\n",
		key, key, key, ddl.QuoteIdent(dataset.LineColumn))
	fmt.Fprintf(&sb, "INSERT INTO %s (%s)\n", ddl.QuoteFQN(ds.Table), strings.Join(insertCols, ", "))
	sb.WriteString("SELECT\n  ")
	sb.WriteString(strings.Join(selectCols, ",\n  "))
	sb.WriteString("\nFROM latest\n")
	sb.WriteString(conflictClause(ds, updateCols))
	sb.WriteString(";")
	return sb.String(), nil
}

func conflictClause(ds dataset.Dataset, cols []string) string {
	key := ddl.QuoteIdent(ds.Key)
	if ds.Conflict == dataset.Ignore {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", key)
	}
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == key {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	if len(sets) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", key)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET\n  %s", key, strings.Join(sets, ",\n  "))
}
