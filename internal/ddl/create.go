// Package ddl defines a small model for SQL DDL and renders Postgres CREATE
// TABLE / CREATE INDEX statements from it.
//
// Identifiers are always double-quoted by the renderers, so names taken from
// the dataset manifest or from normalized CSV headers never reach the SQL
// text unescaped. SQLType and Default are emitted verbatim and must come from
// trusted (compiled-in) definitions.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     "<Name>" <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//     where NOT NULL is added when Nullable == false or the column is part of
//     the primary key.
//
//   - Columns with PrimaryKey == true are collected, in declaration order, and
//     rendered as a separate PRIMARY KEY (...) clause at the end.
//
//   - IF NOT EXISTS is added when t.IfNotExists is set.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 1)
	seen := make(map[string]struct{}, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		if _, dup := seen[name]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", name, fqn)
		}
		seen[name] = struct{}{}

		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}

		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, QuoteIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE "
	if t.IfNotExists {
		create += "IF NOT EXISTS "
	}

	return fmt.Sprintf(
		"%s%s (\n  %s\n);",
		create,
		QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildCreateIndexSQL renders CREATE INDEX IF NOT EXISTS for idx.
func BuildCreateIndexSQL(idx IndexDef) (string, error) {
	name := strings.TrimSpace(idx.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: index name must not be empty")
	}
	if strings.TrimSpace(idx.Table) == "" {
		return "", fmt.Errorf("ddl: index %s has no table", name)
	}
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("ddl: index %s has no columns", name)
	}
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
		QuoteIdent(name),
		QuoteFQN(idx.Table),
		strings.Join(QuoteIdents(idx.Columns), ", "),
	), nil
}
