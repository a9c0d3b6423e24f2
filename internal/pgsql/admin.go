// Package pgsql renders the Postgres statements the populator runs: database
// and extension administration, staging table DDL, the bulk import call and
// the typed merge from staging into the destination table.
//
// Builders only ever see identifiers from the dataset manifest, normalized
// CSV headers or a validated database name; they are double-quoted on
// output. Values travel separately as named :params.
package pgsql

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"crashloader/internal/dataset"
	"crashloader/internal/ddl"
)

// Named parameters used by the admin statements.
const (
	ParamDatabaseName = "database_name"
)

// DatabaseExistsSQL returns one row when :database_name exists.
const DatabaseExistsSQL = `SELECT 1 FROM pg_database WHERE datname = :database_name;`

// TerminateBackendsSQL disconnects every other session on :database_name so
// it can be dropped.
const TerminateBackendsSQL = `SELECT pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE datname = :database_name
  AND pid <> pg_backend_pid();`

var (
	// ErrInvalidDatabaseName is returned for names that are not plain
	// lowercase identifiers.
	ErrInvalidDatabaseName = errors.New("pgsql: invalid database name")
	// ErrExtensionNotAllowed is returned for extensions outside the
	// allow-list.
	ErrExtensionNotAllowed = errors.New("pgsql: extension not allowed")
)

var allowedExtensions = map[string]struct{}{
	"postgis":     {},
	"aws_s3":      {},
	"aws_commons": {},
}

// AllowedExtensions lists the extensions CreateExtensionSQL accepts.
func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for e := range allowedExtensions {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// ValidateDatabaseName checks name against ^[a-z_][a-z0-9_]{0,62}$.
func ValidateDatabaseName(name string) error {
	if !dataset.ValidIdent(name) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}
	return nil
}

// CreateDatabaseSQL renders CREATE DATABASE for name.
func CreateDatabaseSQL(name string) (string, error) {
	if err := ValidateDatabaseName(name); err != nil {
		return "", err
	}
	return "CREATE DATABASE " + ddl.QuoteIdent(name) + ";", nil
}

// DropDatabaseSQL renders DROP DATABASE IF EXISTS for name.
func DropDatabaseSQL(name string) (string, error) {
	if err := ValidateDatabaseName(name); err != nil {
		return "", err
	}
	return "DROP DATABASE IF EXISTS " + ddl.QuoteIdent(name) + ";", nil
}

// ValidateExtensions checks every entry against the allow-list.
func ValidateExtensions(exts []string) error {
	for _, e := range exts {
		if _, ok := allowedExtensions[e]; !ok {
			return fmt.Errorf("%w: %q (allowed: %s)", ErrExtensionNotAllowed, e, strings.Join(AllowedExtensions(), ", "))
		}
	}
	return nil
}

// CreateExtensionSQL renders an idempotent CREATE EXTENSION for ext.
func CreateExtensionSQL(ext string) (string, error) {
	if err := ValidateExtensions([]string{ext}); err != nil {
		return "", err
	}
	return "CREATE EXTENSION IF NOT EXISTS " + ddl.QuoteIdent(ext) + " CASCADE;", nil
}

// TryTimestampFunc is the helper used by timestamp casts. It returns NULL
// instead of raising on unparseable input.
const TryTimestampFunc = "crashload_try_timestamp"

// TryTimestampFunctionSQL installs TryTimestampFunc. An empty layout means a
// plain ::timestamp cast, otherwise to_timestamp(value, layout).
const TryTimestampFunctionSQL = `CREATE OR REPLACE FUNCTION ` + TryTimestampFunc + `(value text, layout text)
RETURNS timestamp without time zone
LANGUAGE plpgsql STABLE AS $fn$
BEGIN
  IF value IS NULL OR btrim(value) = '' THEN
    RETURN NULL;
  END IF;
  IF layout IS NULL OR layout = '' THEN
    RETURN value::timestamp without time zone;
  END IF;
  RETURN to_timestamp(value, layout)::timestamp without time zone;
EXCEPTION WHEN others THEN
  RETURN NULL;
END;
$fn$;`
