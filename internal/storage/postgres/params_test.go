package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

func TestBindNamed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sql      string
		params   []storage.Param
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "single",
			sql:      "SELECT 1 FROM pg_database WHERE datname = :database_name;",
			params:   []storage.Param{storage.String("database_name", "nycrashes")},
			wantSQL:  "SELECT 1 FROM pg_database WHERE datname = $1;",
			wantArgs: []any{"nycrashes"},
		},
		{
			name:     "reused name and casts",
			sql:      "SELECT :a::int, :b, :a",
			params:   []storage.Param{{Name: "a", Value: int64(1)}, {Name: "b", Value: "x"}},
			wantSQL:  "SELECT $1::int, $2, $1",
			wantArgs: []any{int64(1), "x"},
		},
		{
			name:     "quoted text untouched",
			sql:      `SELECT ':nope', "col:nope", 'it''s :x' || :y`,
			params:   []storage.Param{{Name: "y", Value: "v"}},
			wantSQL:  `SELECT ':nope', "col:nope", 'it''s :x' || $1`,
			wantArgs: []any{"v"},
		},
		{
			name:    "comments untouched",
			sql:     "SELECT 1 -- :a\n/* :b */",
			wantSQL: "SELECT 1 -- :a\n/* :b */",
		},
		{
			name:    "dollar quoted body untouched",
			sql:     "DO $fn$ BEGIN PERFORM :x; END $fn$; SELECT $$:y$$",
			wantSQL: "DO $fn$ BEGIN PERFORM :x; END $fn$; SELECT $$:y$$",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := bindNamed(tt.sql, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBindNamed_Missing(t *testing.T) {
	t.Parallel()

	_, _, err := bindNamed("SELECT :missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":missing")
}

func TestBindNamed_HelperFunctionAndImport(t *testing.T) {
	t.Parallel()

	got, args, err := bindNamed(pgsql.TryTimestampFunctionSQL, nil)
	require.NoError(t, err)
	assert.Equal(t, pgsql.TryTimestampFunctionSQL, got)
	assert.Empty(t, args)

	got, args, err = bindNamed(pgsql.TerminateBackendsSQL, []storage.Param{storage.String(pgsql.ParamDatabaseName, "db")})
	require.NoError(t, err)
	assert.Contains(t, got, "datname = $1")
	assert.Equal(t, []any{"db"}, args)
}
