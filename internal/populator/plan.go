package populator

import (
	"fmt"
	"io"
	"strings"

	"crashloader/internal/dataset"
	"crashloader/internal/pgsql"
)

// Statement is one SQL statement a run would execute.
type Statement struct {
	Stage    string
	Dataset  string
	Database string
	SQL      string
}

// Plan renders the statements Run would send for opts, without touching
// any backend. headers maps a dataset name to its CSV header; datasets
// without one use the manifest's expected header. Import statements are
// rendered in the aws_s3 form.
func Plan(opts Options, headers map[string][]string) ([]Statement, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	var out []Statement
	add := func(stage, ds, db, sql string) {
		out = append(out, Statement{Stage: stage, Dataset: ds, Database: db, SQL: sql})
	}

	switch opts.Strategy {
	case StrategyReset:
		drop, _ := pgsql.DropDatabaseSQL(opts.Database)
		create, _ := pgsql.CreateDatabaseSQL(opts.Database)
		add("prepare", "", opts.AdminDatabase, pgsql.TerminateBackendsSQL)
		add("prepare", "", opts.AdminDatabase, drop)
		add("prepare", "", opts.AdminDatabase, create)
	default:
		create, _ := pgsql.CreateDatabaseSQL(opts.Database)
		add("prepare", "", opts.AdminDatabase, pgsql.DatabaseExistsSQL)
		add("prepare", "", opts.AdminDatabase, create+" -- only when absent")
	}
	for _, ext := range opts.Extensions {
		stmt, err := pgsql.CreateExtensionSQL(ext)
		if err != nil {
			return nil, err
		}
		add("prepare", "", opts.Database, stmt)
	}
	add("prepare", "", opts.Database, pgsql.TryTimestampFunctionSQL)

	sets := make([]dataset.Dataset, 0, len(opts.Sources))
	for _, src := range opts.Sources {
		ds, err := dataset.Lookup(src.Dataset)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ds)
		stmts, err := pgsql.CreateTableSQL(ds)
		if err != nil {
			return nil, err
		}
		for _, s := range stmts {
			add("prepare", ds.Name, opts.Database, s)
		}
	}

	for _, ds := range sets {
		header, ok := headers[ds.Name]
		if !ok {
			header = dataset.ExpectedHeader(ds)
		}
		b, err := dataset.Bind(ds, header)
		if err != nil {
			return nil, err
		}
		create, err := pgsql.CreateStagingSQL(b)
		if err != nil {
			return nil, err
		}
		merge, err := pgsql.BuildMerge(b)
		if err != nil {
			return nil, err
		}
		add("stage", ds.Name, opts.Database, pgsql.DropTableSQL(ds.StagingTable))
		add("stage", ds.Name, opts.Database, create)
		add("import", ds.Name, opts.Database, pgsql.ImportFromS3SQL)
		add("merge", ds.Name, opts.Database, merge)
		add("cleanup", ds.Name, opts.Database, pgsql.DropTableSQL(ds.StagingTable))
	}
	return out, nil
}

// WritePlan prints statements as an annotated SQL script.
func WritePlan(w io.Writer, stmts []Statement) error {
	for _, s := range stmts {
		label := s.Stage
		if s.Dataset != "" {
			label += " " + s.Dataset
		}
		if _, err := fmt.Fprintf(w, "-- %s (database %s)\n%s\n\n", label, s.Database, strings.TrimSpace(s.SQL)); err != nil {
			return err
		}
	}
	return nil
}
