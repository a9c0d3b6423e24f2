// Package postgres implements storage.Backend directly on Postgres with
// pgx v5. It keeps one pool per database (the admin database and the target
// database differ) and bulk-loads by streaming the CSV object from the
// object store into COPY FROM STDIN.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"crashloader/internal/objectstore"
	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

// duplicateDatabase is the SQLSTATE for CREATE DATABASE on an existing name.
const duplicateDatabase = "42P04"

// poolLike is the subset of *pgxpool.Pool the backend uses, plus the COPY
// entry point, so tests can run without a server.
type poolLike interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, r io.Reader, sql string) (int64, error)
	Close()
}

// pgxPool adapts *pgxpool.Pool to poolLike.
type pgxPool struct{ *pgxpool.Pool }

func (p pgxPool) CopyFrom(ctx context.Context, r io.Reader, sql string) (int64, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()
	tag, err := conn.Conn().PgConn().CopyFrom(ctx, r, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// newPool opens a pool for dsn with the database name replaced; tests swap
// it for a fake.
var newPool = func(ctx context.Context, dsn, database string) (poolLike, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if database != "" {
		cfg.ConnConfig.Database = database
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return pgxPool{p}, nil
}

// Backend is the pgx implementation of storage.Backend.
type Backend struct {
	dsn     string
	objects objectstore.Store
	log     logrus.FieldLogger

	mu    sync.Mutex
	pools map[string]poolLike
}

var _ storage.Backend = (*Backend)(nil)

// New returns a Backend for dsn. objects may be nil when Import is unused.
func New(dsn string, objects objectstore.Store, log logrus.FieldLogger) (*Backend, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DSN is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Backend{dsn: dsn, objects: objects, log: log, pools: map[string]poolLike{}}, nil
}

func (b *Backend) pool(ctx context.Context, database string) (poolLike, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pools[database]; ok {
		return p, nil
	}
	p, err := newPool(ctx, b.dsn, database)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect %s: %w", database, err)
	}
	b.pools[database] = p
	return p, nil
}

// Exec implements storage.Executor.
func (b *Backend) Exec(ctx context.Context, database, sql string, params ...storage.Param) (storage.Result, error) {
	query, args, err := bindNamed(sql, params)
	if err != nil {
		return storage.Result{}, err
	}
	p, err := b.pool(ctx, database)
	if err != nil {
		return storage.Result{}, err
	}
	if len(args) == 0 {
		// DDL and admin statements go through the simple protocol.
		args = []any{pgx.QueryExecModeSimpleProtocol}
	}

	b.log.WithField("database", database).Debugf("executing SQL: %s", query)
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return storage.Result{}, classify(database, err)
	}
	defer rows.Close()

	var res storage.Result
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return storage.Result{}, classify(database, err)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return storage.Result{}, classify(database, err)
	}
	res.RowsAffected = rows.CommandTag().RowsAffected()
	return res, nil
}

// Import implements storage.Importer by streaming the object into COPY.
func (b *Backend) Import(ctx context.Context, database string, req storage.ImportRequest) (int64, error) {
	if b.objects == nil {
		return 0, errors.New("postgres: import requires an object store")
	}
	p, err := b.pool(ctx, database)
	if err != nil {
		return 0, err
	}
	rc, err := b.objects.Open(ctx, req.Source)
	if err != nil {
		return 0, fmt.Errorf("import %s into %s: %w", req.Source, req.Table, err)
	}
	defer rc.Close()

	n, err := p.CopyFrom(ctx, rc, pgsql.CopyFromSQL(req.Table, req.Columns))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Where != "" {
			return 0, fmt.Errorf("import %s into %s: %w (%s)", req.Source, req.Table, err, pgErr.Where)
		}
		return 0, fmt.Errorf("import %s into %s: %w", req.Source, req.Table, err)
	}
	return n, nil
}

// Close releases every pool.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, p := range b.pools {
		p.Close()
		delete(b.pools, name)
	}
}

func classify(database string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == duplicateDatabase {
		return fmt.Errorf("%w: %w", storage.ErrDatabaseExists, err)
	}
	return fmt.Errorf("postgres: execute on %s: %w", database, err)
}
