// Package storage contains the backend-agnostic statement execution and bulk
// import contracts, and the factory registry concrete backends plug into.
//
// Backends register themselves at init time:
//
//	storage.Register("rdsdata", factory)
//
// and callers obtain one through storage.New without importing the backend
// package directly (see storage/all).
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"

	"crashloader/internal/objectstore"
)

var (
	// ErrUnsupportedKind is returned by New for kinds nobody registered.
	ErrUnsupportedKind = errors.New("unsupported storage.kind")
	// ErrDatabaseExists is returned (wrapped) by Exec when CREATE DATABASE
	// fails because the database is already there.
	ErrDatabaseExists = errors.New("database already exists")
)

// Param is one named statement parameter, referenced as :Name in SQL.
// Value is a string, int64, float64, bool or nil.
type Param struct {
	Name  string
	Value any
}

// String is shorthand for a text parameter.
func String(name, value string) Param { return Param{Name: name, Value: value} }

// Result is what a statement returned.
type Result struct {
	RowsAffected int64
	Rows         [][]any
}

// Executor runs one statement against database. There are no
// multi-statement transactions; every call stands alone.
type Executor interface {
	Exec(ctx context.Context, database, sql string, params ...Param) (Result, error)
}

// ImportRequest describes a headed CSV object to load into a staging table.
type ImportRequest struct {
	Table   string
	Columns []string
	Source  objectstore.Location
	Region  string
}

// Importer bulk-loads a CSV object into a table and reports the row count.
type Importer interface {
	Import(ctx context.Context, database string, req ImportRequest) (int64, error)
}

// Backend bundles the executor and importer of one storage kind.
type Backend interface {
	Executor
	Importer
	Close()
}

// Config carries everything a factory may need. Each backend reads only the
// fields relevant to it.
type Config struct {
	Kind string

	// rdsdata
	ClusterARN string
	SecretARN  string
	AWS        aws.Config

	// postgres
	DSN string
	// Objects is the store the postgres importer streams CSV data from.
	Objects objectstore.Store

	Logger logrus.FieldLogger
}

// Factory constructs a Backend from Config.
type Factory func(ctx context.Context, cfg Config) (Backend, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. A later registration for
// the same kind replaces the earlier one.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend registered under cfg.Kind.
func New(ctx context.Context, cfg Config) (Backend, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w=%s", ErrUnsupportedKind, cfg.Kind)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
