package populator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"crashloader/internal/dataset"
	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

// prepare makes sure the database, its extensions, the cast helper and every
// destination table exist.
func (p *Populator) prepare(ctx context.Context, sets []dataset.Dataset) error {
	return p.step("prepare", func() error {
		var err error
		switch p.opts.Strategy {
		case StrategyReset:
			err = p.resetDatabase(ctx)
		default:
			err = p.ensureDatabase(ctx)
		}
		if err != nil {
			return err
		}
		if err := p.enableExtensions(ctx); err != nil {
			return err
		}
		if _, err := p.exec(ctx, p.opts.Database, pgsql.TryTimestampFunctionSQL); err != nil {
			return fmt.Errorf("install %s: %w", pgsql.TryTimestampFunc, err)
		}
		for _, ds := range sets {
			if err := p.createTable(ctx, ds); err != nil {
				return err
			}
		}
		return nil
	})
}

// ensureDatabase creates the database when it is absent. A concurrent
// creator winning the race is not an error.
func (p *Populator) ensureDatabase(ctx context.Context) error {
	log := p.log.WithField("stage", "prepare")
	res, err := p.exec(ctx, p.opts.AdminDatabase, pgsql.DatabaseExistsSQL,
		storage.String(pgsql.ParamDatabaseName, p.opts.Database))
	if err != nil {
		return fmt.Errorf("check database %s: %w", p.opts.Database, err)
	}
	if len(res.Rows) > 0 {
		log.Info("database exists")
		return nil
	}

	create, err := pgsql.CreateDatabaseSQL(p.opts.Database)
	if err != nil {
		return err
	}
	if _, err := p.exec(ctx, p.opts.AdminDatabase, create); err != nil {
		if errors.Is(err, storage.ErrDatabaseExists) {
			log.Info("database created concurrently")
			return nil
		}
		return fmt.Errorf("create database %s: %w", p.opts.Database, err)
	}
	log.Info("database created")
	return nil
}

// resetDatabase drops and recreates the database.
func (p *Populator) resetDatabase(ctx context.Context) error {
	log := p.log.WithField("stage", "prepare")
	log.Warn("recreating database; existing data is discarded")

	if _, err := p.exec(ctx, p.opts.AdminDatabase, pgsql.TerminateBackendsSQL,
		storage.String(pgsql.ParamDatabaseName, p.opts.Database)); err != nil {
		return fmt.Errorf("terminate connections to %s: %w", p.opts.Database, err)
	}
	drop, err := pgsql.DropDatabaseSQL(p.opts.Database)
	if err != nil {
		return err
	}
	if _, err := p.exec(ctx, p.opts.AdminDatabase, drop); err != nil {
		return fmt.Errorf("drop database %s: %w", p.opts.Database, err)
	}
	create, err := pgsql.CreateDatabaseSQL(p.opts.Database)
	if err != nil {
		return err
	}
	if _, err := p.exec(ctx, p.opts.AdminDatabase, create); err != nil {
		return fmt.Errorf("create database %s: %w", p.opts.Database, err)
	}
	log.Info("database recreated")
	return nil
}

func (p *Populator) enableExtensions(ctx context.Context) error {
	for _, ext := range p.opts.Extensions {
		stmt, err := pgsql.CreateExtensionSQL(ext)
		if err != nil {
			return err
		}
		if _, err := p.exec(ctx, p.opts.Database, stmt); err != nil {
			return fmt.Errorf("enable extension %s: %w", ext, err)
		}
	}
	return nil
}

func (p *Populator) createTable(ctx context.Context, ds dataset.Dataset) error {
	stmts, err := pgsql.CreateTableSQL(ds)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := p.exec(ctx, p.opts.Database, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", ds.Table, err)
		}
	}
	p.log.WithFields(logrus.Fields{"stage": "prepare", "table": ds.Table}).Info("destination table ready")
	return nil
}

func (p *Populator) exec(ctx context.Context, database, sql string, params ...storage.Param) (storage.Result, error) {
	return p.deps.Executor.Exec(ctx, database, sql, params...)
}
