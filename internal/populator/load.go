package populator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"crashloader/internal/dataset"
	"crashloader/internal/metrics"
	"crashloader/internal/objectstore"
	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

// ErrHeaderTooLong is returned when no line break appears within
// HeaderReadLimit bytes of the object.
var ErrHeaderTooLong = errors.New("populator: CSV header exceeds read limit")

// load runs staging, import, merge and cleanup for one dataset. Once the
// staging table exists it is dropped on every path; a failed drop never
// replaces an earlier error.
func (p *Populator) load(ctx context.Context, ds dataset.Dataset, obj objectstore.Location, rep *DatasetReport) (err error) {
	log := p.log.WithFields(logrus.Fields{"dataset": ds.Name, "table": ds.Table})
	tr := NewTracker()
	defer func() { rep.State = tr.State() }()

	header, err := readHeader(ctx, p.deps.Objects, obj)
	if err != nil {
		return fmt.Errorf("load %s: %w", ds.Name, err)
	}
	b, err := dataset.Bind(ds, header)
	if err != nil {
		return fmt.Errorf("load %s: %w", ds.Name, err)
	}
	for _, col := range b.Missing {
		w := fmt.Sprintf("column %s not found in CSV header; new rows get NULL, existing rows keep their value", col)
		rep.Warnings = append(rep.Warnings, w)
		log.Warn(w)
	}
	merge, err := pgsql.BuildMerge(b)
	if err != nil {
		return fmt.Errorf("load %s: %w", ds.Name, err)
	}

	if err := p.createStaging(ctx, b); err != nil {
		return fmt.Errorf("load %s: %w", ds.Name, err)
	}
	if err := tr.To(Staged); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tr.To(Failed)
		}
		dropErr := p.step("cleanup", func() error {
			_, e := p.exec(context.WithoutCancel(ctx), p.opts.Database, pgsql.DropTableSQL(ds.StagingTable))
			return e
		})
		switch {
		case dropErr == nil && err == nil:
			_ = tr.To(CleanedUp)
			log.WithField("stage", "cleanup").Info("staging table dropped")
		case dropErr != nil && err == nil:
			err = fmt.Errorf("load %s: drop staging table %s: %w", ds.Name, ds.StagingTable, dropErr)
			_ = tr.To(Failed)
			log.WithError(dropErr).Error("unable to drop staging table")
		case dropErr != nil:
			log.WithError(dropErr).Error("unable to drop staging table after failure")
		}
	}()

	err = p.step("import", func() error {
		n, e := p.deps.Importer.Import(ctx, p.opts.Database, storage.ImportRequest{
			Table:   ds.StagingTable,
			Columns: b.Header,
			Source:  obj,
			Region:  p.opts.Region,
		})
		rep.Imported = n
		return e
	})
	if err != nil {
		log.WithError(err).Error("import into staging failed")
		return fmt.Errorf("load %s: import: %w", ds.Name, err)
	}
	metrics.RecordRows(p.opts.Job, ds.Name, "imported", rep.Imported)
	log.WithFields(logrus.Fields{"stage": "import", "rows": rep.Imported}).Info("staging table loaded")
	if err := tr.To(Imported); err != nil {
		return err
	}

	err = p.step("merge", func() error {
		res, e := p.exec(ctx, p.opts.Database, merge)
		rep.Merged = res.RowsAffected
		return e
	})
	if err != nil {
		log.WithError(err).Error("merge into destination failed")
		return fmt.Errorf("load %s: merge: %w", ds.Name, err)
	}
	metrics.RecordRows(p.opts.Job, ds.Name, "merged", rep.Merged)
	log.WithFields(logrus.Fields{"stage": "merge", "rows": rep.Merged, "policy": ds.Conflict.String()}).Info("destination table merged")
	return tr.To(Merged)
}

// createStaging drops any leftover staging table and creates it from the
// bound header.
func (p *Populator) createStaging(ctx context.Context, b dataset.Binding) error {
	create, err := pgsql.CreateStagingSQL(b)
	if err != nil {
		return err
	}
	if _, err := p.exec(ctx, p.opts.Database, pgsql.DropTableSQL(b.Dataset.StagingTable)); err != nil {
		return fmt.Errorf("drop staging table %s: %w", b.Dataset.StagingTable, err)
	}
	if _, err := p.exec(ctx, p.opts.Database, create); err != nil {
		return fmt.Errorf("create staging table %s: %w", b.Dataset.StagingTable, err)
	}
	return nil
}

// readHeader fetches the first HeaderReadLimit bytes of obj and parses the
// header record.
func readHeader(ctx context.Context, store objectstore.Store, obj objectstore.Location) ([]string, error) {
	rc, err := store.OpenRange(ctx, obj, 0, HeaderReadLimit)
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", obj, err)
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, HeaderReadLimit))
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", obj, err)
	}
	if len(buf) >= HeaderReadLimit && !bytes.ContainsAny(buf, "\r\n") {
		return nil, fmt.Errorf("%w: %s", ErrHeaderTooLong, obj)
	}
	header, err := dataset.ReadHeader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", obj, err)
	}
	return header, nil
}
