package populator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"crashloader/internal/dataset"
	"crashloader/internal/metrics"
	"crashloader/internal/objectstore"
)

// Populator runs the load described by Options.
type Populator struct {
	opts Options
	deps Deps
	log  logrus.FieldLogger
}

// New validates opts and returns a Populator.
func New(opts Options, deps Deps) (*Populator, error) {
	if err := opts.normalize(); err != nil {
		return nil, fmt.Errorf("populator: %w", err)
	}
	if deps.Objects == nil || deps.Executor == nil || deps.Importer == nil {
		return nil, errors.New("populator: object store, executor and importer are required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Populator{
		opts: opts,
		deps: deps,
		log:  deps.Logger.WithField("database", opts.Database),
	}, nil
}

// Run stages every source, prepares the database once, then loads each
// dataset in manifest order. The report is returned even on failure.
func (p *Populator) Run(ctx context.Context) (Report, error) {
	rep := Report{
		Status:   StatusFailed,
		Database: p.opts.Database,
		Strategy: p.opts.Strategy,
		Datasets: make([]DatasetReport, len(p.opts.Sources)),
	}
	sets := make([]dataset.Dataset, len(p.opts.Sources))
	for i, src := range p.opts.Sources {
		ds, err := dataset.Lookup(src.Dataset)
		if err != nil {
			return p.fail(&rep, err)
		}
		sets[i] = ds
		rep.Datasets[i] = DatasetReport{
			Name:   ds.Name,
			Table:  ds.Table,
			Source: src.From.String(),
			Staged: src.To.String(),
			State:  NotStarted,
		}
	}

	p.log.WithField("datasets", len(sets)).Info("starting crash data load")

	for i, src := range p.opts.Sources {
		copied, err := p.stage(ctx, src)
		rep.Datasets[i].Copied = copied
		if err != nil {
			rep.Datasets[i].Error = err.Error()
			metrics.RecordDataset(p.opts.Job, src.Dataset, err)
			return p.fail(&rep, err)
		}
	}

	if err := p.prepare(ctx, sets); err != nil {
		return p.fail(&rep, err)
	}

	for i, src := range p.opts.Sources {
		dr := &rep.Datasets[i]
		start := p.deps.Now()
		err := p.load(ctx, sets[i], src.To, dr)
		dr.Duration = p.deps.Now().Sub(start)
		metrics.RecordDataset(p.opts.Job, src.Dataset, err)
		if err != nil {
			dr.Error = err.Error()
			return p.fail(&rep, err)
		}
		p.deleteStaged(ctx, src)
	}

	rep.Status = StatusComplete
	p.log.Info("crash data load complete")
	return rep, nil
}

func (p *Populator) fail(rep *Report, err error) (Report, error) {
	rep.Status = StatusFailed
	rep.Error = err.Error()
	p.log.WithError(err).Error("crash data load failed")
	return *rep, err
}

// step times fn and records it under the given stage name.
func (p *Populator) step(name string, fn func() error) error {
	start := p.deps.Now()
	err := fn()
	metrics.RecordStep(p.opts.Job, name, err, p.deps.Now().Sub(start))
	return err
}

// deleteStaged removes the staged copy when configured. Failures are logged
// and swallowed.
func (p *Populator) deleteStaged(ctx context.Context, src Source) {
	if !p.opts.DeleteStaged || src.From == src.To {
		return
	}
	log := p.log.WithFields(logrus.Fields{"dataset": src.Dataset, "bucket": src.To.Bucket, "key": src.To.Key})
	if err := p.deps.Objects.Delete(ctx, src.To); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		log.WithError(err).Warn("unable to delete staged object")
		return
	}
	log.Info("deleted staged object")
}
