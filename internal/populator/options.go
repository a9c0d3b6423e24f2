// Package populator runs the crash data load: stage the raw CSV objects,
// prepare the database once, then load each dataset through an all-text
// staging table and a typed merge into its destination table.
//
// Everything happens sequentially in the calling goroutine. There are no
// retries; the first unrecoverable error ends the run and is returned with
// the partial report.
package populator

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"crashloader/internal/dataset"
	"crashloader/internal/objectstore"
	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

// Strategy decides how the target database is prepared.
type Strategy string

const (
	// StrategyCreate creates the database only when it is absent.
	StrategyCreate Strategy = "create"
	// StrategyReset terminates sessions, drops and recreates the database.
	// Every previously loaded row is lost.
	StrategyReset Strategy = "reset"
)

// ParseStrategy maps a configuration value onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyCreate, StrategyReset:
		return Strategy(s), nil
	case "":
		return StrategyCreate, nil
	}
	return "", fmt.Errorf("unknown prepare strategy %q (want %q or %q)", s, StrategyCreate, StrategyReset)
}

// HeaderReadLimit bounds the ranged read used to fetch the CSV header.
const HeaderReadLimit = 64 << 10

// Source is one dataset file: where it comes from and where it is staged.
type Source struct {
	Dataset string
	From    objectstore.Location
	To      objectstore.Location
}

// Options configure a run.
type Options struct {
	Database      string
	AdminDatabase string
	Region        string
	Strategy      Strategy
	Extensions    []string
	Sources       []Source

	// VerifyCopy compares xxh3 digests of source and staged copy.
	VerifyCopy bool
	// DeleteStaged removes the staged copy after a successful load. It never
	// touches the source object.
	DeleteStaged bool

	// Job is the metrics job label.
	Job string
}

// Deps are the collaborators of a run.
type Deps struct {
	Objects  objectstore.Store
	Executor storage.Executor
	Importer storage.Importer
	Logger   logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o *Options) normalize() error {
	if o.AdminDatabase == "" {
		o.AdminDatabase = "postgres"
	}
	if o.Job == "" {
		o.Job = "populator"
	}
	if o.Strategy == "" {
		o.Strategy = StrategyCreate
	}
	if _, err := ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if err := pgsql.ValidateDatabaseName(o.Database); err != nil {
		return err
	}
	if o.Database == o.AdminDatabase {
		return fmt.Errorf("target database %q must differ from the admin database", o.Database)
	}
	if err := pgsql.ValidateExtensions(o.Extensions); err != nil {
		return err
	}
	if len(o.Sources) == 0 {
		return errors.New("no sources configured")
	}

	names := make([]string, 0, len(o.Sources))
	byName := make(map[string]Source, len(o.Sources))
	for _, s := range o.Sources {
		if _, dup := byName[s.Dataset]; dup {
			return fmt.Errorf("dataset %s configured twice", s.Dataset)
		}
		if err := s.From.Validate(); err != nil {
			return fmt.Errorf("dataset %s source: %w", s.Dataset, err)
		}
		if err := s.To.Validate(); err != nil {
			return fmt.Errorf("dataset %s destination: %w", s.Dataset, err)
		}
		byName[s.Dataset] = s
		names = append(names, s.Dataset)
	}
	ordered, err := dataset.InLoadOrder(names)
	if err != nil {
		return err
	}
	o.Sources = make([]Source, 0, len(ordered))
	for _, n := range ordered {
		o.Sources = append(o.Sources, byName[n])
	}
	return nil
}

// SelectSources keeps the sources whose dataset is in names. An empty names
// keeps everything; a name without a configured source is an error.
func SelectSources(all []Source, names []string) ([]Source, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Source, len(all))
	for _, s := range all {
		byName[s.Dataset] = s
	}
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			if _, err := dataset.Lookup(n); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("dataset %s has no configured source", n)
		}
		out = append(out, s)
	}
	return out, nil
}
