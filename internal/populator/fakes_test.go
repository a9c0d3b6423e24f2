package populator

import (
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"crashloader/internal/objectstore"
	"crashloader/internal/objectstore/memory"
	"crashloader/internal/storage"
)

type execCall struct {
	db     string
	sql    string
	params []storage.Param
}

// fakeExec simulates the statement API closely enough to track which tables
// exist.
type fakeExec struct {
	calls      []execCall
	tables     map[string]bool
	existsRows [][]any
	mergeRows  int64
	fail       func(db, sql string) error
}

func newFakeExec() *fakeExec { return &fakeExec{tables: map[string]bool{}} }

var tableRE = regexp.MustCompile(`^(CREATE TABLE (?:IF NOT EXISTS )?|DROP TABLE IF EXISTS )"([^"]+)"`)

func (f *fakeExec) Exec(_ context.Context, db, sql string, params ...storage.Param) (storage.Result, error) {
	f.calls = append(f.calls, execCall{db: db, sql: sql, params: params})
	if f.fail != nil {
		if err := f.fail(db, sql); err != nil {
			return storage.Result{}, err
		}
	}
	if m := tableRE.FindStringSubmatch(sql); m != nil {
		if strings.HasPrefix(m[1], "CREATE") {
			f.tables[m[2]] = true
		} else {
			delete(f.tables, m[2])
		}
		return storage.Result{}, nil
	}
	switch {
	case strings.HasPrefix(sql, "SELECT 1 FROM pg_database"):
		return storage.Result{Rows: f.existsRows}, nil
	case strings.HasPrefix(sql, "WITH typed AS"):
		return storage.Result{RowsAffected: f.mergeRows}, nil
	}
	return storage.Result{}, nil
}

// sqls returns the SQL of every call, prefixed with the database.
func (f *fakeExec) sqls() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		line := c.sql
		if j := strings.IndexByte(line, '\n'); j >= 0 {
			line = line[:j]
		}
		out[i] = c.db + ": " + line
	}
	return out
}

func (f *fakeExec) ran(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c.sql, prefix) {
			return true
		}
	}
	return false
}

type fakeImporter struct {
	reqs []storage.ImportRequest
	rows int64
	err  error
}

func (f *fakeImporter) Import(_ context.Context, _ string, req storage.ImportRequest) (int64, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}

const (
	nycCSV     = "COLLISION_ID,CRASH DATE,BOROUGH,LATITUDE,LONGITUDE,VEHICLE TYPE CODE 1\n4455765,09/11/2021,BROOKLYN,40.66,-73.95,Sedan\n"
	partiesCSV = "PARTY_ID,COLLISION_ID,PARTY_NUMBER\n1,10,1\n"
)

var (
	nycSrc = Source{
		Dataset: "nyc_crashes",
		From:    objectstore.Location{Bucket: "public", Key: "nyc/crashes.csv"},
		To:      objectstore.Location{Bucket: "project", Key: "nyc_crashes.csv"},
	}
	partiesSrc = Source{
		Dataset: "ca_parties",
		From:    objectstore.Location{Bucket: "public", Key: "ca/parties.csv"},
		To:      objectstore.Location{Bucket: "project", Key: "ca_parties.csv"},
	}
)

type harness struct {
	store *memory.Store
	exec  *fakeExec
	imp   *fakeImporter
	logs  *test.Hook
	opts  Options
}

func newHarness(t *testing.T, sources ...Source) *harness {
	t.Helper()
	h := &harness{
		store: memory.New(),
		exec:  newFakeExec(),
		imp:   &fakeImporter{rows: 1},
		opts: Options{
			Database:   "nycrashes",
			Region:     "us-east-1",
			Extensions: []string{"postgis", "aws_s3"},
			Sources:    sources,
		},
	}
	h.exec.mergeRows = 1
	for _, s := range sources {
		body := nycCSV
		if s.Dataset == "ca_parties" {
			body = partiesCSV
		}
		h.store.Put(s.From, []byte(body))
	}
	return h
}

func (h *harness) populator(t *testing.T) *Populator {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h.logs = hook
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := New(h.opts, Deps{
		Objects:  h.store,
		Executor: h.exec,
		Importer: h.imp,
		Logger:   logger,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// stagingLeft lists staging tables that still exist.
func (h *harness) stagingLeft() []string {
	var out []string
	for name := range h.exec.tables {
		if strings.HasSuffix(name, "_staging") {
			out = append(out, name)
		}
	}
	return out
}

// failingStore wraps a store and fails every Copy.
type failingStore struct {
	objectstore.Store
	err error
}

func (f failingStore) Copy(context.Context, objectstore.Location, objectstore.Location) error {
	return f.err
}

// truncatingStore serves a fixed body for every ranged read.
type truncatingStore struct {
	*memory.Store
	body []byte
}

func (s truncatingStore) OpenRange(_ context.Context, _ objectstore.Location, _, length int64) (io.ReadCloser, error) {
	b := s.body
	if int64(len(b)) > length {
		b = b[:length]
	}
	return io.NopCloser(strings.NewReader(string(b))), nil
}
