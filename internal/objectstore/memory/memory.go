// Package memory is an in-process objectstore.Store for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/zeebo/xxh3"

	"crashloader/internal/objectstore"
)

// Store keeps objects in a map keyed by location.
type Store struct {
	mu      sync.RWMutex
	objects map[objectstore.Location][]byte

	// CopyErr, when set, is returned by every Copy call.
	CopyErr error
	// Calls records the operations performed, e.g. "copy s3://a/x s3://b/x".
	Calls []string
}

var _ objectstore.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[objectstore.Location][]byte)}
}

// Put stores body at loc.
func (s *Store) Put(loc objectstore.Location, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[loc] = append([]byte(nil), body...)
}

// Exists reports whether loc holds an object.
func (s *Store) Exists(loc objectstore.Location) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[loc]
	return ok
}

func (s *Store) record(format string, args ...any) {
	s.Calls = append(s.Calls, fmt.Sprintf(format, args...))
}

func (s *Store) Copy(ctx context.Context, src, dst objectstore.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("copy %s %s", src, dst)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.CopyErr != nil {
		return s.CopyErr
	}
	body, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, objectstore.ErrNotFound)
	}
	s.objects[dst] = append([]byte(nil), body...)
	return nil
}

func (s *Store) Head(ctx context.Context, loc objectstore.Location) (objectstore.Info, error) {
	body, err := s.get(ctx, loc)
	if err != nil {
		return objectstore.Info{}, err
	}
	return objectstore.Info{Size: int64(len(body)), ETag: fmt.Sprintf("%016x", xxh3.Hash(body))}, nil
}

func (s *Store) Open(ctx context.Context, loc objectstore.Location) (io.ReadCloser, error) {
	body, err := s.get(ctx, loc)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (s *Store) OpenRange(ctx context.Context, loc objectstore.Location, offset, length int64) (io.ReadCloser, error) {
	body, err := s.get(ctx, loc)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("range %s: invalid offset %d length %d", loc, offset, length)
	}
	size := int64(len(body))
	if offset > size {
		offset = size
	}
	end := offset + length
	if end > size {
		end = size
	}
	return io.NopCloser(bytes.NewReader(body[offset:end])), nil
}

func (s *Store) Delete(ctx context.Context, loc objectstore.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete %s", loc)
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(s.objects, loc)
	return nil
}

func (s *Store) get(ctx context.Context, loc objectstore.Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[loc]
	if !ok {
		return nil, fmt.Errorf("%s: %w", loc, objectstore.ErrNotFound)
	}
	return body, nil
}
