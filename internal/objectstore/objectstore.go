// Package objectstore defines the object storage contract used to stage raw
// dataset files: server-side copy, metadata, streamed and ranged reads, and
// delete. Implementations live in subpackages (s3, memory).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("objectstore: object not found")

// Location addresses one object.
type Location struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Key    string `json:"key" yaml:"key"`
}

func (l Location) String() string { return "s3://" + l.Bucket + "/" + l.Key }

// Validate reports a missing bucket or key.
func (l Location) Validate() error {
	if strings.TrimSpace(l.Bucket) == "" {
		return fmt.Errorf("location %s: bucket is required", l)
	}
	if strings.TrimSpace(l.Key) == "" {
		return fmt.Errorf("location %s: key is required", l)
	}
	return nil
}

// Info is the metadata returned by Head.
type Info struct {
	Size int64
	ETag string
}

// Store is the object storage surface the populator needs.
type Store interface {
	// Copy duplicates src into dst without streaming through the caller.
	// No partial dst object is visible if it fails.
	Copy(ctx context.Context, src, dst Location) error
	Head(ctx context.Context, loc Location) (Info, error)
	Open(ctx context.Context, loc Location) (io.ReadCloser, error)
	// OpenRange reads length bytes starting at offset. Reading past the end
	// returns the bytes that exist.
	OpenRange(ctx context.Context, loc Location, offset, length int64) (io.ReadCloser, error)
	Delete(ctx context.Context, loc Location) error
}
