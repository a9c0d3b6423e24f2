package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

// ErrDigestMismatch is returned by Verify when two objects differ.
var ErrDigestMismatch = errors.New("objectstore: digest mismatch")

// Digest streams loc and returns its xxh3-64 digest and size.
func Digest(ctx context.Context, s Store, loc Location) (uint64, int64, error) {
	rc, err := s.Open(ctx, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("digest %s: %w", loc, err)
	}
	defer rc.Close()

	h := xxh3.New()
	n, err := io.Copy(h, rc)
	if err != nil {
		return 0, 0, fmt.Errorf("digest %s: %w", loc, err)
	}
	return h.Sum64(), n, nil
}

// Verify checks that src and dst hold identical bytes.
func Verify(ctx context.Context, s Store, src, dst Location) error {
	a, an, err := Digest(ctx, s, src)
	if err != nil {
		return err
	}
	b, bn, err := Digest(ctx, s, dst)
	if err != nil {
		return err
	}
	if a != b || an != bn {
		return fmt.Errorf("%w: %s (%d bytes, %016x) vs %s (%d bytes, %016x)",
			ErrDigestMismatch, src, an, a, dst, bn, b)
	}
	return nil
}
