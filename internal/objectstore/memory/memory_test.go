package memory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashloader/internal/objectstore"
)

func TestStore_CopyAndRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	src := objectstore.Location{Bucket: "public", Key: "crashes.csv"}
	dst := objectstore.Location{Bucket: "project", Key: "crashes.csv"}
	s.Put(src, []byte("a,b\n1,2\n"))

	require.NoError(t, s.Copy(ctx, src, dst))
	require.True(t, s.Exists(dst))

	rc, err := s.OpenRange(ctx, dst, 0, 3)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "a,b", string(b))

	rc, err = s.OpenRange(ctx, dst, 4, 100)
	require.NoError(t, err)
	b, _ = io.ReadAll(rc)
	assert.Equal(t, "1,2\n", string(b))

	info, err := s.Head(ctx, dst)
	require.NoError(t, err)
	assert.EqualValues(t, 8, info.Size)

	require.NoError(t, objectstore.Verify(ctx, s, src, dst))

	s.Put(dst, []byte("a,b\n1,3\n"))
	err = objectstore.Verify(ctx, s, src, dst)
	assert.True(t, errors.Is(err, objectstore.ErrDigestMismatch))

	require.NoError(t, s.Delete(ctx, dst))
	_, err = s.Open(ctx, dst)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
	assert.Equal(t, []string{"copy s3://public/crashes.csv s3://project/crashes.csv", "delete s3://project/crashes.csv"}, s.Calls)
}

func TestStore_CopyMissingAndInjected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	err := s.Copy(ctx, objectstore.Location{Bucket: "a", Key: "x"}, objectstore.Location{Bucket: "b", Key: "x"})
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	boom := errors.New("access denied")
	s.CopyErr = boom
	s.Put(objectstore.Location{Bucket: "a", Key: "x"}, []byte("x"))
	err = s.Copy(ctx, objectstore.Location{Bucket: "a", Key: "x"}, objectstore.Location{Bucket: "b", Key: "x"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Exists(objectstore.Location{Bucket: "b", Key: "x"}))
}

func TestLocationValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, objectstore.Location{Bucket: "b", Key: "k"}.Validate())
	assert.Error(t, objectstore.Location{Key: "k"}.Validate())
	assert.Error(t, objectstore.Location{Bucket: "b", Key: " "}.Validate())
}
