// Package s3 implements objectstore.Store on AWS S3 or an S3-compatible
// endpoint such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"crashloader/internal/objectstore"
)

const (
	// MaxSingleCopy is the largest object CopyObject accepts.
	MaxSingleCopy int64 = 5 << 30
	// PartSize is the UploadPartCopy part size for larger objects.
	PartSize int64 = 512 << 20
)

// Config holds explicit construction parameters. Credentials fall back to the
// default chain (Lambda role, env, shared profile) when AccessKeyID is empty.
type Config struct {
	Region          string
	Endpoint        string // optional; custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// client is the subset of *s3.Client used by Store.
type client interface {
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartCopy(ctx context.Context, in *s3.UploadPartCopyInput, optFns ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Store implements objectstore.Store.
type Store struct {
	client   client
	partSize int64
}

var _ objectstore.Store = (*Store)(nil)

// New creates a Store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(c), nil
}

func newStore(c client) *Store {
	return &Store{client: c, partSize: PartSize}
}

// Copy performs a server-side copy. Objects above MaxSingleCopy go through a
// multipart upload that is aborted on any failure.
func (s *Store) Copy(ctx context.Context, src, dst objectstore.Location) error {
	info, err := s.Head(ctx, src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if info.Size <= MaxSingleCopy {
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(dst.Bucket),
			Key:        aws.String(dst.Key),
			CopySource: aws.String(copySource(src)),
		})
		if err != nil {
			return fmt.Errorf("copy %s to %s: %w", src, dst, mapErr(err))
		}
		return nil
	}
	return s.multipartCopy(ctx, src, dst, info.Size)
}

func (s *Store) multipartCopy(ctx context.Context, src, dst objectstore.Location, size int64) error {
	up, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(dst.Key),
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: create multipart upload: %w", src, dst, mapErr(err))
	}

	abort := func(cause error) error {
		// The upload id is discarded either way; an abort failure only
		// leaves invisible parts for the bucket lifecycle to collect.
		_, _ = s.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(dst.Bucket),
			Key:      aws.String(dst.Key),
			UploadId: up.UploadId,
		})
		return cause
	}

	var parts []types.CompletedPart
	for n, off := int32(1), int64(0); off < size; n, off = n+1, off+s.partSize {
		end := off + s.partSize - 1
		if end >= size {
			end = size - 1
		}
		out, err := s.client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:          aws.String(dst.Bucket),
			Key:             aws.String(dst.Key),
			UploadId:        up.UploadId,
			PartNumber:      aws.Int32(n),
			CopySource:      aws.String(copySource(src)),
			CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
		})
		if err != nil {
			return abort(fmt.Errorf("copy %s to %s: part %d: %w", src, dst, n, mapErr(err)))
		}
		var etag *string
		if out.CopyPartResult != nil {
			etag = out.CopyPartResult.ETag
		}
		parts = append(parts, types.CompletedPart{ETag: etag, PartNumber: aws.Int32(n)})
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(dst.Bucket),
		Key:             aws.String(dst.Key),
		UploadId:        up.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return abort(fmt.Errorf("copy %s to %s: complete multipart upload: %w", src, dst, mapErr(err)))
	}
	return nil
}

func (s *Store) Head(ctx context.Context, loc objectstore.Location) (objectstore.Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key)})
	if err != nil {
		return objectstore.Info{}, fmt.Errorf("head %s: %w", loc, mapErr(err))
	}
	return objectstore.Info{
		Size: aws.ToInt64(out.ContentLength),
		ETag: strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

func (s *Store) Open(ctx context.Context, loc objectstore.Location) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key)})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", loc, mapErr(err))
	}
	return out.Body, nil
}

func (s *Store) OpenRange(ctx context.Context, loc objectstore.Location, offset, length int64) (io.ReadCloser, error) {
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("get %s: invalid range offset=%d length=%d", loc, offset, length)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", loc, mapErr(err))
	}
	return out.Body, nil
}

func (s *Store) Delete(ctx context.Context, loc objectstore.Location) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key)})
	if err != nil {
		return fmt.Errorf("delete %s: %w", loc, mapErr(err))
	}
	return nil
}

// copySource renders "bucket/key" with every key segment URL-escaped.
func copySource(loc objectstore.Location) string {
	segs := strings.Split(loc.Key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return loc.Bucket + "/" + strings.Join(segs, "/")
}

// mapErr turns S3 not-found responses into objectstore.ErrNotFound while
// keeping the original error in the chain.
func mapErr(err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return errors.Join(objectstore.ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return errors.Join(objectstore.ErrNotFound, err)
		}
	}
	return err
}
