package files

import (
	"context"
	"errors"
	"io"

	"github.com/nimburion/taskboard/pkg/observability/tracing"
	"github.com/nimburion/taskboard/pkg/store/s3"
)

type objectStore interface {
	Put(ctx context.Context, name string, body io.Reader, contentType string) error
	Get(ctx context.Context, name string) (*s3.Object, error)
}

// S3Storage keeps files as objects in an S3 bucket.
type S3Storage struct {
	objects objectStore
}

// NewS3Storage stores files through adapter.
func NewS3Storage(adapter *s3.Adapter) *S3Storage {
	return &S3Storage{objects: adapter}
}

// Save uploads r under name with a detected content type.
func (s *S3Storage) Save(ctx context.Context, name string, r io.Reader) (err error) {
	ctx, span := tracing.StartFileSpan(ctx, "s3", tracing.OpSave, name)
	defer func() { tracing.End(span, err) }()

	if err := checkName(name); err != nil {
		return err
	}
	contentType, body := sniff(r)
	return s.objects.Put(ctx, name, body, contentType)
}

// Open streams the object stored under name or returns ErrNotFound.
func (s *S3Storage) Open(ctx context.Context, name string) (_ io.ReadCloser, err error) {
	ctx, span := tracing.StartFileSpan(ctx, "s3", tracing.OpOpen, name)
	defer func() { tracing.End(span, err) }()

	if checkName(name) != nil {
		return nil, ErrNotFound
	}
	obj, err := s.objects.Get(ctx, name)
	if errors.Is(err, s3.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return obj.Body, nil
}
