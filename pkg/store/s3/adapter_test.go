package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awss3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

type mockS3Client struct {
	headBucketFn func(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	putObjectFn  func(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	getObjectFn  func(context.Context, *awss3.GetObjectInput, ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

func (m *mockS3Client) HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	if m.headBucketFn != nil {
		return m.headBucketFn(ctx, in, optFns...)
	}
	return &awss3.HeadBucketOutput{}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if m.putObjectFn != nil {
		return m.putObjectFn(ctx, in, optFns...)
	}
	return &awss3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	if m.getObjectFn != nil {
		return m.getObjectFn(ctx, in, optFns...)
	}
	return nil, errors.New("unexpected get object")
}

func TestNewAdapter_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "empty", cfg: Config{}},
		{name: "missing region", cfg: Config{Bucket: "uploads"}},
		{name: "blank bucket", cfg: Config{Bucket: "  ", Region: "us-east-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAdapter(tt.cfg, &mockLogger{}); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.S3Config{Bucket: "uploads", Region: "eu-west-1", Prefix: "files", UsePathStyle: true})
	if cfg.Bucket != "uploads" || cfg.Region != "eu-west-1" || cfg.Prefix != "files" || !cfg.UsePathStyle {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "a.png"},
		{prefix: "files", want: "files/a.png"},
		{prefix: "/files/", want: "files/a.png"},
	}
	for _, tt := range tests {
		a := newAdapter(&mockS3Client{}, Config{Bucket: "docs", Prefix: tt.prefix}, &mockLogger{})
		if got := a.Key("a.png"); got != tt.want {
			t.Errorf("Key with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestPut_Success(t *testing.T) {
	var gotBucket, gotKey, gotContentType string
	var gotBody []byte

	a := newAdapter(&mockS3Client{
		putObjectFn: func(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
			gotBucket = aws.ToString(in.Bucket)
			gotKey = aws.ToString(in.Key)
			gotContentType = aws.ToString(in.ContentType)
			gotBody, _ = io.ReadAll(in.Body)
			return &awss3.PutObjectOutput{}, nil
		},
	}, Config{Bucket: "docs", Prefix: "files", OperationTimeout: time.Second}, &mockLogger{})

	if err := a.Put(context.Background(), "a.png", bytes.NewReader([]byte("content")), "image/png"); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	if gotBucket != "docs" || gotKey != "files/a.png" || gotContentType != "image/png" {
		t.Fatalf("unexpected put input: bucket=%q key=%q contentType=%q", gotBucket, gotKey, gotContentType)
	}
	if string(gotBody) != "content" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestPut_Errors(t *testing.T) {
	failing := newAdapter(&mockS3Client{
		putObjectFn: func(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}, Config{Bucket: "docs"}, &mockLogger{})

	if err := failing.Put(context.Background(), "", bytes.NewReader(nil), ""); err == nil {
		t.Error("expected error for empty name")
	}
	if err := failing.Put(context.Background(), "a.txt", nil, ""); err == nil {
		t.Error("expected error for nil body")
	}
	if err := failing.Put(context.Background(), "a.txt", bytes.NewReader([]byte("x")), ""); err == nil {
		t.Error("expected client error to surface")
	}
}

func TestGet_Success(t *testing.T) {
	var gotKey string
	a := newAdapter(&mockS3Client{
		getObjectFn: func(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
			gotKey = aws.ToString(in.Key)
			return &awss3.GetObjectOutput{
				Body:          io.NopCloser(bytes.NewReader([]byte("file-content"))),
				ContentType:   aws.String("application/pdf"),
				ContentLength: aws.Int64(12),
			}, nil
		},
	}, Config{Bucket: "docs", Prefix: "files"}, &mockLogger{})

	obj, err := a.Get(context.Background(), "a.pdf")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	defer obj.Body.Close()

	payload, _ := io.ReadAll(obj.Body)
	if string(payload) != "file-content" {
		t.Fatalf("unexpected payload: %q", payload)
	}
	if gotKey != "files/a.pdf" || obj.ContentType != "application/pdf" || obj.ContentLength != 12 {
		t.Fatalf("unexpected object: key=%q %+v", gotKey, obj)
	}
}

func TestGet_NoSuchKey(t *testing.T) {
	a := newAdapter(&mockS3Client{
		getObjectFn: func(context.Context, *awss3.GetObjectInput, ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
			return nil, fmt.Errorf("operation error S3: GetObject: %w", &awss3types.NoSuchKey{})
		},
	}, Config{Bucket: "docs"}, &mockLogger{})

	if _, err := a.Get(context.Background(), "missing.txt"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := newAdapter(&mockS3Client{}, Config{Bucket: "docs"}, &mockLogger{})
	if err := healthy.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected health check error: %v", err)
	}

	unreachable := newAdapter(&mockS3Client{
		headBucketFn: func(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
			return nil, errors.New("no such bucket")
		},
	}, Config{Bucket: "docs"}, &mockLogger{})
	if err := unreachable.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check error")
	}
}

func TestCloseAndHealthCheck_WhenClosed(t *testing.T) {
	a := newAdapter(&mockS3Client{}, Config{Bucket: "docs"}, &mockLogger{})
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := a.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check error on closed adapter")
	}
	if err := a.Put(context.Background(), "a.txt", bytes.NewReader(nil), ""); err == nil {
		t.Fatal("expected put error on closed adapter")
	}
}
