// Package export writes run artifacts to local paths or S3 object URLs.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"customer-rfm-lab/internal/domain"
)

// S3Scheme prefixes object-store destinations.
const S3Scheme = "s3://"

// Content types of written artifacts.
const (
	ContentTypeCSV      = "text/csv"
	ContentTypeMarkdown = "text/markdown"
	ContentTypeText     = "text/plain"
)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Writer stores artifacts by destination.
// Destinations starting with s3:// are uploaded, anything else is a local file.
type Writer struct {
	region string

	mu       sync.Mutex
	s3Client ObjectPutter
}

// NewWriter creates a writer. region is used when an S3 client is first needed;
// empty means the SDK default chain decides.
func NewWriter(region string) *Writer {
	return &Writer{region: region}
}

// WithS3Client sets the client used for s3:// destinations.
func (w *Writer) WithS3Client(client ObjectPutter) *Writer {
	w.s3Client = client
	return w
}

// Write stores data at dest. Failures are returned as *domain.OutputWriteError.
func (w *Writer) Write(ctx context.Context, dest string, data []byte, contentType string) error {
	var err error
	if IsS3(dest) {
		err = w.writeS3(ctx, dest, data, contentType)
	} else {
		err = writeLocal(dest, data)
	}
	if err != nil {
		return &domain.OutputWriteError{Destination: dest, Err: err}
	}
	return nil
}

func writeLocal(dest string, data []byte) error {
	if dest == "" {
		return errors.New("empty destination")
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(dest, data, 0644)
}

func (w *Writer) writeS3(ctx context.Context, dest string, data []byte, contentType string) error {
	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return err
	}
	client, err := w.client(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", bucket, key, err)
	}
	return nil
}

// client returns the S3 client, loading the default AWS config on first use.
func (w *Writer) client(ctx context.Context) (ObjectPutter, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.s3Client != nil {
		return w.s3Client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if w.region != "" {
		opts = append(opts, awsconfig.WithRegion(w.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	w.s3Client = s3.NewFromConfig(cfg)
	return w.s3Client, nil
}

// IsS3 reports whether dest is an s3:// URL.
func IsS3(dest string) bool {
	return strings.HasPrefix(dest, S3Scheme)
}

// ParseS3URL splits s3://bucket/key into bucket and key.
func ParseS3URL(dest string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(dest, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", dest)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 url %q needs a bucket and an object key", dest)
	}
	return bucket, key, nil
}

// Join resolves name against dir. Absolute paths and s3:// URLs are returned as-is.
func Join(dir, name string) string {
	if IsS3(name) || filepath.IsAbs(name) {
		return name
	}
	if IsS3(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + path.Clean(filepath.ToSlash(name))
	}
	return filepath.Join(dir, name)
}
