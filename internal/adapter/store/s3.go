package store

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const geojsonContentType = "application/geo+json"

// Uploader is the subset of *s3manager.Uploader used by S3Store.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Store uploads artifacts to bucket under an optional key prefix.
type S3Store struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3Uploader builds an s3manager uploader for region.
func NewS3Uploader(region string) (*s3manager.Uploader, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return s3manager.NewUploader(sess), nil
}

// NewS3Store creates a store writing to bucket/prefix.
func NewS3Store(uploader Uploader, bucket, prefix string) *S3Store {
	return &S3Store{uploader: uploader, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Put uploads data and returns its s3:// URI.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	full := key
	if s.prefix != "" {
		full = path.Join(s.prefix, key)
	}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(full),
		ContentType: aws.String(geojsonContentType),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", full, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, full), nil
}
