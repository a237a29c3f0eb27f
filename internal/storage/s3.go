package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cuisella/backend/config"
)

// S3Store stores images in an S3 bucket with public-read objects.
type S3Store struct {
	cfg *config.S3Config
}

// NewS3Store creates a store backed by the given S3 configuration.
func NewS3Store(cfg *config.S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func (s *S3Store) Save(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := objectKey(filename)

	_, err := s.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.cfg.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(path),
	})
	return err
}

func (s *S3Store) URL(path string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.BucketName, path)
}
