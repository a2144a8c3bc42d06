package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AvatarStore is the external object store holding user avatars. The core
// only needs upload-by-key and delete-by-key.
type AvatarStore interface {
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

type S3AvatarStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
	region   string
}

func NewS3AvatarStore(ctx context.Context, bucket string, region string, endpoint string) (*S3AvatarStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3AvatarStore{client: client, bucket: bucket, endpoint: endpoint, region: region}, nil
}

func (s *S3AvatarStore) Upload(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	return s.objectURL(key), nil
}

func (s *S3AvatarStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}
	return nil
}

func (s *S3AvatarStore) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
