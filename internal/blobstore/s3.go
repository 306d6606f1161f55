package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"codeclash/internal/bootstrap"
)

// S3Storage хранит загруженные файлы (аватары) в S3-совместимом
// бакете и отдаёт публичные ссылки через CDN.
type S3Storage struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewS3Storage(ctx context.Context, cfg *bootstrap.Config) (*S3Storage, error) {
	cdnBaseURL := cfg.CdnBaseUrl
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("%s/%s", cfg.S3Endpoint, cfg.S3Bucket)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID, cfg.S3AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})

	return &S3Storage{
		client:     client,
		bucket:     cfg.S3Bucket,
		cdnBaseURL: cdnBaseURL,
	}, nil
}

// Upload кладёт объект в бакет и возвращает публичный URL.
func (s *S3Storage) Upload(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return fmt.Sprintf("%s/%s", s.cdnBaseURL, key), nil
}
