package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

// S3Store keeps evidence images and documents in S3 or an S3-compatible service.
type S3Store struct {
	s3Client *s3.Client
	config   *Config
}

// NewS3Store creates the client. It does not touch the network; call
// EnsureBuckets to verify access.
func NewS3Store(ctx context.Context, cfg *Config) (*S3Store, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("S3 storage is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// MinIO and Backblaze B2 need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	return &S3Store{s3Client: s3Client, config: cfg}, nil
}

func (s *S3Store) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	bucketName := s.config.BucketName(bucket)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"upload-source": "trafficwatch",
		},
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		if isAccessDenied(err) {
			return fmt.Errorf("%w: s3://%s/%s", platform.ErrPermissionDenied, bucketName, key)
		}
		return fmt.Errorf("%w: upload s3://%s/%s: %v", platform.ErrStorage, bucketName, key, err)
	}

	log.Infof("[Storage] Uploaded s3://%s/%s (%d bytes)", bucketName, key, size)
	return nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	bucketName := s.config.BucketName(bucket)
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isAccessDenied(err) {
			return fmt.Errorf("%w: s3://%s/%s", platform.ErrPermissionDenied, bucketName, key)
		}
		return fmt.Errorf("%w: delete s3://%s/%s: %v", platform.ErrStorage, bucketName, key, err)
	}
	log.Infof("[Storage] Deleted s3://%s/%s", bucketName, key)
	return nil
}

func (s *S3Store) PublicURL(bucket, key string) string {
	return s.config.ObjectURL(bucket, key)
}

// EnsureBuckets checks every bucket and creates missing ones outside production.
func (s *S3Store) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		bucketName := s.config.BucketName(bucket)
		_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)})
		if err == nil {
			continue
		}
		if env.IsProd() {
			return fmt.Errorf("bucket %s not accessible: %w", bucketName, err)
		}
		log.Warnf("[Storage] Bucket %s not found, attempting to create it", bucketName)
		if err := s.createBucket(ctx, bucketName); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) createBucket(ctx context.Context, bucketName string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}

	// For AWS regions other than us-east-1, we need to specify the location constraint
	if s.config.EndpointURL == "" && s.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.config.Region),
		}
	}

	if _, err := s.s3Client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	log.Infof("[Storage] Successfully created bucket: %s", bucketName)
	return nil
}

// Ping reports whether every bucket is reachable.
func (s *S3Store) Ping(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		if _, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.config.BucketName(bucket))}); err != nil {
			return fmt.Errorf("bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func isAccessDenied(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return true
		}
	}
	return false
}
