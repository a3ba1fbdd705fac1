package storage

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/env"
)

// Config holds the S3 settings for evidence and document blobs.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	EndpointURL     string // Optional for S3-compatible services
	PublicURL       string // Base URL objects are served from
	BucketPrefix    string
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicURL:       env.GetEnv("S3_PUBLIC_URL", ""),
		BucketPrefix:    env.GetEnv("S3_BUCKET_PREFIX", ""),
		Enabled:         env.GetEnv("S3_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 is enabled")
		}
	}

	return config, nil
}

func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// BucketName maps a logical bucket (complaint-images, user-documents) to
// the configured S3 bucket.
func (c *Config) BucketName(bucket string) string {
	return c.BucketPrefix + bucket
}

// ObjectURL is the public URL of an object.
func (c *Config) ObjectURL(bucket, key string) string {
	base := strings.TrimRight(c.PublicURL, "/")
	if base == "" {
		base = strings.TrimRight(c.EndpointURL, "/")
	}
	if base == "" {
		return "https://" + c.BucketName(bucket) + ".s3." + c.Region + ".amazonaws.com/" + key
	}
	return base + "/" + c.BucketName(bucket) + "/" + key
}
