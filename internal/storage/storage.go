// Package storage uploads interview artifacts to an S3-compatible bucket and
// mints time-limited signed GET URLs for them.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultSignedURLTTL bounds how long an artifact link stays readable.
const DefaultSignedURLTTL = 3600 * time.Second

// Config selects the bucket and how to reach it.
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PathStyle    bool
	SignedURLTTL time.Duration
}

// Client is a thin wrapper over the S3 API scoped to one bucket.
type Client struct {
	bucket  string
	ttl     time.Duration
	api     *s3.Client
	presign *s3.PresignClient
}

// NewClient validates the config and builds the bucket-scoped client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = DefaultSignedURLTTL
	}

	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}

	api := s3.New(opts)
	return &Client{
		bucket:  cfg.Bucket,
		ttl:     cfg.SignedURLTTL,
		api:     api,
		presign: s3.NewPresignClient(api),
	}, nil
}

// Upload stores one object under the given key.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// SignedURL mints a presigned GET link for a stored object. Signing is a
// local operation; it does not verify that the object exists.
func (c *Client) SignedURL(ctx context.Context, key string) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
