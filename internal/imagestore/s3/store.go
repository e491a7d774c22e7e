// Package s3 implements imagestore.Store using an S3-compatible backend
// (AWS S3 or MinIO). Minimal surface area: single bucket, bill image keys
// map to object keys directly.
package s3

import (
	"bytes"
	"context"
	"fmt"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"splitbill/internal/imagestore"
)

var _ imagestore.Store = (*Store)(nil)

// Config holds explicit construction parameters. Credentials come from
// the default AWS credential chain.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; enables custom endpoint (e.g. MinIO)
	PathStyle bool
}

// Store keeps receipt images as objects in one bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// New creates an S3 image store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func key(billID, ext string) string {
	return billID + "." + ext
}

// Save stores the image bytes for a bill.
func (s *Store) Save(ctx context.Context, billID, ext string, data []byte) error {
	if !imagestore.ValidExtension(ext) {
		return fmt.Errorf("unsupported image extension %q", ext)
	}
	k := key(billID, ext)
	contentType := "image/" + ext
	if ext == "jpg" {
		contentType = "image/jpeg"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &k,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("put image: %w", err)
	}
	return nil
}

// Find returns the stored key for the bill's image, trying each known
// extension with a head request.
func (s *Store) Find(ctx context.Context, billID string) (string, bool, error) {
	for _, ext := range imagestore.KnownExtensions {
		k := key(billID, ext)
		if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &k}); err == nil {
			return k, true, nil
		}
	}
	return "", false, nil
}

// Remove deletes the bill's image under any known extension. S3 deletes
// are idempotent, so missing objects are not an error.
func (s *Store) Remove(ctx context.Context, billID string) error {
	for _, ext := range imagestore.KnownExtensions {
		k := key(billID, ext)
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &k}); err != nil {
			return fmt.Errorf("delete image %s: %w", k, err)
		}
	}
	return nil
}

// RemoveAll deletes every object in the bucket.
func (s *Store) RemoveAll(ctx context.Context) error {
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			ContinuationToken: continuation,
		})
		if err != nil {
			return fmt.Errorf("list images: %w", err)
		}
		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: obj.Key}); err != nil {
				return fmt.Errorf("delete image %s: %w", aws.ToString(obj.Key), err)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		continuation = out.NextContinuationToken
	}
}
