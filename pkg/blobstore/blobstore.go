// Package blobstore provides the S3-compatible object store backing
// document upload/download (C2): originals land at a caller-chosen key
// under the deal's prefix (the upload handler uses
// deals/{deal_id}/documents/{document_id}/{filename}), and
// SignedDownloadURL hands out short-lived URLs rather than proxying bytes
// through the API process.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Config configures the S3-compatible backend. Endpoint and ForcePathStyle
// are set for MinIO/Hetzner-style deployments; left empty, the client talks
// to real AWS S3.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	SignedURLTTL    time.Duration
}

// Store is the S3-backed object store. Put takes its key from the caller
// and returns no key; the upload handler persists that key as the
// Document's blob_path.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	ttl      time.Duration
}

// New builds a Store from Config, following the custom-endpoint-vs-default
// branch used for self-hosted S3-compatible backends.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Endpoint != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "blobstore", fmt.Errorf("load aws config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	ttl := cfg.SignedURLTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		ttl:      ttl,
	}, nil
}

// Put uploads body under key, using the multipart manager.Uploader so large
// PDFs/XLSX files don't need to fit in a single request.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "blobstore", err)
	}
	return nil
}

// SignedDownloadURL returns a time-limited GET URL for key, so API
// responses hand clients a direct-to-storage link instead of streaming the
// file through the application server.
func (s *Store) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", apperrors.Wrap(apperrors.TransientIO, "blobstore", err)
	}
	return req.URL, nil
}

// Exists checks whether key is present; a missing key reports (false, nil).
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.TransientIO, "blobstore", err)
	}
	return true, nil
}

// Get downloads the full object at key into memory, used by the parsing
// stage to read an original document's bytes off of object storage.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "blobstore", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TransientIO, "blobstore", err)
	}
	return body, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "blobstore", err)
	}
	return nil
}
