// Package storage archives finished artifacts to S3-compatible object
// storage. Like upload, it is optional: the pipeline completes without it.
package storage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"time"

	"prompt2video/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 72 * time.Hour

// Store wraps a MinIO client bound to one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the configured endpoint.
func New(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage connect: %w", err)
	}
	return &Store{client: client, bucket: cfg.Storage.Bucket}, nil
}

// UploadVideo puts the final video under projects/<id>/ and returns a
// presigned download URL.
func (s *Store) UploadVideo(ctx context.Context, projectID, localPath string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	object := fmt.Sprintf("projects/%s/%s", projectID, filepath.Base(localPath))
	_, err := s.client.FPutObject(ctx, s.bucket, object, localPath, minio.PutObjectOptions{
		ContentType: contentType(object),
	})
	if err != nil {
		return "", fmt.Errorf("storage upload: %w", err)
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, object, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("storage presign: %w", err)
	}

	log.Printf("[storage] archived %s", object)
	return presigned.String(), nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage bucket check: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("storage bucket create: %w", err)
		}
		log.Printf("[storage] bucket %q created", s.bucket)
	}
	return nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
