package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"ContentStudio-server/config"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore uploads finished audio and returns a URL clients can fetch.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64) (string, error)
}

type MinIOStore struct {
	client  *minio.Client
	bucket  string
	presign time.Duration
}

func NewMinIOStore(cfg config.MinIO) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}
	presign := time.Duration(cfg.PresignHours) * time.Hour
	if presign <= 0 {
		presign = 72 * time.Hour
	}
	log.Info("minio client ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &MinIOStore{client: client, bucket: cfg.Bucket, presign: presign}, nil
}

// Upload creates the bucket on first use, stores the object and returns a
// presigned GET URL. size -1 means unknown.
func (s *MinIOStore) Upload(ctx context.Context, objectName string, r io.Reader, size int64) (string, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("create bucket: %w", err)
		}
		log.Info("bucket created", "bucket", s.bucket)
	}

	_, err = s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: ContentTypeFor(objectName),
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio: %w", err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.presign, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	log.Debug("object uploaded", "object", objectName)
	return u.String(), nil
}

// ContentTypeFor maps an audio file name to its MIME type.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	}
	return "application/octet-stream"
}
