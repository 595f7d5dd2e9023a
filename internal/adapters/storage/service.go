// Package storage provides a domain-agnostic interface for S3-compatible
// object storage. Invoices use it to archive rendered PDF documents.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL contains a presigned download URL and its expiry.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageService defines the object storage operations modules rely on.
type StorageService interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// UploadFile uploads a file directly to storage and returns the full
	// file key used.
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// GenerateDownloadURL creates a presigned URL for downloading a file.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DownloadFile streams a file from storage. The caller closes the
	// returned reader.
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// DeleteObject removes an object from storage.
	DeleteObject(ctx context.Context, bucket, fileKey string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
