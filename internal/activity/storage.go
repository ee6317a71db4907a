package activity

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/orchardhq/orchard/internal/config"
)

// Storage contains activities that move backup artifacts to and from the
// S3 object store. All activities are no-ops when S3 is not configured.
type Storage struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewStorage creates a new Storage activity struct. Returns a disabled
// Storage when the config carries no S3 endpoint.
func NewStorage(cfg *config.Config, logger zerolog.Logger) *Storage {
	s := &Storage{
		bucket: cfg.S3Bucket,
		logger: logger.With().Str("component", "storage-activity").Logger(),
	}
	if cfg.S3Configured() {
		s.client = s3.New(s3.Options{
			BaseEndpoint: aws.String(cfg.S3Endpoint),
			Region:       cfg.S3Region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
			UsePathStyle: true,
		})
	}
	return s
}

// enabled reports whether remote storage is configured. Kept unexported:
// exported methods on this struct are registered as Temporal activities
// and must return an error.
func (a *Storage) enabled() bool { return a.client != nil }

// RemoteKey returns the object key a named backup artifact is stored
// under.
func RemoteKey(name, ext string) string {
	return "backups/" + name + ext
}

// UploadArtifactParams holds the parameters for UploadArtifact.
type UploadArtifactParams struct {
	FilePath string `json:"file_path"`
	Key      string `json:"key"`
}

// UploadArtifact copies a local artifact to the object store. Returns the
// key under which it was stored, or empty when S3 is not configured.
func (a *Storage) UploadArtifact(ctx context.Context, params UploadArtifactParams) (string, error) {
	if !a.enabled() {
		return "", nil
	}

	f, err := os.Open(params.FilePath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	a.logger.Info().Str("key", params.Key).Str("bucket", a.bucket).Msg("uploading backup artifact")
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(params.Key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", params.Key, err)
	}
	return params.Key, nil
}

// DownloadArtifactParams holds the parameters for DownloadArtifact.
type DownloadArtifactParams struct {
	Key      string `json:"key"`
	FilePath string `json:"file_path"`
}

// DownloadArtifact fetches an object from the store to a local path. Used
// as the restore fallback when the local artifact is gone.
func (a *Storage) DownloadArtifact(ctx context.Context, params DownloadArtifactParams) error {
	if !a.enabled() {
		return fmt.Errorf("object storage not configured")
	}

	a.logger.Info().Str("key", params.Key).Str("bucket", a.bucket).Msg("downloading backup artifact")
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(params.Key),
	})
	if err != nil {
		return fmt.Errorf("get object %s: %w", params.Key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(params.FilePath), 0750); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	f, err := os.Create(params.FilePath)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// DeleteObject removes an object from the store. A missing object is fine.
func (a *Storage) DeleteObject(ctx context.Context, key string) error {
	if !a.enabled() {
		return nil
	}

	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
