package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	log "github.com/sirupsen/logrus"
)

// UploadConfig controls where UploadArtifacts sends files.
type UploadConfig struct {
	// Upload disables the whole operation when false.
	Upload bool
	// Bucket is the destination bucket for artifact objects.
	Bucket string
}

// UploadArtifacts walks dir recursively and uploads every regular file to the
// configured bucket, keyed by the file's slash-separated path relative to dir.
// It returns one s3://bucket/key URI per uploaded file, in walk order.
//
// When uploading is disabled in the config, or when any walk or SDK error
// occurs, it returns an empty slice; URIs of files uploaded before the error
// are discarded.
func (c *Client) UploadArtifacts(ctx context.Context, dir string, cfg UploadConfig) []string {
	if !cfg.Upload {
		log.Info("upload is disabled in the configuration")
		return []string{}
	}

	uris := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		key, err := objectKey(dir, path)
		if err != nil {
			return err
		}
		if err := c.putFile(ctx, path, cfg.Bucket, key); err != nil {
			return err
		}

		uris = append(uris, fmt.Sprintf("s3://%s/%s", cfg.Bucket, key))
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("bucket", cfg.Bucket).Error("failed to upload artifacts")
		return []string{}
	}

	log.WithField("count", len(uris)).Info("all artifacts have been uploaded")
	return uris
}

// objectKey maps a local file path to its object key: the path relative to
// the uploaded directory root, always slash-separated.
func objectKey(dir, path string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", fmt.Errorf("computing object key for %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

func (c *Client) putFile(ctx context.Context, path, bucket, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading %s to %s/%s: %w", path, bucket, key, err)
	}
	return nil
}
