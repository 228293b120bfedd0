package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	log "github.com/sirupsen/logrus"
)

// DownloadFile fetches bucket/key and writes the object body to localPath.
// Success and failure are reported through logging only, matching the
// fire-and-forget call sites that use it.
func (c *Client) DownloadFile(ctx context.Context, bucket, key, localPath string) {
	fields := log.Fields{"bucket": bucket, "key": key, "path": localPath}

	if err := c.getFile(ctx, bucket, key, localPath); err != nil {
		log.WithError(err).WithFields(fields).Error("download failed")
		return
	}
	log.WithFields(fields).Info("download successful")
}

func (c *Client) getFile(ctx context.Context, bucket, key, localPath string) error {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("fetching %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}

	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	return f.Close()
}
