package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/faxcloud/analyzer/internal/config"
)

// Archive stores the original uploaded export files. Every file lands
// under the local uploads directory; when a bucket is configured the
// file is mirrored to S3 as well. A failed mirror is logged, not fatal:
// the local copy is the source of truth.
type Archive struct {
	uploadsDir string
	s3Client   *s3.Client
	bucket     string
}

// New creates an archive rooted at the configured uploads directory.
// The AWS client is only constructed when an S3 bucket is set.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	a := &Archive{uploadsDir: cfg.UploadsDir, bucket: cfg.S3Bucket}
	if cfg.S3Bucket == "" {
		return a, nil
	}

	var awsCfg aws.Config
	var err error
	if profile := cfg.GetAWSProfile(); profile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	a.s3Client = s3.NewFromConfig(awsCfg)
	return a, nil
}

// Checksum returns the hex SHA-256 of a file's contents, used for
// duplicate-upload detection.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

// SaveOriginal writes the original file under uploads/<reportID>/ and
// mirrors it to S3 when configured. Returns the local path.
func (a *Archive) SaveOriginal(ctx context.Context, reportID, filename string, data []byte) (string, error) {
	dir := filepath.Join(a.uploadsDir, reportID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	dest := filepath.Join(dir, "original"+filepath.Ext(filename))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write original: %w", err)
	}

	if a.s3Client != nil {
		key := fmt.Sprintf("reports/%s/%s", reportID, filename)
		_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			log.Printf("[archive] mirror %s to s3://%s/%s failed: %v", reportID, a.bucket, key, err)
		}
	}

	return dest, nil
}
