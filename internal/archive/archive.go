// Package archive keeps raw HTML snapshots of fetched pages in S3-compatible
// object storage. Snapshots are an audit trail; losing one never fails an
// ingestion.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for snapshot operations.
type Client struct {
	minioClient *minio.Client
	bucket      string
	now         func() time.Time
}

// New creates a new snapshot archive client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
		now:         time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PutSnapshot stores the raw HTML of one fetched page. Re-fetching a URL
// stores a new snapshot; the timestamp in the key keeps them apart.
func (c *Client) PutSnapshot(ctx context.Context, pageURL, html string) error {
	objectName := c.snapshotKey(pageURL)
	reader := strings.NewReader(html)

	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName, reader, int64(len(html)), minio.PutObjectOptions{
		ContentType: "text/html",
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the snapshot object keys for a host, oldest first.
func (c *Client) ListSnapshots(ctx context.Context, host string) ([]string, error) {
	prefix := path.Join("snapshots", host) + "/"
	var keys []string

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}

// GetSnapshot reads one snapshot by its object key.
func (c *Client) GetSnapshot(ctx context.Context, key string) (string, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get snapshot: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}

	return string(data), nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// snapshotKey builds the object key snapshots/<host>/<timestamp>-<urlhash>.html.
// The URL hash keeps distinct pages of one host apart even when fetched in
// the same second.
func (c *Client) snapshotKey(pageURL string) string {
	host := "unknown"
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	sum := sha256.Sum256([]byte(pageURL))
	name := fmt.Sprintf("%s-%s.html", c.now().UTC().Format("20060102T150405Z"), hex.EncodeToString(sum[:8]))
	return path.Join("snapshots", host, name)
}
