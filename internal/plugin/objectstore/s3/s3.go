// Package s3 stores media objects in S3 and signs time-limited GET links for
// the stored location URLs kept on media records.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wildtrack/mediatag-service/internal/config"
	registryobjectstore "github.com/wildtrack/mediatag-service/internal/registry/objectstore"
	"github.com/wildtrack/mediatag-service/internal/tempfiles"
)

func init() {
	registryobjectstore.Register(registryobjectstore.Plugin{
		Name:   "s3",
		Loader: load,
	})
}

func load(ctx context.Context) (registryobjectstore.ObjectStore, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.UploadBucket == "" {
		return nil, fmt.Errorf("s3: upload bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}
	usePathStyle := cfg.S3UsePathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	return &ObjectStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.UploadBucket,
		prefix:    strings.Trim(strings.TrimSpace(cfg.UploadPrefix), "/"),
		region:    awsCfg.Region,
		tempDir:   cfg.ResolvedTempDir(),
	}, nil
}

type ObjectStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	region    string
	tempDir   string
}

// SignURL exchanges a stored location URL for a presigned GET URL.
func (s *ObjectStore) SignURL(ctx context.Context, storedURL string, expiry time.Duration) (string, error) {
	bucket, key, err := splitObjectURL(storedURL)
	if err != nil {
		return "", err
	}
	signed, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3: presign %s: %w", storedURL, err)
	}
	return signed.URL, nil
}

// Put spools data to a temp file so S3 gets a seekable body, then uploads it
// under the configured prefix and returns the stored location URL.
func (s *ObjectStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error) {
	objectKey := key
	if s.prefix != "" {
		objectKey = s.prefix + "/" + key
	}

	spool, err := tempfiles.Spool(s.tempDir, "mediatag-s3-upload-*", data, size)
	if err != nil {
		return "", fmt.Errorf("s3: %w", err)
	}
	defer spool.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          spool,
		ContentLength: aws.Int64(spool.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object %s: %w", objectKey, err)
	}
	return s.objectURL(objectKey), nil
}

func (s *ObjectStore) Delete(ctx context.Context, storedURL string) error {
	bucket, key, err := splitObjectURL(storedURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: delete object %s: %w", storedURL, err)
	}
	return nil
}

func (s *ObjectStore) objectURL(key string) string {
	if s.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

// splitObjectURL extracts bucket and key from a virtual-hosted-style S3 URL
// such as https://bucket.s3.ap-southeast-2.amazonaws.com/path/to/object.
func splitObjectURL(storedURL string) (bucket, key string, err error) {
	u, err := url.Parse(storedURL)
	if err != nil {
		return "", "", fmt.Errorf("s3: parse object URL %q: %w", storedURL, err)
	}
	host := u.Hostname()
	idx := strings.Index(host, ".s3")
	if idx <= 0 {
		return "", "", fmt.Errorf("s3: %q is not an S3 object URL", storedURL)
	}
	bucket = host[:idx]
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3: object URL %q has no key", storedURL)
	}
	return bucket, key, nil
}
