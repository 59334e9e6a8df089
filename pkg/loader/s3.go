package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3 loader.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3 loads fragments from an S3-compatible bucket. The source is used as
// the object key below Prefix.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 returns a loader reading from the configured bucket.
func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	opts := &minio.Options{Secure: cfg.UseSSL, Region: region}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (l *S3) key(src string) string {
	src = strings.TrimLeft(strings.TrimSpace(src), "/")
	if l.prefix == "" {
		return src
	}
	return l.prefix + "/" + src
}

func (l *S3) Load(ctx context.Context, src string) ([]byte, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, l.key(src), minio.GetObjectOptions{})
	if err != nil {
		return nil, l.translate(src, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxFragmentSize))
	if err != nil {
		return nil, l.translate(src, err)
	}
	return data, nil
}

func (l *S3) translate(src string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return notFound("loader.S3", src)
	}
	return failed("loader.S3", src, err)
}
