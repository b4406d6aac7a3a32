// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultRegion = "us-east-1"
	xpiMediaType  = "application/x-xpinstall"
)

type (
	// S3Config describes an S3-compatible endpoint.
	S3Config struct {
		Endpoint  string
		Region    string
		AccessKey string
		SecretKey string
		Bucket    string
		Prefix    string
		UseSSL    bool
	}

	// S3Sink uploads files to a bucket. The bucket is created on first use
	// when it does not exist.
	S3Sink struct {
		client objectStore
		bucket string
		prefix string
		region string

		initOnce sync.Once
		initErr  error
	}

	// objectStore is the part of *minio.Client the sink uses.
	objectStore interface {
		BucketExists(ctx context.Context, bucketName string) (bool, error)
		MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
		FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	}
)

// NewS3Sink creates an S3Sink from cfg.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	// Without keys the requests go unsigned, for public buckets.
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	creds := credentials.NewStatic("", "", "", credentials.SignatureAnonymous)
	switch {
	case access != "" && secret != "":
		creds = credentials.NewStaticV4(access, secret, "")
	case access != "" || secret != "":
		return nil, fmt.Errorf("s3 access key and secret key must be set together")
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return newS3Sink(client, cfg.Bucket, cfg.Prefix, region)
}

func newS3Sink(client objectStore, bucket, prefix, region string) (*S3Sink, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		region: region,
	}, nil
}

// Store uploads srcPath as <prefix>/<name> and removes the local file.
func (s *S3Sink) Store(ctx context.Context, srcPath, name string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := s.objectKey(name)
	if _, err := s.client.FPutObject(ctx, s.bucket, key, srcPath, minio.PutObjectOptions{
		ContentType: xpiMediaType,
	}); err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("removing %s: %w", srcPath, err)
	}
	return fmt.Sprintf("%s://%s/%s", s3Scheme, s.bucket, key), nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Sink) objectKey(name string) string {
	name = strings.TrimLeft(name, "/")
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
