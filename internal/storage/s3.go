package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config describes the bucket images are uploaded to.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible services such as
	// MinIO. Empty means AWS.
	Endpoint string
	// PublicBaseURL is prefixed to object keys to form the image URL.
	PublicBaseURL string
	// Prefix is prepended to every object key, e.g. "uploads".
	Prefix string
}

// S3Store uploads images to an S3-compatible bucket.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	baseURL  string
}

// NewS3Store loads AWS credentials from the environment and configures an
// uploader for cfg.Bucket.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3 storage: load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Store{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save uploads r as an object and returns its public URL, or the bare key
// when no public base URL is configured.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	key := objectKey(s.prefix, name)
	if key == "" {
		return "", fmt.Errorf("s3 storage: empty key")
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   manager.ReadSeekCloser(r),
		ACL:    s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("s3 storage: upload %s: %w", key, err)
	}

	if s.baseURL == "" {
		return key, nil
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the object behind location. S3 reports success for a
// missing key, which matches the ImageStore contract.
func (s *S3Store) Delete(ctx context.Context, location string) error {
	key := s.keyFromLocation(location)
	if key == "" {
		return fmt.Errorf("s3 storage: %q is not an object location", location)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 storage: delete %s: %w", key, err)
	}
	return nil
}

// keyFromLocation inverts the URL building in Save.
func (s *S3Store) keyFromLocation(location string) string {
	key := location
	if s.baseURL != "" {
		rest, ok := strings.CutPrefix(location, s.baseURL+"/")
		if !ok {
			return ""
		}
		key = rest
	}
	key = strings.TrimLeft(key, "/")
	if s.prefix != "" && !strings.HasPrefix(key, s.prefix+"/") {
		return ""
	}
	return key
}

func objectKey(prefix, name string) string {
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return ""
	}
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
