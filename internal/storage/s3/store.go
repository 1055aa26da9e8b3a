// Package s3 stores product images in S3 or an S3-compatible object store.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/upload"
)

var _ upload.ImageStore = (*Store)(nil)

// Config describes the bucket images are written to.
type Config struct {
	Bucket string `usage:"Bucket product images are stored in"`
	Region string `default:"us-east-1" usage:"Bucket region"`
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, R2, Spaces).
	Endpoint     string `usage:"Custom S3-compatible endpoint URL"`
	UsePathStyle bool   `default:"false" usage:"Address buckets by path instead of virtual host" flag:"s3-path-style"`
	// PublicBaseURL is the prefix of public object URLs, e.g. a CDN origin.
	// Derived from the bucket and region or endpoint when empty.
	PublicBaseURL   string `usage:"Base URL objects are publicly served from" flag:"s3-public-base-url"`
	AccessKeyID     string `usage:"Static access key; the default AWS credential chain is used when empty" flag:"s3-access-key-id"`
	SecretAccessKey string `usage:"Static secret key" flag:"s3-secret-access-key"`
}

// putObjectAPI is the subset of the S3 client used by Store.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements upload.ImageStore on top of PutObject with a public-read
// ACL.
type Store struct {
	client  putObjectAPI
	creds   aws.CredentialsProvider
	bucket  string
	baseURL string
	// misconfigured is set when the store cannot work at all; every Put
	// fails with it without touching the network.
	misconfigured error
}

// New creates a Store from cfg. A store without a bucket or with half of a
// static key pair is still returned so the service can start; its uploads
// fail with upload.ErrStoreNotConfigured.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return &Store{misconfigured: errors.Wrap(upload.ErrStoreNotConfigured, "bucket is not set")}, nil
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return &Store{misconfigured: errors.Wrap(upload.ErrStoreNotConfigured, "incomplete static credentials")}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return newStore(client, awsCfg.Credentials, cfg), nil
}

func newStore(client putObjectAPI, creds aws.CredentialsProvider, cfg Config) *Store {
	return &Store{
		client:  client,
		creds:   creds,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
	}
}

// Put uploads body under key and returns the object's public URL.
func (s *Store) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error) {
	if s.misconfigured != nil {
		return "", s.misconfigured
	}
	if s.creds == nil {
		return "", errors.Wrap(upload.ErrStoreNotConfigured, "no credentials provider")
	}
	// Resolving credentials up front tells a missing credential apart from a
	// failed transfer; the SDK reports both as opaque operation errors.
	if _, err := s.creds.Retrieve(ctx); err != nil {
		return "", fmt.Errorf("%w: retrieve credentials: %v", upload.ErrStoreNotConfigured, err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		if isCredentialError(err) {
			return "", fmt.Errorf("%w: %v", upload.ErrStoreNotConfigured, err)
		}
		return "", fmt.Errorf("put object %q: %w", key, err)
	}

	return s.baseURL + "/" + escapeKey(key), nil
}

// isCredentialError reports whether the store rejected the request because
// of the credentials it was signed with.
func isCredentialError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidToken", "ExpiredToken", "InvalidClientTokenId":
		return true
	default:
		return false
	}
}

func publicBaseURL(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "" && cfg.UsePathStyle:
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	case cfg.Endpoint != "":
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Host == "" {
			return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		}
		return u.Scheme + "://" + cfg.Bucket + "." + u.Host
	default:
		return "https://" + cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com"
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
