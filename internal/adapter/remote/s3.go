package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/phygtl/ar-asset-cache/internal/domain"
	"github.com/phygtl/ar-asset-cache/internal/port"
)

// S3Config contains S3 fetcher configuration
type S3Config struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3API is the subset of the S3 client used by the fetcher
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher opens s3://bucket/key identifiers
type S3Fetcher struct {
	client S3API
}

// Ensure S3Fetcher implements port.Fetcher
var _ port.Fetcher = (*S3Fetcher)(nil)

// NewS3Fetcher builds an S3 client from the default credential chain
func NewS3Fetcher(ctx context.Context, cfg *S3Config) (*S3Fetcher, error) {
	if cfg == nil {
		cfg = &S3Config{}
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewS3FetcherWithClient(client), nil
}

// NewS3FetcherWithClient wraps an existing S3 client
func NewS3FetcherWithClient(client S3API) *S3Fetcher {
	return &S3Fetcher{client: client}
}

// ParseS3Identifier splits s3://bucket/key
func ParseS3Identifier(identifier string) (bucket, key string, err error) {
	u, err := url.Parse(identifier)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q", domain.ErrUnsupportedScheme, u.Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: expected s3://bucket/key, got %q", domain.ErrInvalidInput, identifier)
	}
	return u.Host, key, nil
}

// Fetch issues GetObject; the body streams from the response
func (f *S3Fetcher) Fetch(ctx context.Context, identifier string) (*port.RemoteObject, error) {
	bucket, key, err := ParseS3Identifier(identifier)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnreachable, err)
	}

	length := int64(-1)
	if out.ContentLength != nil && *out.ContentLength >= 0 {
		length = *out.ContentLength
	}

	return &port.RemoteObject{
		Body:          out.Body,
		ContentLength: length,
	}, nil
}
