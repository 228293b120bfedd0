// Package storage uploads experiment artifact directories to S3 and fetches
// single objects back to local disk.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the slice of the S3 client the helpers call. Kept narrow so tests
// can stand in a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client wraps an S3 client for artifact uploads and downloads.
type Client struct {
	s3 s3API
}

type clientConfig struct {
	region      string
	endpoint    string
	pathStyle   bool
	httpTimeout time.Duration
	awsConfig   *aws.Config
}

// Option configures the client during construction.
type Option func(*clientConfig)

// WithRegion sets the AWS region, overriding whatever the credential chain
// resolved.
func WithRegion(region string) Option {
	return func(c *clientConfig) {
		c.region = region
	}
}

// WithEndpoint points the client at a custom S3 endpoint, e.g. Localstack or
// an S3-compatible store.
func WithEndpoint(url string) Option {
	return func(c *clientConfig) {
		c.endpoint = url
	}
}

// WithPathStyle forces path-style bucket addressing. Required by most
// S3-compatible services that do not support virtual hosting.
func WithPathStyle() Option {
	return func(c *clientConfig) {
		c.pathStyle = true
	}
}

// WithHTTPTimeout bounds each HTTP request made by the client.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.httpTimeout = d
	}
}

// WithAWSConfig supplies an already-loaded AWS config instead of the default
// credential chain.
func WithAWSConfig(cfg aws.Config) Option {
	return func(c *clientConfig) {
		c.awsConfig = &cfg
	}
}

// New builds a client from the default AWS credential chain plus any options.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	var cfg aws.Config
	if cc.awsConfig != nil {
		cfg = *cc.awsConfig
	} else {
		var err error
		cfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
	}
	if cc.region != "" {
		cfg.Region = cc.region
	}

	var s3Opts []func(*s3.Options)
	if cc.endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cc.endpoint)
		})
	}
	if cc.pathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cc.httpTimeout > 0 {
		httpClient := &http.Client{Timeout: cc.httpTimeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return &Client{s3: s3.NewFromConfig(cfg, s3Opts...)}, nil
}

// NewFromConfig builds a client from an already-loaded AWS config.
func NewFromConfig(cfg aws.Config) *Client {
	return &Client{s3: s3.NewFromConfig(cfg)}
}
