// Package storage provides S3 object access for listing and scanning.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"

	"github.com/oversec/bucketscan/internal/config"
	"github.com/oversec/bucketscan/pkg/logger"
)

var Module = fx.Module("storage",
	fx.Provide(
		NewAWSConfig,
		NewService,
	),
)

// NewAWSConfig builds the shared AWS SDK config. When cfg.AWS.Endpoint is
// set (MinIO / LocalStack), static credentials and a custom endpoint
// resolver are used so all AWS clients talk to the local stack.
func NewAWSConfig(cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}

	if cfg.AWS.Endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWS.AccessKey,
				cfg.AWS.SecretKey,
				"",
			)),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:               cfg.AWS.Endpoint,
						HostnameImmutable: true,
						SigningRegion:     cfg.AWS.Region,
					}, nil
				},
			)),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awsCfg, nil
}

// ObjectInfo describes a single listed S3 object.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// Page is one page of a bucket listing.
type Page struct {
	Objects   []ObjectInfo
	NextToken string
}

// Service wraps the S3 client with the operations the scanner needs.
type Service struct {
	client *s3.Client
	log    *slog.Logger
}

// NewService creates a new storage service. Path-style addressing is
// enabled when a custom endpoint is configured (required for MinIO).
func NewService(awsCfg aws.Config, cfg *config.Config, log *slog.Logger) *Service {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &Service{
		client: client,
		log:    log.With(logger.Scope("storage")),
	}
}

// ListPage returns one page of objects under bucket/prefix. An empty
// continuationToken starts from the beginning; an empty NextToken in the
// result means the listing is exhausted.
func (s *Service) ListPage(ctx context.Context, bucket, prefix, continuationToken string, pageSize int32) (*Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(pageSize),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	result, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	page := &Page{
		Objects: make([]ObjectInfo, 0, len(result.Contents)),
	}
	for _, obj := range result.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
			ETag: strings.Trim(aws.ToString(obj.ETag), "\""),
		})
	}
	if result.NextContinuationToken != nil {
		page.NextToken = *result.NextContinuationToken
	}

	return page, nil
}

// Head returns the size and content type of an object without fetching it.
func (s *Service) Head(ctx context.Context, bucket, key string) (int64, string, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, "", fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}

	return aws.ToInt64(result.ContentLength), aws.ToString(result.ContentType), nil
}

// Get fetches the full body of an object.
func (s *Service) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body %s/%s: %w", bucket, key, err)
	}

	s.log.Debug("object fetched",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int("size", len(data)),
	)

	return data, nil
}

// Put uploads an object. Used by the seed tool to plant test data.
func (s *Service) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}

	return nil
}

// EnsureBucket creates the bucket if it does not already exist.
func (s *Service) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	s.log.Info("bucket created", slog.String("bucket", bucket))
	return nil
}
