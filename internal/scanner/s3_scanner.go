package scanner

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client used for reading scripts.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Scanner reads scripts from S3 objects or prefixes.
type S3Scanner struct {
	client S3API
	logger *zap.Logger
}

// NewS3Client loads the default AWS configuration for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// NewS3Scanner wraps client.
func NewS3Scanner(client S3API, logger *zap.Logger) *S3Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Scanner{client: client, logger: logger}
}

// Scan downloads the object at s3Path, or every script under it when the key
// is empty or ends in "/".
func (s *S3Scanner) Scan(ctx context.Context, s3Path string) ([]Script, error) {
	bucket, key, err := ParseS3Path(s3Path)
	if err != nil {
		return nil, err
	}

	if key != "" && !strings.HasSuffix(key, "/") {
		content, err := s.Download(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return []Script{{Path: s3Path, Content: content}}, nil
	}

	keys, err := s.List(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	scripts := make([]Script, 0, len(keys))
	for _, k := range keys {
		content, err := s.Download(ctx, bucket, k)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, Script{Path: "s3://" + bucket + "/" + k, Content: content})
	}
	return scripts, nil
}

// List returns the script keys under prefix, sorted.
func (s *S3Scanner) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	s.logger.Debug("listing scripts", zap.String("bucket", bucket), zap.String("prefix", prefix))

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") || !IsScriptFile(*obj.Key) {
				continue
			}
			keys = append(keys, *obj.Key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Download returns the content of one object.
func (s *S3Scanner) Download(ctx context.Context, bucket, key string) (string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	defer func() {
		if closeErr := result.Body.Close(); closeErr != nil {
			s.logger.Warn("failed to close S3 object body", zap.Error(closeErr))
		}
	}()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	return string(content), nil
}

// ParseS3Path splits s3://bucket/key. The key may be empty.
func ParseS3Path(s3Path string) (bucket, key string, err error) {
	if !IsS3Path(s3Path) {
		return "", "", fmt.Errorf("invalid S3 path format: %s", s3Path)
	}

	bucket, key, _ = strings.Cut(strings.TrimPrefix(s3Path, "s3://"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("S3 bucket name is required: %s", s3Path)
	}
	return bucket, key, nil
}

// IsS3Path checks if a path is an S3 path
func IsS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}
