package pickup

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the subset of the S3 client used by the artifact store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store implements Store for AWS S3.
type s3Store struct {
	client  PutObjectAPI
	bucket  string
	region  string
	prefix  string
	baseURL string
	logger  zerolog.Logger
}

// NewS3Store creates a Store that uploads artifacts to bucket using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, bucket, region, prefix, baseURL string, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "artifact-s3-store").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 artifact store initialised")

	return NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, region, prefix, baseURL, logger), nil
}

// NewS3StoreWithClient creates an S3 Store around an existing client.
func NewS3StoreWithClient(client PutObjectAPI, bucket, region, prefix, baseURL string, logger zerolog.Logger) Store {
	return &s3Store{
		client:  client,
		bucket:  bucket,
		region:  region,
		prefix:  prefix,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Put uploads data under prefix+key.
func (s *s3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := s.prefix + key

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("key", objectKey).
		Msg("artifact uploaded to S3")

	if s.baseURL != "" {
		return s.baseURL + "/" + objectKey, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectKey), nil
}

// fallbackStore tries S3 first, then falls back to the local store.
type fallbackStore struct {
	primary   Store
	secondary Store
	enabled   bool
	logger    zerolog.Logger
}

// NewFallbackStore creates a Store that uploads to primary when enabled and falls
// back to secondary on failure. If primary is nil only secondary is used.
func NewFallbackStore(primary, secondary Store, enabled bool, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary:   primary,
		secondary: secondary,
		enabled:   enabled,
		logger:    logger.With().Str("component", "artifact-fallback-store").Logger(),
	}
}

// Put attempts the primary store first, then the secondary.
func (s *fallbackStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.enabled && s.primary != nil {
		url, err := s.primary.Put(ctx, key, data, contentType)
		if err == nil {
			return url, nil
		}

		s.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("failed to store artifact in S3, falling back to local file system")
	} else {
		s.logger.Debug().
			Bool("s3_enabled", s.enabled).
			Bool("has_s3_store", s.primary != nil).
			Msg("S3 disabled or not configured, using local file system")
	}

	return s.secondary.Put(ctx, key, data, contentType)
}
