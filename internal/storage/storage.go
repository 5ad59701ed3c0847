// Package storage issues upload targets for product images in S3.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eato/internal/config"
	"eato/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImageStore hands out presigned upload URLs for product images.
type ImageStore interface {
	PresignUpload(ctx context.Context, req model.ImageUploadRequest) (*model.ImageUpload, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// presigner is the subset of *s3.PresignClient used here.
type presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// NewS3Client loads the default AWS credential chain for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3ImageStore presigns PUT requests against a bucket.
type S3ImageStore struct {
	presigner presigner
	bucket    string
	region    string
	prefix    string
	publicURL string
	ttl       time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewS3ImageStore creates an image store backed by client.
func NewS3ImageStore(client *s3.Client, cfg config.S3Config, logger zerolog.Logger) *S3ImageStore {
	logger = logger.With().Str("component", "s3-image-store").Logger()
	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("region", cfg.Region).
		Str("prefix", cfg.Prefix).
		Msg("S3 image store initialised")

	return &S3ImageStore{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		prefix:    cfg.Prefix,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:       cfg.PresignTTL,
		now:       time.Now,
		logger:    logger,
	}
}

// PresignUpload returns a URL the client can PUT the image to, and the URL
// the image will be served from once uploaded.
func (s *S3ImageStore) PresignUpload(ctx context.Context, req model.ImageUploadRequest) (*model.ImageUpload, error) {
	ext, ok := extensions[req.ContentType]
	if !ok {
		return nil, model.Errorf(model.ErrCodeValidationFailed, "unsupported content type %q", req.ContentType)
	}

	key := s.prefix + uuid.NewString() + ext
	signed, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("failed to presign upload")
		return nil, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	s.logger.Info().Str("key", key).Str("filename", req.Filename).Msg("image upload presigned")

	return &model.ImageUpload{
		UploadURL: signed.URL,
		ImageURL:  s.objectURL(key),
		Key:       key,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

func (s *S3ImageStore) objectURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// DisabledImageStore rejects every request. Used when S3 is not configured.
type DisabledImageStore struct{}

func (DisabledImageStore) PresignUpload(context.Context, model.ImageUploadRequest) (*model.ImageUpload, error) {
	return nil, model.ErrStorageDisabled
}
