package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"SongBracket/api/config"
	"SongBracket/api/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Resolver turns stored media references into URLs a browser can fetch.
// Absolute http(s) URLs pass through. "s3://bucket/key" and bare keys are
// presigned. A nil Resolver passes everything through.
type Resolver struct {
	bucket  string
	ttl     time.Duration
	presign *s3.PresignClient
	logger  *slog.Logger
}

// New loads the default AWS credential chain. Without a bucket there is
// nothing to sign and New returns nil.
func New(ctx context.Context, cfg config.Media, logger *slog.Logger) (*Resolver, error) {
	bucket := strings.SplitN(strings.TrimSpace(cfg.Bucket), "/", 2)[0]
	if bucket == "" {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithConfig(awsCfg, bucket, cfg.URLTTL, logger), nil
}

func NewWithConfig(awsCfg aws.Config, bucket string, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &Resolver{
		bucket:  bucket,
		ttl:     ttl,
		presign: s3.NewPresignClient(client),
		logger:  logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, raw string) string {
	raw = strings.TrimSpace(raw)
	if r == nil || raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}

	bucket, key := r.bucket, raw
	if strings.HasPrefix(lower, "s3://") {
		parts := strings.SplitN(raw[len("s3://"):], "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return raw
		}
		bucket, key = parts[0], parts[1]
	}
	key = strings.TrimLeft(key, "/")

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		r.logger.Warn("presign media failed",
			"event", "media_presign_failed",
			"key", key,
			"error", err.Error(),
		)
		return raw
	}
	return req.URL
}

// ResolveRef resolves both media fields of a song reference.
func (r *Resolver) ResolveRef(ctx context.Context, ref models.SongRef) models.SongRef {
	ref.AudioURL = r.Resolve(ctx, ref.AudioURL)
	ref.BackgroundImageURL = r.Resolve(ctx, ref.BackgroundImageURL)
	return ref
}
