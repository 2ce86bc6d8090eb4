package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"easybills/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileStore places receipt bytes into object storage and returns a URL the
// owner can fetch them from.
type FileStore interface {
	Upload(ctx context.Context, data []byte, contentType, key string) (url string, err error)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// BuildReceiptKey constructs the storage key for an uploaded receipt:
// claims/<claimID>/<timestamp>-<random>-<sanitized-name><ext>.
func BuildReceiptKey(claimID uuid.UUID, fileName string) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)

	ext := filepath.Ext(fileName)
	base := unsafeFileChars.ReplaceAllString(fileName[:len(fileName)-len(ext)], "_")

	return fmt.Sprintf("claims/%s/%d-%s-%s%s",
		claimID, time.Now().UnixMilli(), hex.EncodeToString(buf), base, ext)
}

// S3FileStore stores receipts in an S3 (or S3-compatible) bucket and hands
// out presigned GET URLs.
type S3FileStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	urlTTL  time.Duration
	logger  *zap.Logger
}

func NewS3FileStore(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*S3FileStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3FileStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		urlTTL:  cfg.URLTTL,
		logger:  logger,
	}, nil
}

func (s *S3FileStore) Upload(ctx context.Context, data []byte, contentType, key string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = s.urlTTL })
	if err != nil {
		return "", fmt.Errorf("presign object url: %w", err)
	}

	s.logger.Info("Receipt uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return req.URL, nil
}
