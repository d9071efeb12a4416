package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"freeshare/internal/config"
)

// DefaultUploadTTL bounds how long a presigned upload URL stays valid.
const DefaultUploadTTL = 15 * time.Minute

var ErrUnsupportedContentType = errors.New("unsupported content type")

// Upload is what a client needs to PUT an image and reference it on an item.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	ImageURL  string    `json:"imageUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Uploader issues presigned PUT URLs for item images.
type S3Uploader struct {
	presign   presignAPI
	bucket    string
	publicURL string
	ttl       time.Duration
	now       func() time.Time
	newKey    func() string
}

// NewS3Uploader builds an uploader from the S3_* settings.
func NewS3Uploader(ctx context.Context, cfg config.Config) (*S3Uploader, error) {
	if !cfg.S3Enabled() {
		return nil, errors.New("S3_BUCKET is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		// buildable so AWS_CA_BUNDLE can still install its root CAs
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(30 * time.Second)),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.S3Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3Uploader{
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.S3Bucket,
		publicURL: publicBaseURL(cfg, endpoint),
		ttl:       DefaultUploadTTL,
		now:       time.Now,
		newKey:    uuid.NewString,
	}, nil
}

func publicBaseURL(cfg config.Config, endpoint string) string {
	switch {
	case cfg.S3PublicURL != "":
		return strings.TrimRight(cfg.S3PublicURL, "/")
	case endpoint != "":
		return endpoint + "/" + cfg.S3Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}
}

// PresignUpload returns a PUT URL for a new object under items/.
func (u *S3Uploader) PresignUpload(ctx context.Context, contentType string) (Upload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageExtension(contentType)
	if !ok {
		return Upload{}, ErrUnsupportedContentType
	}

	key := "items/" + u.newKey() + ext
	req, err := u.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(u.ttl))
	if err != nil {
		return Upload{}, fmt.Errorf("presign put: %w", err)
	}

	return Upload{
		UploadURL: req.URL,
		ImageURL:  u.publicURL + "/" + key,
		Key:       key,
		ExpiresAt: u.now().UTC().Add(u.ttl),
	}, nil
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/avif": ".avif",
}

func imageExtension(contentType string) (string, bool) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", false
	}
	if ext, ok := imageExtensions[contentType]; ok {
		return ext, true
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0], true
	}
	return "", false
}
