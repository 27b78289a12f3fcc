package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/prperemyshlev/videotube-users/internal/config"
)

const cacheControl = "public, max-age=31536000, immutable"

var (
	// ErrFileTooLarge is returned when a staged file exceeds the configured limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidImageType is returned for files that are not a supported image format
	ErrInvalidImageType = errors.New("invalid image type")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadOptions selects the destination folder and optional square normalisation
type UploadOptions struct {
	Folder string
	// Square crops and resizes to a Square x Square JPEG when > 0.
	Square int
}

// UploadResult is the public location of a stored object
type UploadResult struct {
	URL string
	Key string
}

type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Uploader stores images in an S3-compatible bucket
type Uploader struct {
	store     objectStore
	bucket    string
	publicURL string
	maxBytes  int64
}

// NewUploader constructs an S3 client for the configured endpoint
func NewUploader(ctx context.Context, cfg config.MediaConfig, maxBytes int64) (*Uploader, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" || cfg.PublicURL == "" {
		return nil, fmt.Errorf("missing media storage configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newUploader(client, cfg.Bucket, cfg.PublicURL, maxBytes), nil
}

func newUploader(store objectStore, bucket, publicURL string, maxBytes int64) *Uploader {
	return &Uploader{
		store:     store,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		maxBytes:  maxBytes,
	}
}

// Upload reads a locally staged image and stores it under opts.Folder.
// The local file is left in place; the caller owns its cleanup.
func (u *Uploader) Upload(ctx context.Context, localPath string, opts UploadOptions) (*UploadResult, error) {
	data, err := u.readFile(localPath)
	if err != nil {
		return nil, err
	}

	contentType := detectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrInvalidImageType
	}

	if opts.Square > 0 {
		data, err = squareJPEG(data, opts.Square)
		if err != nil {
			return nil, err
		}
		contentType, ext = "image/jpeg", ".jpg"
	}

	key := objectKey(opts.Folder, ext)

	_, err = u.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return &UploadResult{URL: u.publicURL + "/" + key, Key: key}, nil
}

// Delete removes a previously uploaded object by key
func (u *Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (u *Uploader) readFile(localPath string) ([]byte, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, u.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}
	if int64(len(data)) > u.maxBytes {
		return nil, ErrFileTooLarge
	}

	return data, nil
}

func detectContentType(data []byte) string {
	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}

func objectKey(folder, ext string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return uuid.NewString() + ext
	}
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)
}
