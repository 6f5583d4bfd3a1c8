package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"lostfound/internal/config"
	domain "lostfound/internal/model"
)

// ImageStore stores post images. Services depend on this instead of S3.
type ImageStore interface {
	UploadPostImage(ctx context.Context, ownerID uuid.UUID, img *domain.ImageUpload) (*domain.UploadResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// ObjectStorage is the subset of the S3 client the media service uses.
type ObjectStorage interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaService handles post image uploads to Cloudflare R2 (or any S3 endpoint).
type MediaService struct {
	storage   ObjectStorage
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicURL == "" {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return NewMediaServiceWithStorage(s3Client, cfg.R2BucketName, cfg.R2PublicURL), nil
}

func NewMediaServiceWithStorage(storage ObjectStorage, bucket, publicURL string) *MediaService {
	return &MediaService{
		storage:   storage,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		now:       time.Now,
	}
}

// UploadPostImage validates type and size, downsizes JPEG/PNG to fit
// MaxPostImageDimension keeping the format, and uploads under a per-user key.
func (s *MediaService) UploadPostImage(ctx context.Context, ownerID uuid.UUID, img *domain.ImageUpload) (*domain.UploadResult, error) {
	if int64(len(img.Data)) > domain.MaxPostImageSizeBytes {
		return nil, domain.ErrFileTooLarge
	}
	contentType := normalizeContentType(img.ContentType, img.Data)
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidImageType
	}

	body, err := fitImage(img.Data, contentType, domain.MaxPostImageDimension)
	if err != nil {
		return nil, err
	}

	key := s.postImageKey(ownerID, img.Filename, contentType)
	if err := s.putObject(ctx, key, body, contentType, domain.PostImageCacheControl); err != nil {
		log.Printf("[MediaService] UploadPostImage FAILED: user=%s key=%s err=%v", ownerID, key, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrImageUpload, err)
	}

	log.Printf("[MediaService] UploadPostImage OK: user=%s key=%s bytes=%d", ownerID, key, len(body))
	return &domain.UploadResult{URL: s.publicURL + "/" + key, Key: key}, nil
}

// postImageKey returns <user_id>/<random token>_<unix millis><ext>.
func (s *MediaService) postImageKey(ownerID uuid.UUID, filename, contentType string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%s_%d%s", ownerID, token, s.now().UnixMilli(), extensionFor(filename, contentType))
}

// extensionFor keeps the uploaded file's extension when it is an image one.
func extensionFor(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return domain.ExtensionFor(contentType)
}

func normalizeContentType(contentType string, data []byte) string {
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// fitImage re-encodes JPEG and PNG only when larger than maxDim. GIF and WebP
// pass through untouched.
func fitImage(data []byte, contentType string, maxDim int) ([]byte, error) {
	var format imaging.Format
	switch contentType {
	case domain.ContentTypeJPEG:
		format = imaging.JPEG
	case domain.ContentTypePNG:
		format = imaging.PNG
	default:
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ErrInvalidImageType
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.ErrInvalidImageType
	}
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadImageUpload loads a multipart file into memory with size and type checks.
func ReadImageUpload(file multipart.File, header *multipart.FileHeader) (*domain.ImageUpload, error) {
	if header.Size > domain.MaxPostImageSizeBytes {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxPostImageSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > domain.MaxPostImageSizeBytes {
		return nil, domain.ErrFileTooLarge
	}

	contentType := normalizeContentType(header.Header.Get("Content-Type"), data)
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidImageType
	}

	return &domain.ImageUpload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// putObject uploads bytes to R2 with metadata.
func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.storage.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// DeleteObject removes an object by key. An empty key is a no-op.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.storage.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("[MediaService] DeleteObject FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	log.Printf("[MediaService] DeleteObject OK: key=%s", key)
	return nil
}
