package model

import "errors"

const (
	MaxPostImageSizeBytes = 10 * 1024 * 1024 // 10MB
	MaxPostImageDimension = 1600
	PostImageCacheControl = "public, max-age=31536000" // 1 year
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]string{
	ContentTypeJPEG: ".jpg",
	ContentTypePNG:  ".png",
	ContentTypeGIF:  ".gif",
	ContentTypeWebP: ".webp",
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
	ErrImageUpload      = errors.New("image upload failed")
)

// ImageUpload is an image attached to a submission, already read into memory.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is the stored object: URL is public, Key is the bucket key.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// ExtensionFor returns the file extension used for a content type.
func ExtensionFor(contentType string) string {
	return allowedImageTypes[contentType]
}
