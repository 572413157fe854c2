package usecase

import (
	"fmt"
	"strings"

	"github.com/marketworks/listing-service/internal/listing/domain"
)

const (
	// MaxImageSize is the largest accepted upload, 5 MiB.
	MaxImageSize = 5 * 1024 * 1024
	// MaxAdditionalImages caps the non-preview image set of a listing.
	MaxAdditionalImages = 10
)

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"avif": true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/avif": true,
}

// ImageValidator is a stateless rule engine for candidate image uploads.
// Validation is a pure function of the upload's bytes and declared metadata.
type ImageValidator struct{}

func NewImageValidator() *ImageValidator {
	return &ImageValidator{}
}

// Validate runs the full rule chain in order, short-circuiting on the first
// failure: presence, size, filename, extension, declared content type, and
// finally the magic-byte signature.
func (v *ImageValidator) Validate(upload *domain.Upload) domain.ValidationResult {
	if upload.IsEmpty() {
		return domain.InvalidResult("Image file is required")
	}

	if len(upload.Data) > MaxImageSize {
		return domain.InvalidResult(fmt.Sprintf("Image size exceeds maximum allowed size of %d MB", MaxImageSize/(1024*1024)))
	}

	if strings.TrimSpace(upload.Filename) == "" {
		return domain.InvalidResult("Invalid filename")
	}

	if !hasValidExtension(upload.Filename) {
		return domain.InvalidResult("Invalid image format. Allowed formats: jpg, jpeg, png, webp, avif")
	}

	if !allowedContentTypes[strings.ToLower(upload.ContentType)] {
		return domain.InvalidResult("Invalid image type. Allowed types: image/jpeg, image/png, image/webp, image/avif")
	}

	if !hasImageSignature(upload.Data) {
		return domain.InvalidResult("File is not a valid image")
	}

	return domain.ValidResult()
}

// ValidatePreview requires a non-empty upload before applying the standard
// rule chain.
func (v *ImageValidator) ValidatePreview(upload *domain.Upload) domain.ValidationResult {
	if upload.IsEmpty() {
		return domain.InvalidResult("Preview image is required")
	}
	return v.Validate(upload)
}

// ValidateBatch checks that at most maxCount uploads are non-empty and then
// validates each non-empty upload in order, returning the first failure. A
// nil or empty batch is valid.
func (v *ImageValidator) ValidateBatch(uploads []*domain.Upload, maxCount int) domain.ValidationResult {
	if len(uploads) == 0 {
		return domain.ValidResult()
	}

	nonEmpty := 0
	for _, u := range uploads {
		if !u.IsEmpty() {
			nonEmpty++
		}
	}
	if nonEmpty > maxCount {
		return domain.InvalidResult(fmt.Sprintf("Maximum %d additional images allowed", maxCount))
	}

	for _, u := range uploads {
		if u.IsEmpty() {
			continue
		}
		if result := v.Validate(u); !result.Valid {
			return result
		}
	}

	return domain.ValidResult()
}

func hasValidExtension(filename string) bool {
	dot := strings.LastIndexByte(filename, '.')
	if dot == -1 || dot == len(filename)-1 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[dot+1:])]
}

// hasImageSignature accepts the upload when its leading bytes match ANY known
// image family, independent of the declared extension and content type.
func hasImageSignature(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return isJPEG(data) || isPNG(data) || isWEBP(data) || isAVIF(data)
}

// JPEG magic bytes: FF D8 FF
func isJPEG(data []byte) bool {
	return len(data) >= 3 &&
		data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}

// PNG magic bytes: 89 50 4E 47 0D 0A 1A 0A
func isPNG(data []byte) bool {
	return len(data) >= 8 &&
		data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
}

// WEBP: "RIFF" at bytes 0-3 and "WEBP" at bytes 8-11.
func isWEBP(data []byte) bool {
	return len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P'
}

// AVIF: "ftyp" box at bytes 4-7 with brand "avif" or "avis" at bytes 8-11.
func isAVIF(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if data[4] != 'f' || data[5] != 't' || data[6] != 'y' || data[7] != 'p' {
		return false
	}
	return data[8] == 'a' && data[9] == 'v' && data[10] == 'i' &&
		(data[11] == 'f' || data[11] == 's')
}
