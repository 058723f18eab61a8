package store

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by delete operations when nothing exists under the requested prefix
	ErrNotFound = errors.New("not found")
	// ErrInvalidSlug is returned when a post or image slug does not satisfy the slug rules
	ErrInvalidSlug = errors.New("invalid slug")
	// ErrInvalidLabel is returned when a post label is not a safe path segment
	ErrInvalidLabel = errors.New("invalid label")
	// ErrInvalidTitle is returned when a post title is too long to be stored in its metadata key
	ErrInvalidTitle = errors.New("invalid title")
	// ErrSlugAlreadyExists is returned when creating an image over an existing slug
	ErrSlugAlreadyExists = errors.New("slug already exists")
	// ErrInvalidKey is returned when a key segment does not match the image variant grammar
	ErrInvalidKey = errors.New("invalid key")
	// ErrCorruptMetadata is returned when a metadata token cannot be decoded
	ErrCorruptMetadata = errors.New("corrupt metadata")
	// ErrUnsupportedMetadataVersion is returned for metadata tokens carrying an unknown version tag
	ErrUnsupportedMetadataVersion = errors.New("unsupported metadata version")
)

// IsValidationError reports whether err was caused by invalid input rather than by the backend.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrInvalidSlug, ErrInvalidLabel, ErrInvalidTitle, ErrInvalidKey} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
