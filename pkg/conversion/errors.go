package conversion

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	KindHeading   = "heading"
	KindLink      = "link"
	KindImage     = "image"
	KindReference = "reference"
)

// HeadingLevelError is returned for a heading that jumps more than one level from the previous heading.
type HeadingLevelError struct {
	Level   int
	Current int
}

func (e *HeadingLevelError) Error() string {
	return fmt.Sprintf(
		"bad heading with level h%d: heading level should be h%d, h%d, or h%d",
		e.Level, e.Current, e.Current-1, e.Current+1,
	)
}

// LinkError is returned for a link or image pointing at an internal path that does not exist.
type LinkError struct {
	// Kind is either KindLink or KindImage
	Kind        string
	Destination string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s '%s' references a relative path which does not exist", e.Kind, e.Destination)
}

// BrokenReferenceError is returned for a reference style link without a matching definition.
type BrokenReferenceError struct {
	Reference string
}

func (e *BrokenReferenceError) Error() string {
	return fmt.Sprintf("bad link '%s'", e.Reference)
}

// ErrorKind classifies a conversion error for metrics and logging.
func ErrorKind(err error) string {
	var (
		headingErr   *HeadingLevelError
		linkErr      *LinkError
		referenceErr *BrokenReferenceError
	)
	switch {
	case errors.As(err, &headingErr):
		return KindHeading
	case errors.As(err, &linkErr):
		return linkErr.Kind
	case errors.As(err, &referenceErr):
		return KindReference
	default:
		return "unknown"
	}
}

// IsConversionError reports whether err was produced by validating markdown content.
func IsConversionError(err error) bool {
	return ErrorKind(err) != "unknown"
}
