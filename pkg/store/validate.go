package store

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
)

const (
	postSlugMinLength  = 3
	postSlugMaxLength  = 99
	imageSlugMinLength = 3
	imageSlugMaxLength = 59
	// titles ride inside every metadata key, keep those well below backend key limits
	titleMaxLength = 150
)

var (
	pathSegmentRule = validation.By(func(value any) error {
		s, _ := value.(string)
		if err := ValidatePathSegment(s); err != nil {
			return validation.NewError("bloog.path_segment_invalid", err.Error())
		}
		return nil
	})
	singleTokenRule = validation.By(func(value any) error {
		s, _ := value.(string)
		if fields := strings.Fields(s); len(fields) != 1 || fields[0] != s {
			return validation.NewError("bloog.slug_whitespace", "no spaces allowed")
		}
		return nil
	})
)

// ValidatePostSlug checks the slug rules for posts.
func ValidatePostSlug(slug string) error {
	err := validation.Validate(slug,
		validation.Required,
		validation.Length(postSlugMinLength, postSlugMaxLength),
		pathSegmentRule,
		singleTokenRule,
	)
	if err != nil {
		return errors.Wrapf(ErrInvalidSlug, "post slug %q: %s", slug, err)
	}
	return nil
}

// ValidateImageSlug checks the slug rules for images.
func ValidateImageSlug(slug string) error {
	err := validation.Validate(slug,
		validation.Required,
		validation.Length(imageSlugMinLength, imageSlugMaxLength),
		pathSegmentRule,
		singleTokenRule,
	)
	if err != nil {
		return errors.Wrapf(ErrInvalidSlug, "image slug %q: %s", slug, err)
	}
	return nil
}

// ValidateLabel checks that a label can be stored as a marker key.
func ValidateLabel(label string) error {
	if err := validation.Validate(label, validation.Required, pathSegmentRule); err != nil {
		return errors.Wrapf(ErrInvalidLabel, "label %q: %s", label, err)
	}
	return nil
}

// ValidateTitle bounds the title length in bytes.
func ValidateTitle(title string) error {
	if err := validation.Validate(title, validation.Length(0, titleMaxLength)); err != nil {
		return errors.Wrapf(ErrInvalidTitle, "title: %s", err)
	}
	return nil
}

// ValidatePost validates the slug, title and every label of p.
func ValidatePost(p Post) error {
	if err := ValidatePostSlug(p.Slug); err != nil {
		return err
	}
	if err := ValidateTitle(p.Title); err != nil {
		return err
	}
	for _, label := range p.Labels {
		if err := ValidateLabel(label); err != nil {
			return err
		}
	}
	return nil
}
