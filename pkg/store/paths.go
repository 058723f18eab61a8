package store

import (
	"strings"
	"unicode"

	"github.com/astromechza/bloog/pkg/storage"
	"github.com/pkg/errors"
)

// Key layout below the store root:
//
//	posts/<slug>/content                    raw markdown
//	posts/<slug>/props/<encoded-metadata>   zero byte marker
//	posts/<slug>/labels/<label>             zero byte marker
//	images/<slug>.<ext>/<slug>.<ext>        original (svg or webp)
//	images/<slug>.webp/<slug>.medium.jpg    medium
//	images/<slug>.webp/<slug>.thumb.jpg     thumbnail
const (
	PostsPrefix  = "posts" + storage.Delimiter
	ImagesPrefix = "images" + storage.Delimiter

	postContentPart = "content"
	postPropsPart   = "props"
	postLabelsPart  = "labels"
)

func joinKey(parts ...string) string {
	return strings.Join(parts, storage.Delimiter)
}

// PostKey returns the key prefix shared by every object of a post, including the trailing delimiter.
func PostKey(slug string) string {
	return PostsPrefix + slug + storage.Delimiter
}

func PostContentKey(slug string) string {
	return PostKey(slug) + postContentPart
}

func PostPropsKey(slug, token string) string {
	return PostKey(slug) + joinKey(postPropsPart, token)
}

func PostLabelKey(slug, label string) string {
	return PostKey(slug) + joinKey(postLabelsPart, label)
}

// ValidatePathSegment checks that s can be used as a single key segment on every backend.
func ValidatePathSegment(s string) error {
	switch {
	case s == "":
		return errors.New("must not be empty")
	case s == "." || s == "..":
		return errors.Errorf("%q is a reserved segment", s)
	case strings.ContainsAny(s, "/\\"):
		return errors.New("must not contain path separators")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.New("must not contain control characters")
		}
	}
	return nil
}

// ------------------------------------------------------------------------------------------------
// ~ Image
// ------------------------------------------------------------------------------------------------

type Variant int

const (
	VariantSVG Variant = iota
	VariantOriginal
	VariantMedium
	VariantThumbnail
)

const (
	extSVG       = "svg"
	extWebp      = "webp"
	extJpg       = "jpg"
	variantMed   = "medium"
	variantThumb = "thumb"
)

func (v Variant) String() string {
	switch v {
	case VariantSVG:
		return "svg"
	case VariantOriginal:
		return "original"
	case VariantMedium:
		return "medium"
	case VariantThumbnail:
		return "thumbnail"
	default:
		return "unknown"
	}
}

// Image identifies one stored variant of an uploaded image. All variants of a raster image share a slug.
type Image struct {
	Slug    string
	Variant Variant
}

func (i Image) IsSVG() bool {
	return i.Variant == VariantSVG
}

// Original returns the canonical variant: the svg itself or the lossless webp.
func (i Image) Original() Image {
	if i.IsSVG() {
		return i
	}
	return Image{Slug: i.Slug, Variant: VariantOriginal}
}

func (i Image) Medium() Image {
	if i.IsSVG() {
		return i
	}
	return Image{Slug: i.Slug, Variant: VariantMedium}
}

func (i Image) Thumbnail() Image {
	if i.IsSVG() {
		return i
	}
	return Image{Slug: i.Slug, Variant: VariantThumbnail}
}

// Variants lists every key-bearing variant of the image.
func (i Image) Variants() []Image {
	if i.IsSVG() {
		return []Image{i}
	}
	return []Image{i.Original(), i.Medium(), i.Thumbnail()}
}

// PathPart returns the final key segment of the variant.
func (i Image) PathPart() string {
	switch i.Variant {
	case VariantSVG:
		return i.Slug + "." + extSVG
	case VariantMedium:
		return i.Slug + "." + variantMed + "." + extJpg
	case VariantThumbnail:
		return i.Slug + "." + variantThumb + "." + extJpg
	default:
		return i.Slug + "." + extWebp
	}
}

// Prefix returns the key prefix holding every variant of the image.
func (i Image) Prefix() string {
	return ImagesPrefix + i.Original().PathPart() + storage.Delimiter
}

func (i Image) Key() string {
	return i.Prefix() + i.PathPart()
}

func (i Image) ContentType() string {
	switch i.Variant {
	case VariantSVG:
		return "image/svg+xml"
	case VariantOriginal:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func (i Image) String() string {
	return i.PathPart()
}

// ParseImage reverses PathPart.
func ParseImage(part string) (Image, error) {
	if err := ValidatePathSegment(part); err != nil {
		return Image{}, errors.Wrapf(ErrInvalidKey, "image %q: %s", part, err)
	}
	segments := strings.Split(part, ".")
	ext := segments[len(segments)-1]
	rest := segments[:len(segments)-1]

	var img Image
	switch ext {
	case extSVG:
		img = Image{Slug: strings.Join(rest, "."), Variant: VariantSVG}
	case extWebp:
		img = Image{Slug: strings.Join(rest, "."), Variant: VariantOriginal}
	case extJpg:
		if len(rest) == 0 {
			return Image{}, errors.Wrapf(ErrInvalidKey, "image %q: missing variant", part)
		}
		switch rest[len(rest)-1] {
		case variantMed:
			img = Image{Slug: strings.Join(rest[:len(rest)-1], "."), Variant: VariantMedium}
		case variantThumb:
			img = Image{Slug: strings.Join(rest[:len(rest)-1], "."), Variant: VariantThumbnail}
		default:
			return Image{}, errors.Wrapf(ErrInvalidKey, "image %q: invalid variant", part)
		}
	default:
		return Image{}, errors.Wrapf(ErrInvalidKey, "image %q: invalid extension", part)
	}
	if img.Slug == "" {
		return Image{}, errors.Wrapf(ErrInvalidKey, "image %q: missing slug", part)
	}
	return img, nil
}
