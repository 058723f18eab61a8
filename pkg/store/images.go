package store

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/astromechza/bloog/pkg/imaging"
	"github.com/astromechza/bloog/pkg/metrics"
	"github.com/astromechza/bloog/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CreateImage stores raw under slug. Raster images are stored as a lossless webp original plus jpeg
// medium and thumbnail variants, svg documents are stored as they are. The returned image is the
// original variant.
func (s *Store) CreateImage(ctx context.Context, slug string, raw []byte) (img Image, err error) {
	defer s.observe("create_image", time.Now(), &err)

	if err := ValidateImageSlug(slug); err != nil {
		return Image{}, err
	}
	for _, candidate := range []Image{{Slug: slug, Variant: VariantOriginal}, {Slug: slug, Variant: VariantSVG}} {
		found, err := s.exists(ctx, s.key(candidate.Key()))
		if err != nil {
			return Image{}, err
		} else if found {
			return Image{}, errors.Wrapf(ErrSlugAlreadyExists, "image %q", candidate.PathPart())
		}
	}

	variants, err := imaging.Process(raw)
	if err != nil {
		return Image{}, err
	}

	if variants.Kind == imaging.KindSVG {
		img = Image{Slug: slug, Variant: VariantSVG}
		if err := s.putImage(ctx, img, variants.Original); err != nil {
			return Image{}, err
		}
		s.l.Info("created svg image", zap.String("slug", slug), zap.Int("bytes", len(raw)))
		return img, nil
	}

	img = Image{Slug: slug, Variant: VariantOriginal}
	for _, v := range []struct {
		img  Image
		data []byte
	}{
		{img: img, data: variants.Original},
		{img: img.Medium(), data: variants.Medium},
		{img: img.Thumbnail(), data: variants.Thumbnail},
	} {
		if err := s.putImage(ctx, v.img, v.data); err != nil {
			return Image{}, err
		}
	}
	s.l.Info("created image",
		zap.String("slug", slug),
		zap.String("format", variants.Format),
		zap.Int("width", variants.Width),
		zap.Int("height", variants.Height),
	)
	return img, nil
}

// DeleteImage removes every variant of img.
func (s *Store) DeleteImage(ctx context.Context, img Image) (err error) {
	defer s.observe("delete_image", time.Now(), &err)

	n, err := s.deleteByPrefix(ctx, s.key(img.Prefix()))
	if err != nil {
		return err
	}
	s.l.Info("deleted image", zap.String("image", img.Original().PathPart()), zap.Int("objects", n))
	return nil
}

// ImageExists reports whether the variant is stored.
func (s *Store) ImageExists(ctx context.Context, img Image) (bool, error) {
	return s.exists(ctx, s.key(img.Key()))
}

// GetImageRaw returns the bytes of the variant and false when it is not stored.
func (s *Store) GetImageRaw(ctx context.Context, img Image) (data []byte, found bool, err error) {
	defer s.observe("get_image_raw", time.Now(), &err)

	data, err = s.storage.Get(ctx, s.key(img.Key()))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read %q", img.PathPart())
	}
	return data, true, nil
}

// ListImages returns the original variant of every stored image, newest first.
func (s *Store) ListImages(ctx context.Context) (out []Image, err error) {
	defer s.observe("list_images", time.Now(), &err)

	objects, err := s.storage.List(ctx, s.key(ImagesPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list images")
	}
	type entry struct {
		img      Image
		modified time.Time
	}
	entries := make([]entry, 0, len(objects))
	for _, o := range objects {
		parts := strings.Split(strings.TrimPrefix(s.relative(o.Key), ImagesPrefix), storage.Delimiter)
		// originals are stored as <part>/<part>
		if len(parts) != 2 || parts[0] != parts[1] {
			continue
		}
		img, err := ParseImage(parts[1])
		if err != nil {
			s.l.Debug("ignoring unexpected image key", zap.String("key", o.Key), zap.Error(err))
			continue
		}
		entries = append(entries, entry{img: img, modified: o.LastModified})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].modified.Equal(entries[j].modified) {
			return entries[i].modified.After(entries[j].modified)
		}
		return entries[i].img.Slug < entries[j].img.Slug
	})

	out = make([]Image, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.img)
	}
	return out, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (s *Store) putImage(ctx context.Context, img Image, data []byte) error {
	if err := s.storage.Put(ctx, s.key(img.Key()), data); err != nil {
		return errors.Wrapf(err, "failed to write %q", img.PathPart())
	}
	metrics.ImageBytesCounter.WithLabelValues(img.Variant.String()).Add(float64(len(data)))
	return nil
}
