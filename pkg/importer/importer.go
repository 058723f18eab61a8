package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/astromechza/bloog/pkg/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ErrMissingDate is returned for documents without a date in their front matter.
var ErrMissingDate = errors.New("front matter date is required")

type (
	// Importer writes markdown documents with a yaml front matter into a store.
	Importer struct {
		l         *zap.Logger
		store     *store.Store
		overwrite bool
	}
	Option func(*Importer)
	// Document is a parsed markdown file.
	Document struct {
		Post    store.Post
		Content string
	}
	frontMatter struct {
		Title     string   `yaml:"title"`
		Slug      string   `yaml:"slug"`
		Date      string   `yaml:"date"`
		Published bool     `yaml:"published"`
		Labels    []string `yaml:"labels"`
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, s *store.Store, opts ...Option) *Importer {
	inst := &Importer{
		l:     l.Named("importer"),
		store: s,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithOverwrite replaces existing posts instead of refusing them.
func WithOverwrite(v bool) Option {
	return func(o *Importer) {
		o.overwrite = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Parse reads a markdown document. The slug defaults to fallbackSlug when the front matter has none.
func Parse(source []byte, fallbackSlug string) (Document, error) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return Document{}, errors.Wrap(err, "failed to parse front matter")
	}
	if meta.Date == "" {
		return Document{}, ErrMissingDate
	}
	date, err := time.Parse(dateLayout, meta.Date)
	if err != nil {
		return Document{}, errors.Wrapf(err, "invalid date %q", meta.Date)
	}
	slug := meta.Slug
	if slug == "" {
		slug = fallbackSlug
	}
	labels := make([]string, 0, len(meta.Labels))
	for _, label := range meta.Labels {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return Document{
		Post: store.Post{
			Slug:      slug,
			Title:     meta.Title,
			Date:      date,
			Published: meta.Published,
			Labels:    labels,
		},
		Content: string(body),
	}, nil
}

// ImportFiles imports every file and returns the combined failures. A failing file does not stop
// the remaining ones.
func (i *Importer) ImportFiles(ctx context.Context, paths ...string) error {
	l := i.l.With(zap.String("run_id", uuid.New().String()))

	var errs error
	imported := 0
	for _, path := range paths {
		if err := i.importFile(ctx, l, path); err != nil {
			l.Warn("failed to import file", zap.String("path", path), zap.Error(err))
			errs = multierr.Append(errs, errors.Wrapf(err, "file %q", path))
			continue
		}
		imported++
	}
	l.Info("import finished", zap.Int("files", len(paths)), zap.Int("imported", imported))
	return errs
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (i *Importer) importFile(ctx context.Context, l *zap.Logger, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := Parse(source, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return err
	}

	if !i.overwrite {
		if exists, err := i.store.PostExists(ctx, doc.Post.Slug); err != nil {
			return err
		} else if exists {
			return errors.Wrapf(store.ErrSlugAlreadyExists, "post %q", doc.Post.Slug)
		}
	}
	if _, _, err := i.store.UpsertPost(ctx, doc.Post, doc.Content); err != nil {
		return err
	}
	l.Info("imported post", zap.String("path", path), zap.String("slug", doc.Post.Slug))
	return nil
}
