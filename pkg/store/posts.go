package store

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/astromechza/bloog/pkg/metrics"
	"github.com/astromechza/bloog/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Post is a blog post without its content.
type Post struct {
	Slug      string
	Title     string
	Date      time.Time
	Published bool
	Labels    []string
}

func (p Post) Metadata() PostMetadata {
	return PostMetadata{Date: p.Date, Title: p.Title, Published: p.Published}
}

func (p Post) HasLabel(label string) bool {
	for _, l := range p.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// UpsertPost validates and renders content, writes the post and removes stale props and labels of a
// previous version. Nothing is written when validation fails.
func (s *Store) UpsertPost(ctx context.Context, post Post, content string) (html, toc string, err error) {
	defer s.observe("upsert_post", time.Now(), &err)
	l := s.l.With(zap.String("slug", post.Slug))

	if err := ValidatePost(post); err != nil {
		return "", "", err
	}
	html, toc, err = s.ConvertWithValidation(ctx, content)
	if err != nil {
		return "", "", err
	}
	token, err := EncodeMetadata(post.Metadata())
	if err != nil {
		return "", "", err
	}

	if err := s.storage.Put(ctx, s.key(PostContentKey(post.Slug)), []byte(content)); err != nil {
		return "", "", errors.Wrap(err, "failed to write content")
	}
	if err := s.storage.Put(ctx, s.key(PostPropsKey(post.Slug, token)), nil); err != nil {
		return "", "", errors.Wrap(err, "failed to write props")
	}

	labels := make(map[string]struct{}, len(post.Labels))
	g, gctx := errgroup.WithContext(ctx)
	for _, label := range post.Labels {
		if _, ok := labels[label]; ok {
			continue
		}
		labels[label] = struct{}{}
		g.Go(func() error {
			if err := s.storage.Put(gctx, s.key(PostLabelKey(post.Slug, label)), nil); err != nil {
				return errors.Wrapf(err, "failed to write label %q", label)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	prefix := s.key(PostKey(post.Slug))
	objects, err := s.storage.List(ctx, prefix)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to list post for cleanup")
	}
	for _, o := range objects {
		section, value, ok := strings.Cut(strings.TrimPrefix(o.Key, prefix), storage.Delimiter)
		if !ok || strings.Contains(value, storage.Delimiter) {
			continue
		}
		_, keepLabel := labels[value]
		if (section == postPropsPart && value != token) || (section == postLabelsPart && !keepLabel) {
			l.Debug("removing stale key", zap.String("key", o.Key))
			if err := s.storage.Delete(ctx, o.Key); err != nil {
				return "", "", errors.Wrapf(err, "failed to clean up %q", o.Key)
			}
		}
	}

	l.Info("upserted post", zap.Int("bytes", len(content)), zap.Int("labels", len(labels)))
	return html, toc, nil
}

// PostExists reports whether content is stored for slug.
func (s *Store) PostExists(ctx context.Context, slug string) (bool, error) {
	if err := ValidatePathSegment(slug); err != nil {
		return false, errors.Wrapf(ErrInvalidSlug, "post slug %q: %s", slug, err)
	}
	return s.exists(ctx, s.key(PostContentKey(slug)))
}

// GetPostRaw returns the post and its markdown, or a nil post when no content is stored for slug.
func (s *Store) GetPostRaw(ctx context.Context, slug string) (post *Post, content string, err error) {
	defer s.observe("get_post_raw", time.Now(), &err)

	if err := ValidatePathSegment(slug); err != nil {
		return nil, "", errors.Wrapf(ErrInvalidSlug, "post slug %q: %s", slug, err)
	}
	data, err := s.storage.Get(ctx, s.key(PostContentKey(slug)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	} else if err != nil {
		return nil, "", errors.Wrap(err, "failed to read content")
	}

	objects, err := s.storage.List(ctx, s.key(PostKey(slug)))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to list post")
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, s.relative(o.Key))
	}
	p := s.postFromKeys(slug, keys)
	return &p, string(data), nil
}

// ListPosts returns every post sorted by slug. Posts with missing or unreadable props are
// returned with zero metadata.
func (s *Store) ListPosts(ctx context.Context) (out []Post, err error) {
	defer s.observe("list_posts", time.Now(), &err)

	objects, err := s.storage.List(ctx, s.key(PostsPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list posts")
	}
	grouped := map[string][]string{}
	for _, o := range objects {
		key := s.relative(o.Key)
		slug, _, ok := strings.Cut(strings.TrimPrefix(key, PostsPrefix), storage.Delimiter)
		if !ok || slug == "" {
			continue
		}
		grouped[slug] = append(grouped[slug], key)
	}

	out = make([]Post, 0, len(grouped))
	for slug, keys := range grouped {
		out = append(out, s.postFromKeys(slug, keys))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// DeletePost removes every object of the post.
func (s *Store) DeletePost(ctx context.Context, slug string) (err error) {
	defer s.observe("delete_post", time.Now(), &err)

	if err := ValidatePathSegment(slug); err != nil {
		return errors.Wrapf(ErrInvalidSlug, "post slug %q: %s", slug, err)
	}
	n, err := s.deleteByPrefix(ctx, s.key(PostKey(slug)))
	if err != nil {
		return err
	}
	s.l.Info("deleted post", zap.String("slug", slug), zap.Int("objects", n))
	return nil
}

// ValidateAll converts every stored post against the current link targets and returns the
// combined failures.
func (s *Store) ValidateAll(ctx context.Context) (err error) {
	defer s.observe("validate_all", time.Now(), &err)

	links, err := s.ValidLinks(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to build valid links")
	}
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return err
	}

	var (
		errs    error
		invalid int
	)
	for _, p := range posts {
		post, content, err := s.GetPostRaw(ctx, p.Slug)
		if err != nil {
			return err
		}
		if post == nil {
			// labels or props without content
			continue
		}
		if _, _, err := s.convert(content, links); err != nil {
			invalid++
			s.l.Warn("post failed validation", zap.String("slug", p.Slug), zap.Error(err))
			errs = multierr.Append(errs, errors.Wrapf(err, "post %q", p.Slug))
		}
	}
	metrics.InvalidPostsGauge.WithLabelValues().Set(float64(invalid))
	s.l.Info("validated posts", zap.Int("posts", len(posts)), zap.Int("invalid", invalid))
	return errs
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// postFromKeys rebuilds a post from root relative keys below posts/<slug>/.
func (s *Store) postFromKeys(slug string, keys []string) Post {
	post := Post{Slug: slug, Labels: []string{}}
	prefix := PostKey(slug)
	propsFound := false
	for _, key := range keys {
		section, value, ok := strings.Cut(strings.TrimPrefix(key, prefix), storage.Delimiter)
		if !ok || value == "" || strings.Contains(value, storage.Delimiter) {
			continue
		}
		switch section {
		case postLabelsPart:
			post.Labels = append(post.Labels, value)
		case postPropsPart:
			if propsFound {
				continue
			}
			meta, err := DecodeMetadata(value)
			if err != nil {
				s.l.Warn("ignoring unreadable props", zap.String("slug", slug), zap.Error(err))
				continue
			}
			propsFound = true
			post.Date = meta.Date
			post.Title = meta.Title
			post.Published = meta.Published
		}
	}
	sort.Strings(post.Labels)
	return post
}
