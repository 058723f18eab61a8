package store

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/astromechza/bloog/pkg/conversion"
	"github.com/astromechza/bloog/pkg/metrics"
	"github.com/astromechza/bloog/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const deleteConcurrency = 8

type (
	// Store keeps posts and images below a root prefix of a storage backend.
	Store struct {
		l       *zap.Logger
		storage storage.Storage
		root    string
		convert ConvertFunc
	}
	Option func(*Store)
	// ConvertFunc renders markdown and validates it against the given internal link targets.
	ConvertFunc func(content string, validLinks map[string]struct{}) (string, string, error)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, s storage.Storage, opts ...Option) *Store {
	inst := &Store{
		l:       l.Named("store"),
		storage: s,
		convert: conversion.Convert,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithRoot places every key below the given prefix.
func WithRoot(v string) Option {
	return func(o *Store) {
		v = strings.Trim(v, storage.Delimiter)
		if v != "" {
			v += storage.Delimiter
		}
		o.root = v
	}
}

func WithConverter(v ConvertFunc) Option {
	return func(o *Store) {
		o.convert = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (s *Store) Root() string {
	return s.root
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Readyz checks that the backend can be listed.
func (s *Store) Readyz(ctx context.Context) error {
	if _, err := s.storage.List(ctx, s.key("not-exist"+storage.Delimiter)); err != nil {
		return errors.Wrap(err, "storage is not reachable")
	}
	return nil
}

// ListObjectMeta returns every object below the root with root relative keys.
func (s *Store) ListObjectMeta(ctx context.Context) (out []storage.ObjectMeta, err error) {
	defer s.observe("list_object_meta", time.Now(), &err)

	objects, err := s.storage.List(ctx, s.root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list objects")
	}
	out = make([]storage.ObjectMeta, 0, len(objects))
	for _, o := range objects {
		o.Key = s.relative(o.Key)
		out = append(out, o)
	}
	return out, nil
}

// ValidLinks returns every internal link target a post may reference.
func (s *Store) ValidLinks(ctx context.Context) (map[string]struct{}, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	images, err := s.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	parts := make([]string, 0, len(images)*3)
	for _, img := range images {
		for _, v := range img.Variants() {
			parts = append(parts, v.PathPart())
		}
	}
	return conversion.BuildValidLinks(slugs, parts), nil
}

// ConvertWithValidation renders content against the current set of posts and images.
func (s *Store) ConvertWithValidation(ctx context.Context, content string) (string, string, error) {
	links, err := s.ValidLinks(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to build valid links")
	}
	html, toc, err := s.convert(content, links)
	if err != nil {
		metrics.ConversionFailureCounter.WithLabelValues(conversion.ErrorKind(err)).Inc()
		return "", "", err
	}
	return html, toc, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (s *Store) key(k string) string {
	return s.root + k
}

func (s *Store) relative(k string) string {
	return strings.TrimPrefix(k, s.root)
}

func (s *Store) observe(operation string, start time.Time, err *error) {
	status := metrics.Status(*err)
	metrics.StoreOperationCounter.WithLabelValues(operation, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// exists reports whether key is present, a missing key is not an error.
func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.storage.Head(ctx, key); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "failed to head %q", key)
	}
	return true, nil
}

// deleteByPrefix removes every object below prefix and fails with ErrNotFound when there are none.
func (s *Store) deleteByPrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := s.storage.List(ctx, prefix)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to list %q", prefix)
	}
	if len(objects) == 0 {
		return 0, errors.Wrapf(ErrNotFound, "nothing below %q", s.relative(prefix))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, o := range objects {
		g.Go(func() error {
			if err := s.storage.Delete(gctx, o.Key); err != nil {
				return errors.Wrapf(err, "failed to delete %q", o.Key)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(objects), nil
}
