package handler

import (
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"github.com/astromechza/bloog/pkg/conversion"
	"github.com/astromechza/bloog/pkg/store"
	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

const DefaultImageCacheControl = "public, max-age=86400, stale-while-revalidate=300"

type (
	// Viewer serves published posts and images read only
	Viewer struct {
		*router
		store             *store.Store
		imageCacheControl string
	}
	ViewerOption func(*Viewer)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewViewer(l *zap.Logger, s *store.Store, opts ...ViewerOption) http.Handler {
	l = l.Named("viewer")
	inst := &Viewer{
		router:            newRouter(l, "viewer", viewerError, viewerStatusCode),
		store:             s,
		imageCacheControl: DefaultImageCacheControl,
	}

	for _, opt := range opts {
		opt(inst)
	}

	inst.handle("GET /{$}", inst.index)
	inst.handle("GET /posts/{slug}", inst.getPost)
	inst.handle("GET /images/{part}", inst.getImage)
	inst.handle("GET /livez", livez)
	inst.handle("GET /readyz", readyz(s))

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithImageCacheControl(v string) ViewerOption {
	return func(o *Viewer) {
		o.imageCacheControl = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *Viewer) index(w http.ResponseWriter, r *http.Request) error {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		return err
	}
	label := r.URL.Query().Get("label")

	published := make([]store.Post, 0, len(posts))
	for _, p := range posts {
		if p.Published && (label == "" || p.HasLabel(label)) {
			published = append(published, p)
		}
	}
	sort.SliceStable(published, func(i, j int) bool {
		if !published[i].Date.Equal(published[j].Date) {
			return published[i].Date.After(published[j].Date)
		}
		return published[i].Slug > published[j].Slug
	})

	reply := IndexReply{Label: label, Years: []YearReply{}}
	for _, p := range published {
		year := p.Date.Year()
		if n := len(reply.Years); n == 0 || reply.Years[n-1].Year != year {
			reply.Years = append(reply.Years, YearReply{Year: year})
		}
		last := &reply.Years[len(reply.Years)-1]
		last.Posts = append(last.Posts, newPost(p))
	}
	return writeJSON(w, http.StatusOK, reply)
}

func (h *Viewer) getPost(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")
	post, content, err := h.store.GetPostRaw(r.Context(), slug)
	if err != nil {
		return err
	} else if post == nil || !post.Published {
		return errors.Wrapf(store.ErrNotFound, "post %q", slug)
	}

	// links were checked when the post was written
	html, toc, err := conversion.Convert(content, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to render post %q", slug)
	}
	return writeJSON(w, http.StatusOK, PostReply{Post: newPost(*post), HTML: html, TOC: toc})
}

func (h *Viewer) getImage(w http.ResponseWriter, r *http.Request) error {
	img, err := store.ParseImage(r.PathValue("part"))
	if err != nil {
		return err
	}
	data, found, err := h.store.GetImageRaw(r.Context(), img)
	if err != nil {
		return err
	} else if !found {
		return errors.Wrapf(store.ErrNotFound, "image %q", img.PathPart())
	}

	sum := blake3.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", h.imageCacheControl)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	w.Header().Set("Content-Type", img.ContentType())
	_, _ = w.Write(data)
	return nil
}

func matchesETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

// viewerStatusCode hides everything but missing resources behind an internal error.
func viewerStatusCode(err error) int {
	switch code := statusCode(err); code {
	case http.StatusNotFound, http.StatusBadRequest:
		return http.StatusNotFound
	case http.StatusServiceUnavailable:
		return code
	default:
		return http.StatusInternalServerError
	}
}

func viewerError(l *zap.Logger, w http.ResponseWriter, r *http.Request, code int, err error) {
	httputils.ServerError(l, w, r, code, err)
}

func livez(w http.ResponseWriter, _ *http.Request) error {
	return noContent(w)
}

func readyz(s *store.Store) routeFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if err := s.Readyz(r.Context()); err != nil {
			return errors.Wrap(errUnavailable, err.Error())
		}
		return noContent(w)
	}
}
