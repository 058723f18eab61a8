package handler

import (
	"io"
	"net/http"

	"github.com/astromechza/bloog/pkg/conversion"
	"github.com/astromechza/bloog/pkg/store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultMaxPostBytes  int64 = 1 << 20
	DefaultMaxImageBytes int64 = 32 << 20
)

type (
	// Editor serves the read write api used to manage posts and images
	Editor struct {
		*router
		store         *store.Store
		maxPostBytes  int64
		maxImageBytes int64
	}
	EditorOption func(*Editor)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewEditor(l *zap.Logger, s *store.Store, opts ...EditorOption) http.Handler {
	l = l.Named("editor")
	inst := &Editor{
		router:        newRouter(l, "editor", editorError, statusCode),
		store:         s,
		maxPostBytes:  DefaultMaxPostBytes,
		maxImageBytes: DefaultMaxImageBytes,
	}

	for _, opt := range opts {
		opt(inst)
	}

	inst.handle("GET /{$}", inst.home)
	inst.handle("GET /posts", inst.listPosts)
	inst.handle("POST /posts", inst.createPost)
	inst.handle("GET /posts/{slug}", inst.getPost)
	inst.handle("PUT /posts/{slug}", inst.updatePost)
	inst.handle("DELETE /posts/{slug}", inst.deletePost)
	inst.handle("POST /preview", inst.preview)
	inst.handle("GET /images", inst.listImages)
	inst.handle("POST /images", inst.createImage)
	inst.handle("GET /images/{part}", inst.getImage)
	inst.handle("DELETE /images/{part}", inst.deleteImage)
	inst.handle("GET /debug", inst.debug)
	inst.handle("GET /livez", livez)
	inst.handle("GET /readyz", readyz(s))

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithMaxPostBytes(v int64) EditorOption {
	return func(o *Editor) {
		o.maxPostBytes = v
	}
}

func WithMaxImageBytes(v int64) EditorOption {
	return func(o *Editor) {
		o.maxImageBytes = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *Editor) home(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
	return nil
}

func (h *Editor) listPosts(w http.ResponseWriter, r *http.Request) error {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		return err
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPost(p))
	}
	return writeJSON(w, http.StatusOK, out)
}

func (h *Editor) createPost(w http.ResponseWriter, r *http.Request) error {
	var req PostRequest
	if err := readJSON(w, r, h.maxPostBytes, &req); err != nil {
		return err
	}
	post, err := req.toStore()
	if err != nil {
		return err
	}
	if exists, err := h.store.PostExists(r.Context(), post.Slug); err != nil {
		return err
	} else if exists {
		return errors.Wrapf(store.ErrSlugAlreadyExists, "post %q", post.Slug)
	}

	html, toc, err := h.store.UpsertPost(r.Context(), post, req.Content)
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/posts/"+post.Slug)
	return writeJSON(w, http.StatusCreated, PostReply{Post: newPost(post), HTML: html, TOC: toc})
}

func (h *Editor) getPost(w http.ResponseWriter, r *http.Request) error {
	slug := r.PathValue("slug")
	post, content, err := h.store.GetPostRaw(r.Context(), slug)
	if err != nil {
		return err
	} else if post == nil {
		return errors.Wrapf(store.ErrNotFound, "post %q", slug)
	}

	reply := PostReply{Post: newPost(*post), Content: content}
	if reply.HTML, reply.TOC, err = conversion.Convert(content, nil); err != nil {
		reply.ConversionError = err.Error()
	}
	return writeJSON(w, http.StatusOK, reply)
}

func (h *Editor) updatePost(w http.ResponseWriter, r *http.Request) error {
	var req PostRequest
	if err := readJSON(w, r, h.maxPostBytes, &req); err != nil {
		return err
	}
	req.Slug = r.PathValue("slug")
	post, err := req.toStore()
	if err != nil {
		return err
	}

	html, toc, err := h.store.UpsertPost(r.Context(), post, req.Content)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, PostReply{Post: newPost(post), HTML: html, TOC: toc})
}

func (h *Editor) deletePost(w http.ResponseWriter, r *http.Request) error {
	if err := h.store.DeletePost(r.Context(), r.PathValue("slug")); err != nil {
		return err
	}
	return noContent(w)
}

// preview renders the markdown request body without storing it.
func (h *Editor) preview(w http.ResponseWriter, r *http.Request) error {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxPostBytes))
	if err != nil {
		return errors.Wrapf(errBadRequest, "failed to read incoming request: %s", err)
	}
	html, toc, err := h.store.ConvertWithValidation(r.Context(), string(content))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, PreviewReply{HTML: html, TOC: toc})
}

func (h *Editor) listImages(w http.ResponseWriter, r *http.Request) error {
	images, err := h.store.ListImages(r.Context())
	if err != nil {
		return err
	}
	out := make([]Image, 0, len(images))
	for _, img := range images {
		out = append(out, newImage(img))
	}
	return writeJSON(w, http.StatusOK, out)
}

func (h *Editor) createImage(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes)
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		return errors.Wrapf(errBadRequest, "failed to read multipart form: %s", err)
	}
	slug := r.FormValue("slug")
	if slug == "" {
		return errors.Wrap(errBadRequest, "multipart missing slug field")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return errors.Wrap(errBadRequest, "multipart missing image field")
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrapf(errBadRequest, "failed to read image: %s", err)
	}

	img, err := h.store.CreateImage(r.Context(), slug, raw)
	if err != nil {
		return err
	}
	w.Header().Set("Location", imageURL(img))
	return writeJSON(w, http.StatusCreated, newImage(img))
}

func (h *Editor) getImage(w http.ResponseWriter, r *http.Request) error {
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
	w.Header().Set("Content-Type", img.ContentType())
	_, _ = w.Write(data)
	return nil
}

func (h *Editor) deleteImage(w http.ResponseWriter, r *http.Request) error {
	img, err := store.ParseImage(r.PathValue("part"))
	if err != nil {
		return err
	}
	if err := h.store.DeleteImage(r.Context(), img); err != nil {
		return err
	}
	return noContent(w)
}

func (h *Editor) debug(w http.ResponseWriter, r *http.Request) error {
	objects, err := h.store.ListObjectMeta(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newObjects(objects))
}

// editorError replies with the full error message.
func editorError(l *zap.Logger, w http.ResponseWriter, r *http.Request, code int, err error) {
	if err := writeJSON(w, code, ErrorReply{Error: err.Error()}); err != nil {
		l.Error("failed to write error reply", zap.String("path", r.URL.Path), zap.Error(err))
	}
}
