package handler

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astromechza/bloog/pkg/storage"
	"github.com/astromechza/bloog/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocloud.dev/blob"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	s := storage.NewBlobStorageFromBucket(bucket, "")
	t.Cleanup(func() { _ = s.Close() })
	return store.New(zaptest.NewLogger(t), s, store.WithRoot("default"))
}

func putPost(t *testing.T, s *store.Store, slug, date string, published bool, content string, labels ...string) {
	t.Helper()
	d, err := time.Parse(dateLayout, date)
	require.NoError(t, err)
	_, _, err = s.UpsertPost(context.Background(), store.Post{
		Slug:      slug,
		Title:     "Title of " + slug,
		Date:      d,
		Published: published,
		Labels:    labels,
	}, content)
	require.NoError(t, err)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))))
	return buf.Bytes()
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestViewer_Index(t *testing.T) {
	s := newTestStore(t)
	putPost(t, s, "old-post", "2019-05-01", true, "# old", "go")
	putPost(t, s, "new-post", "2020-03-01", true, "# new", "go", "web")
	putPost(t, s, "mid-post", "2020-01-01", true, "# mid", "web")
	putPost(t, s, "draft", "2021-01-01", false, "# draft", "go")
	h := NewViewer(zaptest.NewLogger(t), s)

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var reply IndexReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.Len(t, reply.Years, 2)
	assert.Equal(t, 2020, reply.Years[0].Year)
	require.Len(t, reply.Years[0].Posts, 2)
	assert.Equal(t, "new-post", reply.Years[0].Posts[0].Slug)
	assert.Equal(t, "mid-post", reply.Years[0].Posts[1].Slug)
	assert.Equal(t, 2019, reply.Years[1].Year)
	assert.Equal(t, "old-post", reply.Years[1].Posts[0].Slug)
	assert.Equal(t, "2019-05-01", reply.Years[1].Posts[0].Date)

	rec = get(t, h, "/?label=go")
	require.Equal(t, http.StatusOK, rec.Code)
	reply = IndexReply{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "go", reply.Label)
	var slugs []string
	for _, y := range reply.Years {
		for _, p := range y.Posts {
			slugs = append(slugs, p.Slug)
		}
	}
	assert.Equal(t, []string{"new-post", "old-post"}, slugs)
}

func TestViewer_Index_Empty(t *testing.T) {
	h := NewViewer(zaptest.NewLogger(t), newTestStore(t))

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"years":[]}`, rec.Body.String())
}

func TestViewer_GetPost(t *testing.T) {
	s := newTestStore(t)
	putPost(t, s, "my-first-post", "2020-01-02", true, "# Hello\n\n## World\n")
	putPost(t, s, "draft", "2020-01-02", false, "# Draft")
	h := NewViewer(zaptest.NewLogger(t), s)

	rec := get(t, h, "/posts/my-first-post")
	require.Equal(t, http.StatusOK, rec.Code)
	var reply PostReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "my-first-post", reply.Post.Slug)
	assert.Equal(t, "Title of my-first-post", reply.Post.Title)
	assert.Empty(t, reply.Content)
	assert.Contains(t, reply.HTML, `href="#hello"`)
	assert.Contains(t, reply.TOC, `<ul class="toc">`)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/posts/draft").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/posts/missing").Code)
}

func TestViewer_GetImage(t *testing.T) {
	s := newTestStore(t)
	img, err := s.CreateImage(context.Background(), "cat", testPNG(t))
	require.NoError(t, err)
	h := NewViewer(zaptest.NewLogger(t), s)

	rec := get(t, h, "/images/"+img.PathPart())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.Equal(t, DefaultImageCacheControl, rec.Header().Get("Cache-Control"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = get(t, h, "/images/"+img.PathPart(), "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = get(t, h, "/images/"+img.Thumbnail().PathPart())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/images/dog.webp").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/images/cat.png").Code)
}

func TestViewer_Health(t *testing.T) {
	h := NewViewer(zaptest.NewLogger(t), newTestStore(t))

	assert.Equal(t, http.StatusNoContent, get(t, h, "/livez").Code)
	assert.Equal(t, http.StatusNoContent, get(t, h, "/readyz").Code)
}

func TestViewer_ReadOnly(t *testing.T) {
	h := NewViewer(zaptest.NewLogger(t), newTestStore(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/posts/anything", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMatchesETag(t *testing.T) {
	assert.True(t, matchesETag(`"abc"`, `"abc"`))
	assert.True(t, matchesETag(`"x", W/"abc"`, `"abc"`))
	assert.True(t, matchesETag(`*`, `"abc"`))
	assert.False(t, matchesETag(``, `"abc"`))
	assert.False(t, matchesETag(`"abcd"`, `"abc"`))
}
