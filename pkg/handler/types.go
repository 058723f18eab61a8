package handler

import (
	"strings"
	"time"

	"github.com/astromechza/bloog/pkg/storage"
	"github.com/astromechza/bloog/pkg/store"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type (
	// Post is the wire representation of a store.Post
	Post struct {
		Slug      string   `json:"slug"`
		Title     string   `json:"title"`
		Date      string   `json:"date"`
		Published bool     `json:"published"`
		Labels    []string `json:"labels"`
	}
	// PostRequest creates or replaces a post
	PostRequest struct {
		Post
		Content string `json:"content"`
	}
	// PostReply carries a post together with its rendered html
	PostReply struct {
		Post    Post   `json:"post"`
		Content string `json:"content,omitempty"`
		HTML    string `json:"html"`
		TOC     string `json:"toc"`

		// ConversionError is set when stored content no longer renders
		ConversionError string `json:"conversionError,omitempty"`
	}
	PreviewReply struct {
		HTML string `json:"html"`
		TOC  string `json:"toc"`
	}
	IndexReply struct {
		Label string      `json:"label,omitempty"`
		Years []YearReply `json:"years"`
	}
	YearReply struct {
		Year  int    `json:"year"`
		Posts []Post `json:"posts"`
	}
	// Image lists the urls of every variant of an image
	Image struct {
		Slug      string `json:"slug"`
		Original  string `json:"original"`
		Medium    string `json:"medium"`
		Thumbnail string `json:"thumbnail"`
	}
	Object struct {
		Key          string    `json:"key"`
		Size         int64     `json:"size"`
		LastModified time.Time `json:"lastModified"`
	}
	ErrorReply struct {
		Error string `json:"error"`
	}
)

func newPost(p store.Post) Post {
	labels := p.Labels
	if labels == nil {
		labels = []string{}
	}
	return Post{
		Slug:      p.Slug,
		Title:     p.Title,
		Date:      p.Date.Format(dateLayout),
		Published: p.Published,
		Labels:    labels,
	}
}

// toStore parses the wire post. Empty labels are dropped.
func (p Post) toStore() (store.Post, error) {
	date, err := time.Parse(dateLayout, p.Date)
	if err != nil {
		return store.Post{}, errors.Wrapf(errBadRequest, "invalid date %q", p.Date)
	}
	labels := make([]string, 0, len(p.Labels))
	for _, label := range p.Labels {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return store.Post{
		Slug:      p.Slug,
		Title:     p.Title,
		Date:      date,
		Published: p.Published,
		Labels:    labels,
	}, nil
}

func newImage(img store.Image) Image {
	return Image{
		Slug:      img.Slug,
		Original:  imageURL(img.Original()),
		Medium:    imageURL(img.Medium()),
		Thumbnail: imageURL(img.Thumbnail()),
	}
}

func imageURL(img store.Image) string {
	return "/images/" + img.PathPart()
}

func newObjects(objects []storage.ObjectMeta) []Object {
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		out = append(out, Object{Key: o.Key, Size: o.Size, LastModified: o.LastModified})
	}
	return out
}
