package conversion

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Converter renders markdown posts to html while validating headings and links.
// It holds no per call state and can be shared.
type Converter struct {
	md goldmark.Markdown
}

var defaultConverter = New()

func New() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Strikethrough,
				extension.DefinitionList,
				extension.Footnote,
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
				html.WithXHTML(),
			),
		),
	}
}

// Convert renders content with the shared default converter.
func Convert(content string, validLinks map[string]struct{}) (string, string, error) {
	return defaultConverter.Convert(content, validLinks)
}

// Convert returns the html and table of contents for content. Internal links and images must
// point at a member of validLinks unless validLinks is empty. The first problem found in document
// order is returned and no html is produced in that case.
func (c *Converter) Convert(content string, validLinks map[string]struct{}) (string, string, error) {
	source := []byte(content)
	pc := parser.NewContext()
	doc := c.md.Parser().Parse(text.NewReader(source), parser.WithContext(pc))

	st := newWalkState(source, pc, validLinks)
	if err := ast.Walk(doc, st.visit); err != nil {
		return "", "", errors.Wrap(err, "failed to walk markdown")
	}
	st.flushText()
	if st.err != nil {
		return "", "", st.err
	}
	st.applyReplacements()

	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, source, doc); err != nil {
		return "", "", errors.Wrap(err, "failed to render markdown")
	}
	return buf.String(), st.tableOfContents(), nil
}

// BuildValidLinks returns the internal link targets for the given post slugs and image path parts.
func BuildValidLinks(postSlugs []string, imageParts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(postSlugs)+len(imageParts))
	for _, slug := range postSlugs {
		out["/posts/"+slug] = struct{}{}
	}
	for _, part := range imageParts {
		out["/images/"+part] = struct{}{}
	}
	return out
}
