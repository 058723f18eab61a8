package conversion_test

import (
	"testing"

	"github.com/astromechza/bloog/pkg/conversion"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Empty(t *testing.T) {
	html, toc, err := conversion.Convert("", nil)
	require.NoError(t, err)
	assert.Equal(t, "", html)
	assert.Equal(t, "", toc)
}

func TestConvert_NumberHeadings(t *testing.T) {
	html, toc, err := conversion.Convert(`
# fine
# also fine
## indented
# unindented
`, nil)
	require.NoError(t, err)
	assert.Equal(t, `<h1><a id="fine" href="#fine"><small>1.</small> fine</a></h1>
<h1><a id="also-fine" href="#also-fine"><small>2.</small> also fine</a></h1>
<h2><a id="indented" href="#indented"><small>2.1</small> indented</a></h2>
<h1><a id="unindented" href="#unindented"><small>3.</small> unindented</a></h1>
`, html)
	assert.Equal(t, `<ul class="toc">
<li style="margin-left: 0em"><a href="#fine"><small>1.</small> fine</a></li>
<li style="margin-left: 0em"><a href="#also-fine"><small>2.</small> also fine</a></li>
<li style="margin-left: 1em"><a href="#indented"><small>2.1</small> indented</a></li>
<li style="margin-left: 0em"><a href="#unindented"><small>3.</small> unindented</a></li>
</ul>
`, toc)
}

func TestConvert_DeepNumbering(t *testing.T) {
	html, _, err := conversion.Convert("# a\n## b\n### c\n### d\n## e\n", nil)
	require.NoError(t, err)
	assert.Contains(t, html, "<small>1.</small> a")
	assert.Contains(t, html, "<small>1.1</small> b")
	assert.Contains(t, html, "<small>1.1.1</small> c")
	assert.Contains(t, html, "<small>1.1.2</small> d")
	assert.Contains(t, html, "<small>1.2</small> e")
}

func TestConvert_BadHeading(t *testing.T) {
	html, toc, err := conversion.Convert("# fine\n# also fine\n## indented\n# unindented\n### not fine", nil)
	require.Error(t, err)
	assert.Equal(t, "bad heading with level h3: heading level should be h1, h0, or h2", err.Error())
	assert.Empty(t, html)
	assert.Empty(t, toc)

	var headingErr *conversion.HeadingLevelError
	require.True(t, errors.As(err, &headingErr))
	assert.Equal(t, 3, headingErr.Level)
	assert.Equal(t, 1, headingErr.Current)
	assert.Equal(t, conversion.KindHeading, conversion.ErrorKind(err))
}

func TestConvert_FirstHeadingMustBeLevelOne(t *testing.T) {
	_, _, err := conversion.Convert("## too deep", nil)
	require.Error(t, err)
	assert.Equal(t, "bad heading with level h2: heading level should be h0, h-1, or h1", err.Error())
}

func TestConvert_HeadingSlug(t *testing.T) {
	html, toc, err := conversion.Convert("# Hello, World 2", nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1><a id=\"hello-world-2\" href=\"#hello-world-2\"><small>1.</small> Hello, World 2</a></h1>\n", html)
	assert.Contains(t, toc, `href="#hello-world-2"`)
}

func TestConvert_HeadingDecoding(t *testing.T) {
	html, toc, err := conversion.Convert("# Tom &amp; Jerry", nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1><a id=\"tom--jerry\" href=\"#tom--jerry\"><small>1.</small> Tom &amp; Jerry</a></h1>\n", html)
	assert.Contains(t, toc, `<a href="#tom--jerry"><small>1.</small> Tom &amp; Jerry</a>`)

	html, _, err = conversion.Convert(`# a \* b`, nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1><a id=\"a--b\" href=\"#a--b\"><small>1.</small> a * b</a></h1>\n", html)
	assert.NotContains(t, html, `\`)
}

func TestConvert_ExternalLinks(t *testing.T) {
	html, _, err := conversion.Convert(`
[external](http://example.com)
[external](https://example.com)
![external](https://example.com)
        `, map[string]struct{}{"/posts/my-first-post": {}})
	require.NoError(t, err)
	assert.Equal(t, `<p><a href="http://example.com">external</a>
<a href="https://example.com">external</a>
<img src="https://example.com" alt="external" /></p>
`, html)
}

func TestConvert_InternalLinks(t *testing.T) {
	valid := map[string]struct{}{"/posts/my-first-post": {}}

	html, _, err := conversion.Convert("[x](/posts/my-first-post)", valid)
	require.NoError(t, err)
	assert.Equal(t, "<p><a href=\"/posts/my-first-post\">x</a></p>\n", html)

	_, _, err = conversion.Convert("[x](/posts/missing)", valid)
	require.Error(t, err)
	assert.Equal(t, "link '/posts/missing' references a relative path which does not exist", err.Error())

	var linkErr *conversion.LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.Equal(t, conversion.KindLink, linkErr.Kind)
	assert.Equal(t, "/posts/missing", linkErr.Destination)

	_, _, err = conversion.Convert("[x](https://example.com)", valid)
	require.NoError(t, err)
}

func TestConvert_BadImage(t *testing.T) {
	_, _, err := conversion.Convert(`
[external](http://example.com)
[external](https://example.com)
[internal](/some-link)
![internal](/does-not-exist)
`, map[string]struct{}{"/some-link": {}})
	require.Error(t, err)
	assert.Equal(t, "image '/does-not-exist' references a relative path which does not exist", err.Error())
	assert.Equal(t, conversion.KindImage, conversion.ErrorKind(err))
}

func TestConvert_EmptyLinkSetDisablesChecks(t *testing.T) {
	html, _, err := conversion.Convert("![internal](/does-not-exist)", map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "<p><img src=\"/does-not-exist\" alt=\"internal\" /></p>\n", html)
}

func TestConvert_BrokenReferences(t *testing.T) {
	_, _, err := conversion.Convert("see [text][missing] here", nil)
	require.Error(t, err)
	assert.Equal(t, "bad link 'missing'", err.Error())

	var refErr *conversion.BrokenReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "missing", refErr.Reference)

	_, _, err = conversion.Convert("see [collapsed][] here", nil)
	require.Error(t, err)
	assert.Equal(t, "bad link 'collapsed'", err.Error())

	html, _, err := conversion.Convert("see [text][Ok]\n\n[ok]: https://example.com\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>see <a href=\"https://example.com\">text</a></p>\n", html)

	_, _, err = conversion.Convert("`[text][missing]`", nil)
	require.NoError(t, err)
}

func TestConvert_BrokenShortcutReferences(t *testing.T) {
	_, _, err := conversion.Convert("see [foo] here", nil)
	require.Error(t, err)
	var refErr *conversion.BrokenReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "foo", refErr.Reference)

	html, _, err := conversion.Convert("see [foo] here\n\n[foo]: https://example.com\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>see <a href=\"https://example.com\">foo</a> here</p>\n", html)

	for name, content := range map[string]string{
		"escaped":  `see \[foo\] here`,
		"blank":    "[ ] todo",
		"footnote": "see [^1] here",
		"inline":   "see [x](https://example.com) and [y](/posts/a) here",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := conversion.Convert(content, nil)
			assert.NoError(t, err)
		})
	}
}

func TestConvert_BrokenReferencesWithEmphasis(t *testing.T) {
	_, _, err := conversion.Convert("see [*a*][missing] here", nil)
	require.Error(t, err)
	assert.Equal(t, "bad link 'missing'", err.Error())

	_, _, err = conversion.Convert("see [**bold** text] here", nil)
	require.Error(t, err)
	assert.Equal(t, "bad link 'bold text'", err.Error())

	html, _, err := conversion.Convert("see [*a*][ok]\n\n[ok]: https://example.com\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>see <a href=\"https://example.com\"><em>a</em></a></p>\n", html)
}

func TestConvert_FirstErrorWins(t *testing.T) {
	valid := map[string]struct{}{"/posts/a": {}}
	_, _, err := conversion.Convert("[x](/missing)\n\n## bad\n\n[y][nope]\n", valid)
	require.Error(t, err)
	assert.Equal(t, "link '/missing' references a relative path which does not exist", err.Error())

	_, _, err = conversion.Convert("[y][nope]\n\n[x](/missing)\n", valid)
	require.Error(t, err)
	assert.Equal(t, "bad link 'nope'", err.Error())
}

func TestConvert_Extensions(t *testing.T) {
	html, _, err := conversion.Convert("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n", nil)
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<del>gone</del>")
}

func TestConvert_Concurrent(t *testing.T) {
	c := conversion.New()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _, _ = c.Convert("# a\n## b\n# c\n", nil)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	html, _, err := c.Convert("# a", nil)
	require.NoError(t, err)
	assert.Contains(t, html, "<small>1.</small> a")
}

func TestBuildValidLinks(t *testing.T) {
	links := conversion.BuildValidLinks([]string{"first"}, []string{"cat.webp", "cat.medium.jpg"})
	assert.Equal(t, map[string]struct{}{
		"/posts/first":           {},
		"/images/cat.webp":       {},
		"/images/cat.medium.jpg": {},
	}, links)
}
