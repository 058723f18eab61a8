package conversion

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/astromechza/bloog/pkg/utils"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// matches bracketed text left behind by the parser: full [text][ref], collapsed [text][] and
// shortcut [text]. A trailing ( marks a malformed inline link rather than a reference.
var referencePattern = regexp.MustCompile(`\[([^\[\]]+)\](\[([^\[\]]*)\]|\()?`)

type (
	replacement struct {
		parent ast.Node
		old    ast.Node
		new    ast.Node
	}
	walkState struct {
		source     []byte
		pc         parser.Context
		validLinks map[string]struct{}

		level         int
		numbering     []int
		pendingPrefix string
		toc           strings.Builder
		replacements  []replacement

		// text of the current block, checked for unresolved references. Emphasis does not break
		// a run so [*a*][b] is seen whole.
		textRun bytes.Buffer

		err error
	}
)

func newWalkState(source []byte, pc parser.Context, validLinks map[string]struct{}) *walkState {
	return &walkState{
		source:     source,
		pc:         pc,
		validLinks: validLinks,
	}
}

func (s *walkState) record(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *walkState) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if t, ok := n.(*ast.Text); ok {
		if entering {
			s.visitText(t)
		}
		return ast.WalkContinue, nil
	}

	if isTransparent(n) {
		return ast.WalkContinue, nil
	}
	s.flushText()
	if !entering {
		if n.Kind() == ast.KindHeading {
			s.pendingPrefix = ""
		}
		return ast.WalkContinue, nil
	}

	s.pendingPrefix = ""
	switch node := n.(type) {
	case *ast.Heading:
		s.visitHeading(node.Level)
	case *ast.Link:
		s.checkDestination(KindLink, string(node.Destination))
	case *ast.Image:
		s.checkDestination(KindImage, string(node.Destination))
	}
	return ast.WalkContinue, nil
}

func (s *walkState) visitHeading(level int) {
	if level < s.level-1 || level > s.level+1 {
		s.record(&HeadingLevelError{Level: level, Current: s.level})
		return
	}
	switch {
	case level == s.level && len(s.numbering) > 0:
		s.numbering[len(s.numbering)-1]++
	case level > s.level:
		s.numbering = append(s.numbering, 1)
	case level < s.level:
		s.numbering = s.numbering[:len(s.numbering)-1]
		if len(s.numbering) > 0 {
			s.numbering[len(s.numbering)-1]++
		}
	}
	s.level = level
	s.pendingPrefix = headingPrefix(s.numbering)
}

func (s *walkState) visitText(t *ast.Text) {
	value := t.Segment.Value(s.source)
	if _, inCode := t.Parent().(*ast.CodeSpan); !inCode {
		writeUnescapedBrackets(&s.textRun, value)
		if t.SoftLineBreak() {
			s.textRun.WriteByte('\n')
		}
	}
	if s.pendingPrefix == "" {
		return
	}

	decoded := util.ResolveEntityNames(util.ResolveNumericReferences(util.UnescapePunctuations(value)))
	escaped := string(util.EscapeHTML(decoded))
	slug := headingSlug(string(decoded))
	label := "<small>" + s.pendingPrefix + "</small> " + escaped
	anchor := `<a id="` + slug + `" href="#` + slug + `">` + label + `</a>`

	s.toc.WriteString(`<li style="margin-left: ` + strconv.Itoa(s.level-1) + `em"><a href="#` + slug + `">` + label + "</a></li>\n")

	str := ast.NewString([]byte(anchor))
	str.SetCode(true)
	s.replacements = append(s.replacements, replacement{parent: t.Parent(), old: t, new: str})
	s.pendingPrefix = ""
}

func (s *walkState) checkDestination(kind, destination string) {
	if len(s.validLinks) == 0 {
		return
	}
	if utils.IsExternalURL(destination) {
		return
	}
	if _, ok := s.validLinks[destination]; ok {
		return
	}
	s.record(&LinkError{Kind: kind, Destination: destination})
}

func (s *walkState) flushText() {
	if s.textRun.Len() == 0 {
		return
	}
	for _, m := range referencePattern.FindAllStringSubmatch(s.textRun.String(), -1) {
		if m[2] == "(" || strings.HasPrefix(m[1], "^") || util.IsBlank([]byte(m[1])) {
			continue
		}
		ref := m[3]
		if util.IsBlank([]byte(ref)) {
			ref = m[1]
		}
		if _, ok := s.pc.Reference(util.ToLinkReference([]byte(ref))); !ok {
			s.record(&BrokenReferenceError{Reference: ref})
		}
	}
	s.textRun.Reset()
}

// isTransparent reports inline nodes whose text joins the surrounding run.
func isTransparent(n ast.Node) bool {
	switch n.Kind() {
	case ast.KindEmphasis, east.KindStrikethrough:
		return true
	}
	return false
}

// writeUnescapedBrackets copies value to buf with backslash escaped brackets blanked out, so
// \[text\] never reads as a reference.
func writeUnescapedBrackets(buf *bytes.Buffer, value []byte) {
	for i := 0; i < len(value); i++ {
		if value[i] == '\\' && i+1 < len(value) && util.IsPunct(value[i+1]) {
			if c := value[i+1]; c == '[' || c == ']' {
				buf.WriteString("  ")
			} else {
				buf.WriteByte(value[i])
				buf.WriteByte(c)
			}
			i++
			continue
		}
		buf.WriteByte(value[i])
	}
}

// applyReplacements swaps heading text for the numbered anchors. Nodes are replaced after the
// walk since replacing a node detaches it from its siblings.
func (s *walkState) applyReplacements() {
	for _, r := range s.replacements {
		r.parent.ReplaceChild(r.parent, r.old, r.new)
	}
}

func (s *walkState) tableOfContents() string {
	if s.toc.Len() == 0 {
		return ""
	}
	return "<ul class=\"toc\">\n" + s.toc.String() + "</ul>\n"
}

// headingPrefix renders the numbering stack, a single counter keeps a trailing dot.
func headingPrefix(numbering []int) string {
	parts := make([]string, len(numbering))
	for i, n := range numbering {
		parts[i] = strconv.Itoa(n)
	}
	out := strings.Join(parts, ".")
	if len(numbering) == 1 {
		out += "."
	}
	return out
}
