package tts

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// tagParser only knows paragraphs and inline tags, so speech that happens to
// look like markdown ("1. Go left", "# 1 fan") stays as written.
var tagParser = parser.NewParser(
	parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
	parser.WithInlineParsers(util.Prioritized(parser.NewRawHTMLParser(), 100)),
)

// PlainText returns the words of a speech request without markup: tags such
// as <break/> or <prosody> are dropped while their content stays, and
// whitespace collapses.
func PlainText(s string) string {
	reader := text.NewReader([]byte(s))
	doc := tagParser.Parse(reader)

	var buf strings.Builder
	walkNode(doc, reader.Source(), &buf)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// walkNode writes the text of node, skipping tags.
func walkNode(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteString(" ")
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return
	}

	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkNode(c, source, buf)
	}
	if node.Type() == ast.TypeBlock {
		buf.WriteString(" ")
	}
}
