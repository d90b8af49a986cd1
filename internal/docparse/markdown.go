package docparse

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MarkdownParser handles markdown files. The raw markdown is kept as the
// document content; the first top-level heading, when present, becomes the
// document title.
type MarkdownParser struct{}

func (MarkdownParser) Extensions() []string { return []string{"md", "markdown"} }

func (MarkdownParser) Parse(path string) (Document, error) {
	content, meta, err := readFile(path)
	if err != nil {
		return Document{}, err
	}
	meta.Title = MarkdownTitle([]byte(content))
	return Document{Content: content, Metadata: meta}, nil
}

// MarkdownTitle pulls the first H1 heading out of markdown source. Returns
// empty when the document has no top-level heading.
func MarkdownTitle(source []byte) string {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	doc := md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(1),
		toc.Compact(true),
	)
	if err != nil || len(tree.Items) == 0 {
		return ""
	}
	return string(tree.Items[0].Title)
}
