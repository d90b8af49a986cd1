package docparse

// TextParser handles plain text files verbatim.
type TextParser struct{}

func (TextParser) Extensions() []string { return []string{"txt"} }

func (TextParser) Parse(path string) (Document, error) {
	content, meta, err := readFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{Content: content, Metadata: meta}, nil
}
