package answer

import (
	"fmt"
	"strings"
	"sync"
)

// Placeholders the prompt template must contain.
const (
	contextPlaceholder  = "{context}"
	questionPlaceholder = "{question}"
)

// DefaultTemplate is the prompt used until a caller replaces it.
const DefaultTemplate = `Answer the question based on the following context. If the context does not contain enough information to answer, say so instead of guessing.

Context:
{context}

Question: {question}

Answer:`

// Template is the user-replaceable prompt template. It is process-wide
// state shared by concurrent queries, so reads and writes are serialized.
type Template struct {
	mu   sync.RWMutex
	text string
}

// NewTemplate returns a Template holding DefaultTemplate.
func NewTemplate() *Template {
	return &Template{text: DefaultTemplate}
}

// Get returns the current template text.
func (t *Template) Get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// Set replaces the template. The new text must be non-empty and contain
// both the {context} and {question} placeholders; invalid text is rejected
// and the current template stays in place.
func (t *Template) Set(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("template must not be empty")
	}
	if !strings.Contains(text, contextPlaceholder) {
		return fmt.Errorf("template must contain %s placeholder", contextPlaceholder)
	}
	if !strings.Contains(text, questionPlaceholder) {
		return fmt.Errorf("template must contain %s placeholder", questionPlaceholder)
	}

	t.mu.Lock()
	t.text = text
	t.mu.Unlock()
	return nil
}

// Render substitutes the context and question into the current template.
func (t *Template) Render(promptContext, question string) string {
	text := t.Get()
	text = strings.ReplaceAll(text, contextPlaceholder, promptContext)
	return strings.ReplaceAll(text, questionPlaceholder, question)
}
