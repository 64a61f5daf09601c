// Package markdown renders event descriptions to HTML.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Service renders markdown.
type Service interface {
	RenderHTML(source string) (string, error)
}

type service struct {
	md goldmark.Markdown
}

// Option configures the markdown service.
type Option func(*[]goldmark.Option)

// WithGFM enables tables, strikethrough, autolinks and task lists.
func WithGFM() Option {
	return func(opts *[]goldmark.Option) {
		*opts = append(*opts, goldmark.WithExtensions(extension.GFM))
	}
}

// NewService creates a markdown service. Raw HTML in the source is never
// passed through.
func NewService(opts ...Option) Service {
	mdOpts := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}
	for _, opt := range opts {
		opt(&mdOpts)
	}
	return &service{md: goldmark.New(mdOpts...)}
}

func (s *service) RenderHTML(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
