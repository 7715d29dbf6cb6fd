package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/docrank/internal/document"
)

// TextParser handles plain text files. Form feeds separate pages.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &document.Document{
		Filename: filename,
		Pages:    splitPages(normalizeText(string(data))),
	}, nil
}

// splitPages numbers form-feed separated pages from 1. Empty input yields no
// pages; empty pages between form feeds are kept so numbering stays aligned.
func splitPages(text string) []document.Page {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, "\f")
	// A trailing form feed does not start another page.
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	pages := make([]document.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, document.Page{Number: i + 1, Text: strings.TrimSpace(part)})
	}
	return pages
}
