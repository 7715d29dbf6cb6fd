// Package parser decodes supported file formats into paged plain text.
package parser

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docrank/internal/document"
)

// Parser converts raw document bytes into pages of text.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Options tune decoder behavior.
type Options struct {
	PDFFallbackPdftotext bool
	Log                  *slog.Logger // Receives per-page decode warnings. Optional.
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext, Log: opts.Log}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile opens path and decodes it with the parser for its extension.
func ParseFile(path string, opts Options) (*document.Document, error) {
	p, err := ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// normalizeText folds compatibility characters (ligatures, full-width forms)
// and unifies line endings.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// bodyHeight is the synthetic glyph height of paragraph text in structured
// formats. Every heading level renders taller.
const bodyHeight = 10

// headingHeight is the synthetic glyph height recorded for a structural
// heading of the given level (1 = largest).
func headingHeight(level int) float64 {
	return float64(26 - 2*min(max(level, 1), 6))
}

// blockWriter lays out structured content as a single page: headings on
// their own lines, blocks separated by blank lines.
type blockWriter struct {
	sb     strings.Builder
	tokens []document.Token
}

func (w *blockWriter) heading(text string, level int) {
	text = collapse(text)
	if text == "" {
		return
	}
	w.sep()
	w.sb.WriteString(text)
	w.tokens = append(w.tokens, document.Token{Text: text, Height: headingHeight(level)})
}

func (w *blockWriter) paragraph(text string) {
	text = collapse(text)
	if text == "" {
		return
	}
	w.sep()
	w.sb.WriteString(text)
}

func (w *blockWriter) sep() {
	if w.sb.Len() > 0 {
		w.sb.WriteString("\n\n")
	}
}

func (w *blockWriter) document(filename string) *document.Document {
	return &document.Document{
		Filename: filename,
		Pages: []document.Page{{
			Number: 1,
			Text:       w.sb.String(),
			Tokens:     w.tokens,
			BodyHeight: bodyHeight,
		}},
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(normalizeText(s)), " ")
}
