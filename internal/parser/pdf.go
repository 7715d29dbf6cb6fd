package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docrank/internal/document"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
	Log               *slog.Logger
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := p.extractPages(data, filename)
	if err != nil && p.FallbackPdftotext {
		var text string
		if text, err = extractPdftotext(data); err == nil {
			pages = splitPages(normalizeText(text))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return &document.Document{Filename: filename, Pages: pages}, nil
}

// extractPages decodes every page. A page that fails to decode keeps its
// number with empty text.
func (p *PDFParser) extractPages(data []byte, filename string) (pages []document.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages = make([]document.Page, 0, n)
	for i := 1; i <= n; i++ {
		page := document.Page{Number: i}
		pg := reader.Page(i)
		if !pg.V.IsNull() {
			text, tokens, perr := decodePage(pg)
			if perr != nil {
				p.warn("pdf page decode failed", "file", filename, "page", i, "error", perr)
			}
			page.Text = strings.TrimSpace(normalizeText(text))
			page.Tokens = tokens
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (p *PDFParser) warn(msg string, args ...any) {
	if p.Log != nil {
		p.Log.Warn(msg, args...)
	}
}

func decodePage(pg pdflib.Page) (text string, tokens []document.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, tokens, err = "", nil, fmt.Errorf("panic: %v", r)
		}
	}()
	text, err = pg.GetPlainText(nil)
	if err != nil {
		return "", nil, err
	}
	return text, glyphRuns(pg.Content().Text), nil
}

// glyphRuns groups positioned glyphs into runs that share a baseline and a
// font size. Each run becomes one token whose height is the font size.
func glyphRuns(glyphs []pdflib.Text) []document.Token {
	var (
		tokens []document.Token
		run    strings.Builder
		prev   pdflib.Text
	)
	flush := func() {
		if text := collapse(run.String()); text != "" {
			tokens = append(tokens, document.Token{Text: text, Height: prev.FontSize})
		}
		run.Reset()
	}
	for i, g := range glyphs {
		if i > 0 {
			switch {
			case math.Abs(g.Y-prev.Y) > 1 || math.Abs(g.FontSize-prev.FontSize) > 0.5:
				flush()
			case g.X > prev.X+prev.W+0.2*g.FontSize:
				run.WriteByte(' ')
			}
		}
		run.WriteString(g.S)
		prev = g
	}
	flush()
	return tokens
}

func extractPdftotext(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docrank-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
