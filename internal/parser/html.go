package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/dgallion1/docrank/internal/document"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// Skip non-content elements.
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	var w blockWriter
	// The page title leads the document unless the body carries its own h1.
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" && doc.Find("body h1").Length() == 0 {
		w.heading(title, 1)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				w.heading(textContent(n), level)
				return
			}
			switch n.Data {
			case "head":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "dd", "dt", "figcaption":
				w.paragraph(textContent(n))
				return
			}
		}
		if n.Type == html.TextNode && n.Parent != nil && isContainer(n.Parent.Data) {
			w.paragraph(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	return w.document(filename), nil
}

// isContainer reports whether bare text directly inside tag is body text.
func isContainer(tag string) bool {
	switch tag {
	case "body", "div", "section", "article", "main", "aside":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}
