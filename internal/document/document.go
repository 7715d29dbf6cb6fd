package document

import "strings"

// Document is one input file after decoding.
type Document struct {
	Filename string
	Pages    []Page
}

// Page is a single decoded page. Numbers are 1-based and contiguous.
type Page struct {
	Number int
	Text   string
	Tokens []Token // Optional font metadata; nil when the decoder cannot provide it.

	// BodyHeight is the glyph height of ordinary body text. Zero means it is
	// inferred from Tokens.
	BodyHeight float64
}

// Token is a rendered run of text with its glyph height.
type Token struct {
	Text   string
	Height float64
}

// Section is a titled, contiguous span of a document inferred from its text.
type Section struct {
	Title    string
	Page     int
	Content  string
	Position int // Index within the document's emitted section sequence.
}

// SubUnit is a paragraph or sentence slice of a section.
type SubUnit struct {
	Section   *Section // Back reference for title/page lookup only.
	Index     int      // Order within the parent section.
	Text      string
	WordCount int
}

// Query is the two-part free-text request.
type Query struct {
	Persona string
	Job     string
}

// Empty reports whether both sides of the query are blank.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Persona) == "" && strings.TrimSpace(q.Job) == ""
}

// FullText joins all page texts, used for hashing and statistics.
func (d *Document) FullText() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		if p.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
