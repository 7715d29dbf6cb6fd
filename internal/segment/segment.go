// Package segment splits decoded page text into titled sections using
// line-level structural heuristics.
package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docrank/internal/document"
)

// PlaceholderTitle names body text that appears before any heading. It is
// replaced by a derived title when the section is emitted.
const PlaceholderTitle = "Document Content"

// Config controls segmentation behavior.
type Config struct {
	MinSectionLength int     `yaml:"min_section_length"` // Shorter sections are dropped.
	MinHeadingLength int     `yaml:"min_heading_length"`
	MaxHeadingLength int     `yaml:"max_heading_length"`
	FontHeadingSize  float64 `yaml:"font_heading_size"`  // Token height above which a lone token is a heading.
	FontHeadingRatio float64 `yaml:"font_heading_ratio"` // A heading token must also exceed body height by this factor.
	TitleWords       int     `yaml:"title_words"`        // Words used for derived titles.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinSectionLength: 30,
		MinHeadingLength: 3,
		MaxHeadingLength: 100,
		FontHeadingSize:  12,
		FontHeadingRatio: 1.2,
		TitleWords:       5,
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MinSectionLength <= 0 {
		cfg.MinSectionLength = def.MinSectionLength
	}
	if cfg.MinHeadingLength <= 0 {
		cfg.MinHeadingLength = def.MinHeadingLength
	}
	if cfg.MaxHeadingLength <= 0 {
		cfg.MaxHeadingLength = def.MaxHeadingLength
	}
	if cfg.FontHeadingSize <= 0 {
		cfg.FontHeadingSize = def.FontHeadingSize
	}
	if cfg.FontHeadingRatio <= 0 {
		cfg.FontHeadingRatio = def.FontHeadingRatio
	}
	if cfg.TitleWords <= 0 {
		cfg.TitleWords = def.TitleWords
	}
	return cfg
}

// Segmenter turns a document into sections. It holds no per-run state and is
// safe for concurrent use.
type Segmenter struct {
	cfg   Config
	rules []Rule
}

func New(cfg Config) *Segmenter {
	cfg = withDefaults(cfg)
	return &Segmenter{cfg: cfg, rules: DefaultRules(cfg)}
}

// Segment is a convenience wrapper around New(cfg).Segment(doc).
func Segment(doc *document.Document, cfg Config) []document.Section {
	return New(cfg).Segment(doc)
}

// Segment walks every page and returns sections in document order.
func (s *Segmenter) Segment(doc *document.Document) []document.Section {
	b := &builder{cfg: s.cfg}
	for _, page := range doc.Pages {
		rules := s.rules
		if len(page.Tokens) > 0 {
			rules = append(rules[:len(rules):len(rules)], FontRule(page.Tokens, s.fontThreshold(page)))
		}
		s.segmentPage(b, page, rules)
		// Sections never span a page change.
		b.flush()
	}
	return b.out
}

// fontThreshold is the height a lone run must exceed to count as a heading:
// the configured size, raised to ratio times the page's body height.
func (s *Segmenter) fontThreshold(page document.Page) float64 {
	body := page.BodyHeight
	if body <= 0 {
		body = BodyHeight(page.Tokens)
	}
	return max(s.cfg.FontHeadingSize, body*s.cfg.FontHeadingRatio)
}

func (s *Segmenter) segmentPage(b *builder, page document.Page, rules []Rule) {
	if strings.TrimSpace(page.Text) == "" {
		return
	}
	lines := strings.Split(page.Text, "\n")
	for i, raw := range lines {
		text := strings.TrimSpace(raw)
		if text == "" {
			b.blank()
			continue
		}
		l := Line{Text: text}
		if i+1 < len(lines) {
			l.Next = strings.TrimSpace(lines[i+1])
		}
		if kind, _ := Classify(l, rules); kind == Heading {
			b.open(text, page.Number)
			continue
		}
		b.add(text, page.Number)
	}
}

// builder accumulates the open section and the emitted sequence.
type builder struct {
	cfg       Config
	out       []document.Section
	cur       *document.Section
	body      strings.Builder
	paraBreak bool
}

func (b *builder) open(title string, page int) {
	b.flush()
	b.cur = &document.Section{Title: title, Page: page, Position: len(b.out)}
}

func (b *builder) add(line string, page int) {
	if b.cur == nil {
		b.cur = &document.Section{Title: PlaceholderTitle, Page: page, Position: len(b.out)}
	}
	if b.body.Len() > 0 {
		if b.paraBreak {
			b.body.WriteString("\n\n")
		} else {
			b.body.WriteString(" ")
		}
	}
	b.body.WriteString(line)
	b.paraBreak = false
}

// blank marks a paragraph break between body lines of the open section.
func (b *builder) blank() {
	if b.body.Len() > 0 {
		b.paraBreak = true
	}
}

func (b *builder) flush() {
	defer func() {
		b.cur = nil
		b.body.Reset()
		b.paraBreak = false
	}()
	if b.cur == nil {
		return
	}
	content := strings.TrimSpace(b.body.String())
	if utf8.RuneCountInString(content) < b.cfg.MinSectionLength {
		return
	}
	sec := *b.cur
	sec.Content = content
	if sec.Title == PlaceholderTitle {
		sec.Title = DeriveTitle(content, b.cfg.TitleWords)
	}
	b.out = append(b.out, sec)
}

// DeriveTitle builds a title from the first n words of content.
func DeriveTitle(content string, n int) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return "Untitled Section"
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
