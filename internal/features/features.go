// Package features derives keywords and paragraph or sentence sub-units from
// segmented sections.
package features

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docrank/internal/document"
)

// Sub-unit split modes.
const (
	ModeSentence  = "sentence"
	ModeParagraph = "paragraph"
)

// Config controls feature extraction.
type Config struct {
	SubUnitMode       string `yaml:"subunit_mode"`        // "sentence" or "paragraph".
	MinSentenceWords  int    `yaml:"min_sentence_words"`  // Shorter sentences are not sub-units.
	MinParagraphChars int    `yaml:"min_paragraph_chars"` // Shorter paragraphs are not sub-units.
	MaxPerSection     int    `yaml:"max_per_section"`
	KeywordCount      int    `yaml:"keyword_count"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubUnitMode:       ModeSentence,
		MinSentenceWords:  10,
		MinParagraphChars: 100,
		MaxPerSection:     5,
		KeywordCount:      10,
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.SubUnitMode == "" {
		cfg.SubUnitMode = def.SubUnitMode
	}
	if cfg.MinSentenceWords <= 0 {
		cfg.MinSentenceWords = def.MinSentenceWords
	}
	if cfg.MinParagraphChars <= 0 {
		cfg.MinParagraphChars = def.MinParagraphChars
	}
	if cfg.MaxPerSection <= 0 {
		cfg.MaxPerSection = def.MaxPerSection
	}
	if cfg.KeywordCount <= 0 {
		cfg.KeywordCount = def.KeywordCount
	}
	return cfg
}

// Features is everything derived from one section.
type Features struct {
	Keywords []string
	SubUnits []document.SubUnit
}

// Extract computes keywords and sub-units for sec.
func Extract(sec *document.Section, cfg Config) Features {
	cfg = withDefaults(cfg)
	return Features{
		Keywords: Keywords(sec.Title+" "+sec.Content, cfg.KeywordCount),
		SubUnits: SubUnits(sec, cfg),
	}
}

// Keywords returns the k most frequent non-stop-word tokens of at least three
// characters. Ties keep first-occurrence order.
func Keywords(text string, k int) []string {
	if k <= 0 {
		return nil
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 || stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return order
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// SubUnits splits a section into sentence or paragraph units, keeping those
// that pass the minimum size for the mode. At most MaxPerSection units are
// returned, in textual order.
func SubUnits(sec *document.Section, cfg Config) []document.SubUnit {
	cfg = withDefaults(cfg)

	var candidates []string
	var keep func(string) bool
	switch cfg.SubUnitMode {
	case ModeParagraph:
		candidates = splitByParagraphs(sec.Content)
		keep = func(p string) bool { return utf8.RuneCountInString(p) >= cfg.MinParagraphChars }
	default:
		candidates = splitSentences(sec.Content)
		keep = func(s string) bool { return len(strings.Fields(s)) >= cfg.MinSentenceWords }
	}

	var units []document.SubUnit
	for _, c := range candidates {
		if len(units) == cfg.MaxPerSection {
			break
		}
		if !keep(c) {
			continue
		}
		units = append(units, document.SubUnit{
			Section:   sec,
			Index:     len(units),
			Text:      c,
			WordCount: len(strings.Fields(c)),
		})
	}
	return units
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitSentences cuts after each run of terminal punctuation, keeping it.
func splitSentences(text string) []string {
	var sentences []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		m = strings.Join(strings.Fields(m), " ")
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	return sentences
}
