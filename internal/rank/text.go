package rank

import (
	"regexp"
	"strings"
	"unicode"
)

const ellipsis = "..."

// MinTextLength is the smallest bound that leaves room for at least one rune
// before the ellipsis.
const MinTextLength = len(ellipsis) + 1

// Truncate bounds text to max runes. Text that fits is returned verbatim.
// Longer text is cut at the last sentence end in the final 30% of the
// window, else at the last space in the final 20%, else mid-word, and
// always ends with an ellipsis. The ellipsis counts toward max.
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max <= len(ellipsis) {
		return string(r[:max])
	}

	budget := max - len(ellipsis)
	window := r[:budget]
	cut := budget

	sentenceEnd := -1
	space := -1
	for i, c := range window {
		switch {
		case c == '.' || c == '!' || c == '?':
			sentenceEnd = i
		case unicode.IsSpace(c):
			space = i
		}
	}
	switch {
	case sentenceEnd >= 0 && float64(sentenceEnd+1) >= 0.7*float64(budget):
		cut = sentenceEnd + 1
	case space >= 0 && float64(space) >= 0.8*float64(budget):
		cut = space
	}
	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace) + ellipsis
}

var (
	hyphenBreak = regexp.MustCompile(`(\w)- (\w)`)
	spacedPunct = regexp.MustCompile(`\s+([.,;:!?])`)
)

// Refine cleans extracted sub-unit text and bounds it to max runes.
func Refine(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = spacedPunct.ReplaceAllString(text, "$1")
	return Truncate(text, max)
}

// CleanTitle collapses whitespace and caps a title at max runes.
func CleanTitle(title string, max int) string {
	title = strings.Join(strings.Fields(title), " ")
	r := []rune(title)
	if len(r) <= max || max <= len(ellipsis) {
		return title
	}
	return strings.TrimSpace(string(r[:max-len(ellipsis)])) + ellipsis
}
