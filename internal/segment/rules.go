package segment

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docrank/internal/document"
)

// LineKind is the structural class of a single line.
type LineKind int

const (
	Body LineKind = iota
	Heading
)

func (k LineKind) String() string {
	if k == Heading {
		return "heading"
	}
	return "body"
}

// Line is a trimmed line plus the raw line that follows it on the same page.
type Line struct {
	Text string
	Next string // Empty when the next line is blank or absent.
}

// Rule is a named heading predicate. Rules are pure functions of a Line.
type Rule struct {
	Name  string
	Match func(Line) bool
}

var (
	numberedPattern = regexp.MustCompile(`^\d+(\.\d+)*\.\s+[A-Z]|^\d+\.\d+(\.\d+)*\s+[A-Z]`)
	labelPattern    = regexp.MustCompile(`^[A-Z][a-z]+:`)
	romanPattern    = regexp.MustCompile(`^[IVXLC]+\.\s+`)
	markerPattern   = regexp.MustCompile(`^(?i:chapter|section|part|step|day|appendix|module|lesson|unit|stage|phase|week)\s+\d+(\.\d+)*\b`)
)

var academicHeaders = map[string]bool{
	"abstract":     true,
	"introduction": true,
	"conclusion":   true,
	"conclusions":  true,
	"references":   true,
	"methods":      true,
	"results":      true,
	"discussion":   true,
}

// connectors may stay lower-case inside a title-case heading.
var connectors = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "into": true, "of": true, "on": true,
	"or": true, "the": true, "to": true, "vs": true, "with": true, "&": true,
}

// DefaultRules returns the structural heading rules followed by the
// line-shape fallback, in priority order.
func DefaultRules(cfg Config) []Rule {
	cfg = withDefaults(cfg)
	short := func(m func(string) bool) func(Line) bool {
		return func(l Line) bool {
			n := utf8.RuneCountInString(l.Text)
			return n > 0 && n <= cfg.MaxHeadingLength && m(l.Text)
		}
	}
	return []Rule{
		{Name: "shape", Match: short(func(s string) bool {
			return utf8.RuneCountInString(s) >= cfg.MinHeadingLength && (isAllCaps(s) || isTitleCase(s))
		})},
		{Name: "numbered", Match: short(numberedPattern.MatchString)},
		{Name: "label", Match: short(labelPattern.MatchString)},
		{Name: "roman", Match: short(romanPattern.MatchString)},
		{Name: "marker", Match: short(markerPattern.MatchString)},
		{Name: "academic", Match: short(func(s string) bool {
			return academicHeaders[strings.ToLower(s)]
		})},
		{Name: "fallback", Match: isShortBeforeLong},
	}
}

// FontRule matches a line whose text is exactly one rendered run taller than
// minHeight.
func FontRule(tokens []document.Token, minHeight float64) Rule {
	oversized := make(map[string]bool)
	for _, t := range tokens {
		if text := squash(t.Text); t.Height > minHeight && text != "" {
			oversized[text] = true
		}
	}
	return Rule{Name: "font", Match: func(l Line) bool {
		if len(oversized) == 0 {
			return false
		}
		return oversized[squash(l.Text)]
	}}
}

// BodyHeight returns the dominant height among tokens, weighted by the runes
// rendered at each height. Heights are bucketed to half points and ties go to
// the smaller height.
func BodyHeight(tokens []document.Token) float64 {
	weight := make(map[float64]int)
	for _, t := range tokens {
		if n := utf8.RuneCountInString(squash(t.Text)); n > 0 {
			weight[math.Round(t.Height*2)/2] += n
		}
	}
	var body float64
	best := 0
	for h, n := range weight {
		if n > best || (n == best && h < body) {
			body, best = h, n
		}
	}
	return body
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Classify folds over rules and stops at the first match. The name of the
// matching rule is returned for diagnostics.
func Classify(l Line, rules []Rule) (LineKind, string) {
	for _, r := range rules {
		if r.Match(l) {
			return Heading, r.Name
		}
	}
	return Body, ""
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters >= 3
}

func isTitleCase(s string) bool {
	if strings.HasSuffix(s, ".") {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) && !strings.ContainsRune("&-',:()/", r) {
			return false
		}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	letters := 0
	for i, w := range words {
		first, _ := utf8.DecodeRuneInString(strings.TrimLeft(w, "('"))
		switch {
		case unicode.IsDigit(first):
		case unicode.IsUpper(first):
			letters++
		case i > 0 && connectors[strings.ToLower(w)]:
		default:
			return false
		}
	}
	return letters > 0
}

// isShortBeforeLong is the shape heuristic for headings with no other signal:
// a short line directly above a much longer one.
func isShortBeforeLong(l Line) bool {
	cur := utf8.RuneCountInString(l.Text)
	next := utf8.RuneCountInString(l.Next)
	if cur == 0 || cur >= 100 || next <= 50 || next < 2*cur {
		return false
	}
	return !strings.HasSuffix(l.Text, ".") && !strings.HasSuffix(l.Text, ",") && !strings.HasSuffix(l.Text, ";")
}
