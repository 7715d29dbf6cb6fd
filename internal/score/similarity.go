package score

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dgallion1/docrank/internal/features"
)

// Similarity providers selectable by name.
const (
	SimilarityJaccard = "jaccard"
	SimilarityTFIDF   = "tfidf"
)

// Similarity measures lexical closeness of two texts in [0, 1].
type Similarity interface {
	Similarity(a, b string) float64
}

// NewSimilarity returns the provider registered under name.
func NewSimilarity(name string) (Similarity, error) {
	switch strings.ToLower(name) {
	case "", SimilarityJaccard:
		return Jaccard{}, nil
	case SimilarityTFIDF:
		return TFIDF{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity %q", name)
	}
}

var wordPattern = regexp.MustCompile(`[a-z]{3,}`)

// words returns the lower-case alphabetic words of at least three letters.
func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range words(text) {
		set[w] = true
	}
	return set
}

// Jaccard is |A∩B| / |A∪B| over word sets. Stop words are kept.
type Jaccard struct{}

func (Jaccard) Similarity(a, b string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if sb[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(sa)+len(sb)-inter)
}

// TFIDF is the cosine of unigram and bigram TF-IDF vectors fitted on the two
// texts, with stop words removed.
type TFIDF struct{}

func (TFIDF) Similarity(a, b string) float64 {
	ta, tb := terms(a), terms(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	df := make(map[string]int)
	for t := range ta {
		df[t]++
	}
	for t := range tb {
		df[t]++
	}
	const n = 2
	idf := func(t string) float64 {
		return math.Log(float64(1+n)/float64(1+df[t])) + 1
	}

	var dot, na, nb float64
	for t, c := range ta {
		w := float64(c) * idf(t)
		na += w * w
		if cb, ok := tb[t]; ok {
			dot += w * float64(cb) * idf(t)
		}
	}
	for t, c := range tb {
		w := float64(c) * idf(t)
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// terms counts unigrams and adjacent bigrams after stop-word removal.
func terms(text string) map[string]int {
	var kept []string
	for _, w := range words(text) {
		if !features.IsStopWord(w) {
			kept = append(kept, w)
		}
	}
	counts := make(map[string]int, 2*len(kept))
	for i, w := range kept {
		counts[w]++
		if i > 0 {
			counts[kept[i-1]+" "+w]++
		}
	}
	return counts
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
