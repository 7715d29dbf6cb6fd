package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/document"
)

func newScorer(t *testing.T, cfg Config) *Scorer {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"drug discovery researcher", "drug discovery is slow", 2.0 / 4.0},
		{"drug discovery researcher", "find methods for drug discovery", 2.0 / 6.0},
		{"Graph Networks", "graph networks", 1},
		{"", "anything here", 0},
		{"an ox", "an ox", 0},
		{"alpha beta", "gamma delta", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Jaccard{}.Similarity(tt.a, tt.b), 1e-9, "%q vs %q", tt.a, tt.b)
	}
}

func TestTFIDF(t *testing.T) {
	sim := TFIDF{}
	assert.InDelta(t, 1.0, sim.Similarity("graph neural networks", "graph neural networks"), 1e-9)
	assert.Zero(t, sim.Similarity("graph neural networks", "budget travel tips"))
	assert.Zero(t, sim.Similarity("the and of", "graph"))

	partial := sim.Similarity("graph neural networks for drug discovery", "drug discovery methods")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}

func TestNewSimilarity(t *testing.T) {
	s, err := NewSimilarity("TFIDF")
	require.NoError(t, err)
	assert.IsType(t, TFIDF{}, s)

	s, err = NewSimilarity("")
	require.NoError(t, err)
	assert.IsType(t, Jaccard{}, s)

	_, err = NewSimilarity("embeddings")
	assert.Error(t, err)
}

func TestCategoryBoost(t *testing.T) {
	idx := indexCategories(DefaultCategories())

	assert.Zero(t, idx.boost("nothing relevant here", 0.05, 0.15, 0.3))
	assert.InDelta(t, 0.10, idx.boost("best tips", 0.05, 0.15, 0.3), 1e-9)
	// Occurrences count, capped per category.
	assert.InDelta(t, 0.15, idx.boost("plan plan plan plan plan", 0.05, 0.15, 0.3), 1e-9)
	// Total cap.
	all := "plan create build best key top guide tips steps overview summary scope result goal impact"
	assert.InDelta(t, 0.3, idx.boost(all, 0.05, 0.15, 0.3), 1e-9)
}

func TestSide_EmptyReference(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	assert.Zero(t, s.Side("best practical tips guide", "   "))
	assert.Zero(t, s.Side("best practical tips guide", ""))
}

func TestRelevance_Identity(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	q := document.Query{Persona: "drug discovery researcher", Job: "find methods for drug discovery"}

	texts := []string{
		"ABSTRACT This paper studies graph neural networks for drug discovery.",
		"INTRODUCTION Drug discovery is expensive and slow.",
		"best tips guide plan overview result " + strings.Repeat("drug discovery ", 20),
		"",
	}
	for _, text := range texts {
		p, j, o := s.Relevance(text, q)
		assert.InDelta(t, p*0.4+j*0.6, o, 1e-12)
		for _, v := range []float64{p, j, o} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestRelevance_EmptyQuery(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	_, _, o := s.Relevance("best tips guide for drug discovery", document.Query{})
	assert.Zero(t, o)
}

func TestScoreSection(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	q := document.Query{Persona: "drug discovery researcher", Job: "find methods for drug discovery"}

	abstract := &document.Section{Title: "ABSTRACT", Page: 1, Content: "This paper studies graph neural networks for drug discovery."}
	intro := &document.Section{Title: "INTRODUCTION", Page: 2, Content: "Drug discovery is expensive and slow."}
	dt := DocType{Name: "overview"}

	a := s.ScoreSection(abstract, q, dt)
	b := s.ScoreSection(intro, q, dt)

	assert.InDelta(t, 0.3, a.Length, 1e-9)
	assert.InDelta(t, 1.0, a.Position, 1e-9)
	assert.Zero(t, a.Title)
	assert.Zero(t, a.DocType)
	assert.InDelta(t, 0.245227, a.Final, 1e-5)
	assert.InDelta(t, 0.239179, b.Final, 1e-5)
	assert.GreaterOrEqual(t, a.Final, b.Final)
}

func TestScoreSection_FinalBounded(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	q := document.Query{Persona: "guide", Job: "learn the best guide"}
	sec := &document.Section{Title: "Best Guide", Page: 1, Content: strings.Repeat("best guide tips steps plan ", 20)}
	b := s.ScoreSection(sec, q, DocType{Name: "instructional", JobTerms: []string{"learn"}})
	assert.LessOrEqual(t, b.Final, 1.0)
	assert.Equal(t, 1.0, b.DocType)
}

func TestScoreSubUnit(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	parent := Breakdown{Persona: 0.5, Job: 0.8}
	parent.Overall = 0.5*0.4 + 0.8*0.6

	tests := []struct {
		words int
		want  float64
	}{
		{3, parent.Overall * 0.9 * 0.1},
		{10, parent.Overall * 0.9 * 0.5},
		{40, parent.Overall * 0.9},
	}
	for _, tt := range tests {
		b := s.ScoreSubUnit(document.SubUnit{WordCount: tt.words}, parent)
		assert.InDelta(t, tt.want, b.Overall, 1e-12, "words=%d", tt.words)
		assert.InDelta(t, b.Persona*0.4+b.Job*0.6, b.Overall, 1e-12)
		assert.Equal(t, b.Overall, b.Final)
	}
}

func TestTitleBonus(t *testing.T) {
	q := document.Query{Persona: "travel planner", Job: "plan trip budget"}
	assert.InDelta(t, (0.5*0.4+(1.0/3.0)*0.6)*0.5, TitleBonus("Travel on a Budget", q), 1e-9)
	assert.Zero(t, TitleBonus("Unrelated", q))
	assert.Zero(t, TitleBonus("Travel", document.Query{}))
}

func TestLengthFactor(t *testing.T) {
	s := newScorer(t, DefaultConfig())
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{100, 0.5},
		{200, 1},
		{2000, 1},
		{2500, 0.8},
		{10000, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, s.LengthFactor(tt.n), 1e-9, "n=%d", tt.n)
	}
}

func TestPositionFactor(t *testing.T) {
	assert.Equal(t, 1.0, PositionFactor(1))
	assert.Equal(t, 1.0, PositionFactor(3))
	assert.Equal(t, 0.9, PositionFactor(4))
	assert.Equal(t, 0.9, PositionFactor(10))
	assert.Equal(t, 0.8, PositionFactor(11))
}

func TestNew_UnknownSimilarity(t *testing.T) {
	_, err := New(Config{Similarity: "bm25"})
	assert.Error(t, err)
}
