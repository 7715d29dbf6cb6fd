// Package score computes persona and job relevance for sections and
// sub-units and combines them with structural factors into a ranking value.
package score

import (
	"strings"

	"github.com/dgallion1/docrank/internal/document"
)

// Weights are the final-score factor weights. They must sum to 1.
type Weights struct {
	Relevance float64 `yaml:"relevance"`
	Title     float64 `yaml:"title"`
	Length    float64 `yaml:"length"`
	Position  float64 `yaml:"position"`
	DocType   float64 `yaml:"doc_type"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Relevance + w.Title + w.Length + w.Position + w.DocType
}

// Shares of the persona and job scores in the overall relevance.
const (
	PersonaWeight = 0.4
	JobWeight     = 0.6
)

// Config controls scoring.
type Config struct {
	Similarity string  `yaml:"similarity"` // "jaccard" or "tfidf".
	Weights    Weights `yaml:"weights"`

	MatchWeight float64 `yaml:"match_weight"` // Boost per category word occurrence.
	CategoryCap float64 `yaml:"category_cap"` // Max boost from one category.
	BoostCap    float64 `yaml:"boost_cap"`    // Max boost overall.

	MinIdealLength int     `yaml:"min_ideal_length"`
	MaxIdealLength int     `yaml:"max_ideal_length"`
	MinLengthScore float64 `yaml:"min_length_score"` // Floor for overlong sections.

	Inherit float64 `yaml:"inherit"` // Share of the parent score a sub-unit inherits.

	Categories []Category    `yaml:"categories"`
	DocTypes   []DocTypeRule `yaml:"doc_types"`
}

// DefaultWeights returns the default factor weights.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.45, Title: 0.20, Length: 0.15, Position: 0.10, DocType: 0.10}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Similarity:     SimilarityJaccard,
		Weights:        DefaultWeights(),
		MatchWeight:    0.05,
		CategoryCap:    0.15,
		BoostCap:       0.3,
		MinIdealLength: 200,
		MaxIdealLength: 2000,
		MinLengthScore: 0.5,
		Inherit:        0.9,
		Categories:     DefaultCategories(),
		DocTypes:       DefaultDocTypes(),
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Similarity == "" {
		cfg.Similarity = def.Similarity
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.MatchWeight <= 0 {
		cfg.MatchWeight = def.MatchWeight
	}
	if cfg.CategoryCap <= 0 {
		cfg.CategoryCap = def.CategoryCap
	}
	if cfg.BoostCap <= 0 {
		cfg.BoostCap = def.BoostCap
	}
	if cfg.MinIdealLength <= 0 {
		cfg.MinIdealLength = def.MinIdealLength
	}
	if cfg.MaxIdealLength <= 0 {
		cfg.MaxIdealLength = def.MaxIdealLength
	}
	if cfg.MinLengthScore <= 0 {
		cfg.MinLengthScore = def.MinLengthScore
	}
	if cfg.Inherit <= 0 {
		cfg.Inherit = def.Inherit
	}
	if cfg.Categories == nil {
		cfg.Categories = def.Categories
	}
	if cfg.DocTypes == nil {
		cfg.DocTypes = def.DocTypes
	}
	return cfg
}

// Breakdown is the per-factor score of one ranked item.
type Breakdown struct {
	Persona  float64
	Job      float64
	Overall  float64 // Persona*PersonaWeight + Job*JobWeight.
	Title    float64
	Length   float64
	Position float64
	DocType  float64
	Final    float64
}

// Scorer is stateless after construction and safe for concurrent use.
type Scorer struct {
	cfg  Config
	sim  Similarity
	cats categoryIndex
}

// New builds a scorer, resolving the similarity provider by name.
func New(cfg Config) (*Scorer, error) {
	cfg = withDefaults(cfg)
	sim, err := NewSimilarity(cfg.Similarity)
	if err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, sim: sim, cats: indexCategories(cfg.Categories)}, nil
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Side scores text against one side of the query. A blank reference scores 0.
func (s *Scorer) Side(text, ref string) float64 {
	if strings.TrimSpace(ref) == "" {
		return 0
	}
	b := s.cats.boost(text, s.cfg.MatchWeight, s.cfg.CategoryCap, s.cfg.BoostCap)
	return clamp01(s.sim.Similarity(text, ref) + b)
}

// Relevance returns the persona, job and combined scores for text.
func (s *Scorer) Relevance(text string, q document.Query) (persona, job, overall float64) {
	persona = s.Side(text, q.Persona)
	job = s.Side(text, q.Job)
	return persona, job, s.combine(persona, job)
}

func (s *Scorer) combine(persona, job float64) float64 {
	return persona*PersonaWeight + job*JobWeight
}

// ScoreSection computes all factors for one section of a document of type dt.
func (s *Scorer) ScoreSection(sec *document.Section, q document.Query, dt DocType) Breakdown {
	var b Breakdown
	b.Persona, b.Job, b.Overall = s.Relevance(sec.Title+" "+sec.Content, q)
	b.Title = TitleBonus(sec.Title, q)
	b.Length = s.LengthFactor(len([]rune(sec.Content)))
	b.Position = PositionFactor(sec.Page)
	b.DocType = DocTypeBonus(dt, q.Job)

	w := s.cfg.Weights
	b.Final = clamp01(w.Relevance*b.Overall +
		w.Title*b.Title +
		w.Length*b.Length +
		w.Position*b.Position +
		w.DocType*b.DocType)
	return b
}

// ScoreSubUnit derives a sub-unit score from its parent section's score,
// scaled by the inheritance share and the sub-unit's own quality.
func (s *Scorer) ScoreSubUnit(u document.SubUnit, parent Breakdown) Breakdown {
	f := s.cfg.Inherit * SubUnitQuality(u.WordCount)
	var b Breakdown
	b.Persona = parent.Persona * f
	b.Job = parent.Job * f
	b.Overall = s.combine(b.Persona, b.Job)
	b.Final = b.Overall
	return b
}

// TitleBonus rewards titles that share words with the query.
func TitleBonus(title string, q document.Query) float64 {
	t := wordSet(title)
	share := func(ref string) float64 {
		r := wordSet(ref)
		if len(r) == 0 {
			return 0
		}
		n := 0
		for w := range r {
			if t[w] {
				n++
			}
		}
		return float64(n) / float64(len(r))
	}
	return (share(q.Persona)*PersonaWeight + share(q.Job)*JobWeight) * 0.5
}

// LengthFactor is 1 inside the ideal range, proportional below it and
// inversely proportional above it down to the configured floor.
func (s *Scorer) LengthFactor(n int) float64 {
	switch {
	case n < s.cfg.MinIdealLength:
		return float64(n) / float64(s.cfg.MinIdealLength)
	case n > s.cfg.MaxIdealLength:
		return max(s.cfg.MinLengthScore, float64(s.cfg.MaxIdealLength)/float64(n))
	}
	return 1
}

// PositionFactor prefers sections near the front of a document.
func PositionFactor(page int) float64 {
	switch {
	case page <= 3:
		return 1.0
	case page <= 10:
		return 0.9
	}
	return 0.8
}

// SubUnitQuality favors sub-units with enough words to stand alone.
func SubUnitQuality(wordCount int) float64 {
	if wordCount <= 5 {
		return 0.1
	}
	return min(float64(wordCount)/20, 1)
}
