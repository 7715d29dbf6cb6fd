// Package rank orders scored sections and sub-units across documents and
// formats them for output.
package rank

import (
	"math"
	"sort"

	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/score"
)

// Config bounds the ranked output.
type Config struct {
	MaxSections    int `yaml:"max_sections"`
	MaxSubUnits    int `yaml:"max_subunits"`
	PreviewLength  int `yaml:"preview_length"` // Runes of section content shown.
	RefinedLength  int `yaml:"refined_length"` // Runes of sub-unit text shown.
	MaxTitleLength int `yaml:"max_title_length"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSections:    10,
		MaxSubUnits:    12,
		PreviewLength:  200,
		RefinedLength:  150,
		MaxTitleLength: 100,
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaxSections <= 0 {
		cfg.MaxSections = def.MaxSections
	}
	if cfg.MaxSubUnits <= 0 {
		cfg.MaxSubUnits = def.MaxSubUnits
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = def.PreviewLength
	}
	if cfg.RefinedLength <= 0 {
		cfg.RefinedLength = def.RefinedLength
	}
	if cfg.MaxTitleLength <= 0 {
		cfg.MaxTitleLength = def.MaxTitleLength
	}
	return cfg
}

// SectionItem is a scored section awaiting ranking. DocIndex is the
// document's position in the input batch.
type SectionItem struct {
	Document string
	DocIndex int
	Section  *document.Section
	Score    score.Breakdown
}

// SubUnitItem is a scored sub-unit awaiting ranking.
type SubUnitItem struct {
	Document string
	DocIndex int
	Unit     document.SubUnit
	Score    score.Breakdown
}

// SectionEntry is one ranked section in the output.
type SectionEntry struct {
	Document       string  `json:"document"`
	PageNumber     int     `json:"page_number"`
	SectionTitle   string  `json:"section_title"`
	ImportanceRank int     `json:"importance_rank"`
	RelevanceScore float64 `json:"relevance_score"`
	ContentPreview string  `json:"content_preview"`
}

// SubUnitEntry is one ranked sub-unit in the output.
type SubUnitEntry struct {
	Document       string  `json:"document"`
	SectionTitle   string  `json:"section_title"`
	RefinedText    string  `json:"refined_text"`
	PageNumber     int     `json:"page_number"`
	ImportanceRank int     `json:"importance_rank"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Result holds both ranked lists, rank 1 first.
type Result struct {
	Sections []SectionEntry
	SubUnits []SubUnitEntry
}

// Rank sorts sections and sub-units by final score, truncates each list to
// its limit and assigns ranks 1..N. Neither input slice is modified.
func Rank(sections []SectionItem, subs []SubUnitItem, cfg Config) Result {
	cfg = withDefaults(cfg)

	secs := append([]SectionItem(nil), sections...)
	sort.SliceStable(secs, func(i, j int) bool {
		a, b := secs[i], secs[j]
		if a.Score.Final != b.Score.Final {
			return a.Score.Final > b.Score.Final
		}
		if a.DocIndex != b.DocIndex {
			return a.DocIndex < b.DocIndex
		}
		return a.Section.Position < b.Section.Position
	})
	if len(secs) > cfg.MaxSections {
		secs = secs[:cfg.MaxSections]
	}

	units := append([]SubUnitItem(nil), subs...)
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.Score.Final != b.Score.Final {
			return a.Score.Final > b.Score.Final
		}
		if a.DocIndex != b.DocIndex {
			return a.DocIndex < b.DocIndex
		}
		if pa, pb := a.Unit.Section.Position, b.Unit.Section.Position; pa != pb {
			return pa < pb
		}
		return a.Unit.Index < b.Unit.Index
	})
	if len(units) > cfg.MaxSubUnits {
		units = units[:cfg.MaxSubUnits]
	}

	res := Result{
		Sections: make([]SectionEntry, 0, len(secs)),
		SubUnits: make([]SubUnitEntry, 0, len(units)),
	}
	for i, it := range secs {
		res.Sections = append(res.Sections, SectionEntry{
			Document:       it.Document,
			PageNumber:     it.Section.Page,
			SectionTitle:   CleanTitle(it.Section.Title, cfg.MaxTitleLength),
			ImportanceRank: i + 1,
			RelevanceScore: Round3(it.Score.Final),
			ContentPreview: Truncate(it.Section.Content, cfg.PreviewLength),
		})
	}
	for i, it := range units {
		res.SubUnits = append(res.SubUnits, SubUnitEntry{
			Document:       it.Document,
			SectionTitle:   CleanTitle(it.Unit.Section.Title, cfg.MaxTitleLength),
			RefinedText:    Refine(it.Unit.Text, cfg.RefinedLength),
			PageNumber:     it.Unit.Section.Page,
			ImportanceRank: i + 1,
			RelevanceScore: Round3(it.Score.Final),
		})
	}
	return res
}

// Round3 rounds to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
