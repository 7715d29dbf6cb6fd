package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/features"
	"github.com/dgallion1/docrank/internal/rank"
	"github.com/dgallion1/docrank/internal/score"
	"github.com/dgallion1/docrank/internal/segment"
)

// ErrNoDocuments is returned when no input document could be analyzed.
var ErrNoDocuments = errors.New("no documents could be processed")

// DocStats summarizes one analyzed document.
type DocStats struct {
	Document         string   `json:"document"`
	Pages            int      `json:"pages"`
	Sections         int      `json:"sections"`
	SubUnits         int      `json:"subunits"`
	AvgSectionLength float64  `json:"avg_section_length"`
	DocType          string   `json:"doc_type"`
	TopKeywords      []string `json:"top_keywords"` // Keywords of the best-scoring section.
}

// Analysis is the outcome of one run over a batch of documents.
type Analysis struct {
	Result   rank.Result
	Stats    []DocStats
	Skipped  []string
	Profile  string
	Duration time.Duration
}

// compiled is the immutable per-profile state shared by concurrent runs.
type compiled struct {
	profile config.Profile
	seg     *segment.Segmenter
	scorer  *score.Scorer
}

func compile(p config.Profile) (*compiled, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sc, err := score.New(p.Score)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	return &compiled{profile: p, seg: segment.New(p.Segment), scorer: sc}, nil
}

// Analyzer runs segmentation, feature extraction and scoring per document,
// then ranks globally. It is safe for concurrent use.
type Analyzer struct {
	state         atomic.Pointer[compiled]
	maxConcurrent int
	log           *slog.Logger
	stats         *RunStats
}

// NewAnalyzer validates the profile and builds an analyzer that processes up
// to maxConcurrent documents at once.
func NewAnalyzer(p config.Profile, maxConcurrent int, log *slog.Logger) (*Analyzer, error) {
	c, err := compile(p)
	if err != nil {
		return nil, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	a := &Analyzer{maxConcurrent: maxConcurrent, log: log, stats: NewRunStats(time.Hour)}
	a.state.Store(c)
	return a, nil
}

// SetProfile swaps the ranking profile. Runs already in flight keep the
// profile they started with.
func (a *Analyzer) SetProfile(p config.Profile) error {
	c, err := compile(p)
	if err != nil {
		return err
	}
	a.state.Store(c)
	return nil
}

// Profile returns the active profile.
func (a *Analyzer) Profile() config.Profile {
	return a.state.Load().profile
}

// Stats returns the rolling run-latency tracker.
func (a *Analyzer) Stats() *RunStats {
	return a.stats
}

type docResult struct {
	idx   int
	name  string
	secs  []rank.SectionItem
	subs  []rank.SubUnitItem
	stats DocStats
	err   error
}

// Analyze scores every document against q and ranks the results. Documents
// that fail are logged and skipped. The ranking is independent of the order
// in which documents finish.
func (a *Analyzer) Analyze(ctx context.Context, docs []*document.Document, q document.Query) (*Analysis, error) {
	start := time.Now()
	c := a.state.Load()

	results := make(chan docResult, len(docs))
	sem := make(chan struct{}, a.maxConcurrent)
	scheduled := 0

schedule:
	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		scheduled++
		go func(i int, doc *document.Document) {
			defer func() { <-sem }()
			results <- c.analyzeDocument(i, doc, q)
		}(i, doc)
	}

	slots := make([]*docResult, len(docs))
	for range scheduled {
		r := <-results
		slots[r.idx] = &r
	}

	out := &Analysis{Profile: c.profile.Name}
	var secs []rank.SectionItem
	var subs []rank.SubUnitItem
	for i, r := range slots {
		if r == nil {
			out.Skipped = append(out.Skipped, docName(i, docs[i]))
			continue
		}
		if r.err != nil {
			a.log.Warn("document skipped", "document", r.name, "error", r.err)
			out.Skipped = append(out.Skipped, r.name)
			continue
		}
		a.log.Debug("document analyzed",
			"document", r.name,
			"pages", r.stats.Pages,
			"sections", r.stats.Sections,
			"subunits", r.stats.SubUnits,
			"avg_section_length", r.stats.AvgSectionLength,
			"doc_type", r.stats.DocType,
		)
		out.Stats = append(out.Stats, r.stats)
		secs = append(secs, r.secs...)
		subs = append(subs, r.subs...)
	}

	if len(out.Stats) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDocuments, err)
		}
		return nil, ErrNoDocuments
	}

	out.Result = rank.Rank(secs, subs, c.profile.Rank)
	out.Duration = time.Since(start)
	a.stats.Record(out.Duration, len(docs), len(out.Skipped))
	return out, nil
}

// analyzeDocument runs the per-document chain. A panic in any stage is
// reported as an error for that document only.
func (c *compiled) analyzeDocument(idx int, doc *document.Document, q document.Query) (res docResult) {
	res = docResult{idx: idx, name: docName(idx, doc)}
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
		}
	}()

	sections := c.seg.Segment(doc)
	dt := c.scorer.ClassifyDocument(doc.Filename, sections)
	res.stats = DocStats{
		Document: doc.Filename,
		Pages:    len(doc.Pages),
		Sections: len(sections),
		DocType:  dt.Name,
	}

	total := 0
	best := -1.0
	for i := range sections {
		sec := &sections[i]
		total += utf8.RuneCountInString(sec.Content)

		b := c.scorer.ScoreSection(sec, q, dt)
		res.secs = append(res.secs, rank.SectionItem{Document: doc.Filename, DocIndex: idx, Section: sec, Score: b})

		f := features.Extract(sec, c.profile.Features)
		if b.Final > best {
			best = b.Final
			res.stats.TopKeywords = f.Keywords
		}
		for _, u := range f.SubUnits {
			res.subs = append(res.subs, rank.SubUnitItem{
				Document: doc.Filename,
				DocIndex: idx,
				Unit:     u,
				Score:    c.scorer.ScoreSubUnit(u, b),
			})
		}
	}
	res.stats.SubUnits = len(res.subs)
	if len(sections) > 0 {
		res.stats.AvgSectionLength = float64(total) / float64(len(sections))
	}
	return res
}

func docName(idx int, doc *document.Document) string {
	if doc == nil {
		return fmt.Sprintf("document[%d]", idx)
	}
	return doc.Filename
}
