package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/document"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnalyzer(t *testing.T, preset string) *Analyzer {
	t.Helper()
	p, err := config.Preset(preset)
	require.NoError(t, err)
	a, err := NewAnalyzer(p, 2, discardLogger())
	require.NoError(t, err)
	return a
}

func researchPaper() *document.Document {
	return &document.Document{
		Filename: "paper.pdf",
		Pages: []document.Page{
			{Number: 1, Text: "ABSTRACT\nThis paper studies graph neural networks for drug discovery."},
			{Number: 2, Text: "INTRODUCTION\nDrug discovery is expensive and slow."},
		},
	}
}

var drugQuery = document.Query{Persona: "drug discovery researcher", Job: "find methods for drug discovery"}

func TestAnalyze_AbstractOutranksIntroduction(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)

	out, err := a.Analyze(context.Background(), []*document.Document{researchPaper()}, drugQuery)
	require.NoError(t, err)
	require.Len(t, out.Result.Sections, 2)

	first, second := out.Result.Sections[0], out.Result.Sections[1]
	assert.Equal(t, "ABSTRACT", first.SectionTitle)
	assert.Equal(t, 1, first.PageNumber)
	assert.Equal(t, "INTRODUCTION", second.SectionTitle)
	assert.Equal(t, 2, second.PageNumber)
	assert.Equal(t, 1, first.ImportanceRank)
	assert.Equal(t, 2, second.ImportanceRank)
	assert.GreaterOrEqual(t, first.RelevanceScore, second.RelevanceScore)

	require.Len(t, out.Stats, 1)
	assert.Equal(t, 2, out.Stats[0].Pages)
	assert.Equal(t, 2, out.Stats[0].Sections)
	assert.Equal(t, config.PresetLite, out.Profile)
	assert.Empty(t, out.Skipped)
}

func TestAnalyze_NoDocuments(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	_, err := a.Analyze(context.Background(), nil, drugQuery)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestAnalyze_FailingDocumentSkipped(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	docs := []*document.Document{nil, researchPaper()}

	out, err := a.Analyze(context.Background(), docs, drugQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"document[0]"}, out.Skipped)
	assert.Len(t, out.Result.Sections, 2)
}

func TestAnalyze_EmptyDocumentContributesNothing(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	empty := &document.Document{Filename: "blank.txt"}

	out, err := a.Analyze(context.Background(), []*document.Document{empty, researchPaper()}, drugQuery)
	require.NoError(t, err)
	assert.Empty(t, out.Skipped)
	assert.Len(t, out.Stats, 2)
	assert.Len(t, out.Result.Sections, 2)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newAnalyzer(t, config.PresetFull)
	other := &document.Document{
		Filename: "notes.txt",
		Pages: []document.Page{{Number: 1, Text: "METHODS\nWe screen candidate molecules for drug discovery with graph models.\n\nRESULTS\nThe screening found three promising compounds for further trials."}},
	}
	docs := []*document.Document{researchPaper(), other, researchPaper()}
	docs[2].Filename = "copy.pdf"

	first, err := a.Analyze(context.Background(), docs, drugQuery)
	require.NoError(t, err)
	for range 5 {
		again, err := a.Analyze(context.Background(), docs, drugQuery)
		require.NoError(t, err)
		assert.Equal(t, first.Result, again.Result)
	}

	// Identical sections tie on score and keep input order.
	var paper, copied int
	for i, s := range first.Result.Sections {
		assert.Equal(t, i+1, s.ImportanceRank)
		if s.SectionTitle == "ABSTRACT" {
			switch s.Document {
			case "paper.pdf":
				paper = s.ImportanceRank
			case "copy.pdf":
				copied = s.ImportanceRank
			}
		}
	}
	assert.Less(t, paper, copied)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, []*document.Document{researchPaper()}, drugQuery)
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_SetProfile(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	full, err := config.Preset(config.PresetFull)
	require.NoError(t, err)

	require.NoError(t, a.SetProfile(full))
	assert.Equal(t, config.PresetFull, a.Profile().Name)

	bad := full
	bad.Score.Similarity = "nope"
	assert.Error(t, a.SetProfile(bad))
	assert.Equal(t, config.PresetFull, a.Profile().Name)
}

func TestAnalyze_RecordsRunStats(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	_, err := a.Analyze(context.Background(), []*document.Document{researchPaper()}, drugQuery)
	require.NoError(t, err)

	snap := a.Stats().Snapshot()
	assert.Equal(t, 1, snap.Runs)
	assert.Equal(t, 1, snap.Documents)
}
