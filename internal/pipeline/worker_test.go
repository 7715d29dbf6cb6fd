package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/parser"
)

const paperText = "ABSTRACT\nThis paper studies graph neural networks for drug discovery.\f" +
	"INTRODUCTION\nDrug discovery is expensive and slow."

func drugQueryFile() QueryFile {
	return QueryFile{Persona: "drug discovery researcher", JobToBeDone: "find methods for drug discovery"}
}

func TestWorker_ProcessCompletes(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	w := NewWorker(a, parser.Options{}, discardLogger())
	job := NewJob(drugQueryFile(), []Upload{{Filename: "paper.txt", Data: []byte(paperText)}})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 1, snap.Progress.DocumentsParsed)
	require.NotNil(t, snap.Result)
	require.Len(t, snap.Result.ExtractedSections, 2)
	assert.Equal(t, "ABSTRACT", snap.Result.ExtractedSections[0].SectionTitle)
	assert.Equal(t, job.ID, snap.Result.Metadata.RunID)
	assert.Equal(t, []string{"paper.txt"}, snap.Result.Metadata.InputDocuments)
	assert.Nil(t, job.Uploads())
}

func TestWorker_ProcessPartial(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	w := NewWorker(a, parser.Options{}, discardLogger())
	job := NewJob(drugQueryFile(), []Upload{
		{Filename: "paper.txt", Data: []byte(paperText)},
		{Filename: "again.txt", Data: []byte(paperText)},
		{Filename: "sheet.csv", Data: []byte("a,b")},
	})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 1, snap.Progress.DocumentsParsed)
	assert.Len(t, snap.Progress.Errors, 2)
	assert.Contains(t, snap.Progress.Errors[0], "duplicate of paper.txt")
}

func TestWorker_ProcessFailsWithoutDocuments(t *testing.T) {
	a := newAnalyzer(t, config.PresetLite)
	w := NewWorker(a, parser.Options{}, discardLogger())
	job := NewJob(drugQueryFile(), []Upload{{Filename: "sheet.csv", Data: []byte("a,b")}})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Nil(t, snap.Result)
}
