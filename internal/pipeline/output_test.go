package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/document"
)

func TestReadQueryFile_StringForms(t *testing.T) {
	f, err := ReadQueryFile(strings.NewReader(`{"persona": " Travel Planner ", "job_to_be_done": "Plan a trip"}`))
	require.NoError(t, err)
	assert.Equal(t, document.Query{Persona: "Travel Planner", Job: "Plan a trip"}, f.Query())
	assert.Empty(t, f.Filenames())
}

func TestReadQueryFile_ObjectForms(t *testing.T) {
	input := `{
		"documents": [{"filename": "a.pdf", "title": "A"}, {"filename": ""}, {"filename": "b.pdf"}],
		"persona": {"role": "HR professional"},
		"job_to_be_done": {"task": "Create fillable forms"}
	}`
	f, err := ReadQueryFile(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "HR professional", f.Query().Persona)
	assert.Equal(t, "Create fillable forms", f.Query().Job)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, f.Filenames())
}

func TestReadQueryFile_NullAndInvalid(t *testing.T) {
	f, err := ReadQueryFile(strings.NewReader(`{"persona": null}`))
	require.NoError(t, err)
	assert.True(t, f.Query().Empty())

	_, err = ReadQueryFile(strings.NewReader(`{"persona": 42}`))
	assert.Error(t, err)
}

func TestNewOutput_EmptyListsSerialize(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	out := NewOutput("run-1", []string{"a.pdf"}, document.Query{Persona: "p", Job: "j"}, nil, at)

	var buf bytes.Buffer
	require.NoError(t, out.WriteJSON(&buf))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["extracted_sections"]))
	assert.JSONEq(t, `[]`, string(raw["subsection_analysis"]))
	assert.Contains(t, buf.String(), `"processing_timestamp": "2025-01-02T03:04:05Z"`)
	assert.Contains(t, buf.String(), "\n    \"metadata\"")
}

func TestNewOutput_FromAnalysis(t *testing.T) {
	a := &Analysis{Profile: "full", Skipped: []string{"bad.pdf"}}
	out := NewOutput("", []string{"a.pdf", "bad.pdf"}, document.Query{}, a, time.Now())
	assert.Equal(t, "full", out.Metadata.Profile)
	assert.Equal(t, []string{"bad.pdf"}, out.Metadata.SkippedDocuments)
	assert.NotNil(t, out.ExtractedSections)
}
