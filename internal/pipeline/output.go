package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/rank"
)

// Metadata describes one analysis run.
type Metadata struct {
	RunID               string   `json:"run_id,omitempty"`
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
	Profile             string   `json:"profile"`
	SkippedDocuments    []string `json:"skipped_documents"`
}

// Output is the serialized result of an analysis run.
type Output struct {
	Metadata           Metadata            `json:"metadata"`
	ExtractedSections  []rank.SectionEntry `json:"extracted_sections"`
	SubsectionAnalysis []rank.SubUnitEntry `json:"subsection_analysis"`
}

// NewOutput assembles the output document. Lists are never nil so they
// serialize as empty arrays.
func NewOutput(runID string, inputs []string, q document.Query, a *Analysis, at time.Time) Output {
	out := Output{
		Metadata: Metadata{
			RunID:               runID,
			InputDocuments:      append([]string{}, inputs...),
			Persona:             q.Persona,
			JobToBeDone:         q.Job,
			ProcessingTimestamp: at.Format(time.RFC3339Nano),
			SkippedDocuments:    []string{},
		},
		ExtractedSections:  []rank.SectionEntry{},
		SubsectionAnalysis: []rank.SubUnitEntry{},
	}
	if a == nil {
		return out
	}
	out.Metadata.Profile = a.Profile
	out.Metadata.SkippedDocuments = append(out.Metadata.SkippedDocuments, a.Skipped...)
	out.ExtractedSections = append(out.ExtractedSections, a.Result.Sections...)
	out.SubsectionAnalysis = append(out.SubsectionAnalysis, a.Result.SubUnits...)
	return out
}

// WriteJSON writes o as indented JSON.
func (o Output) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// QueryFile is the analysis request file. Persona and job may each be a
// plain string or an object ({"role": ...} / {"task": ...}).
type QueryFile struct {
	Documents   []QueryDocument `json:"documents,omitempty"`
	Persona     flexText        `json:"persona"`
	JobToBeDone flexText        `json:"job_to_be_done"`
}

// NewQueryFile builds a request from plain persona and job text.
func NewQueryFile(persona, job string) QueryFile {
	return QueryFile{
		Persona:     flexText(strings.TrimSpace(persona)),
		JobToBeDone: flexText(strings.TrimSpace(job)),
	}
}

// QueryDocument names one input file the request is restricted to.
type QueryDocument struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
}

// Query returns the two-part query text.
func (f QueryFile) Query() document.Query {
	return document.Query{Persona: string(f.Persona), Job: string(f.JobToBeDone)}
}

// Filenames lists the documents named by the request, if any.
func (f QueryFile) Filenames() []string {
	var names []string
	for _, d := range f.Documents {
		if d.Filename != "" {
			names = append(names, d.Filename)
		}
	}
	return names
}

type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = flexText(strings.TrimSpace(s))
		return nil
	}
	var obj struct {
		Role        string `json:"role"`
		Task        string `json:"task"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expected string or object: %w", err)
	}
	for _, v := range []string{obj.Role, obj.Task, obj.Description} {
		if v = strings.TrimSpace(v); v != "" {
			*t = flexText(v)
			return nil
		}
	}
	*t = ""
	return nil
}

// ReadQueryFile decodes a query file.
func ReadQueryFile(r io.Reader) (QueryFile, error) {
	var f QueryFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return QueryFile{}, fmt.Errorf("decode query: %w", err)
	}
	return f, nil
}
