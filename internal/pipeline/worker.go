package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/parser"
)

// Worker processes a single analysis job.
type Worker struct {
	analyzer *Analyzer
	parse    parser.Options
	log      *slog.Logger
}

func NewWorker(a *Analyzer, opts parser.Options, log *slog.Logger) *Worker {
	if opts.Log == nil {
		opts.Log = log
	}
	return &Worker{analyzer: a, parse: opts, log: log}
}

// Process parses every upload, then ranks the batch against the job's query.
// Files that fail to parse are recorded and the rest still run.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	uploads := job.Uploads()
	docs := w.parseUploads(job, uploads, log)
	if len(docs) == 0 {
		job.AddError("no parseable documents")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 2: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	q := document.Query{Persona: job.Persona, Job: job.JobToBeDone}
	analysis, err := w.analyzer.Analyze(ctx, docs, q)
	if err != nil {
		log.Error("analysis failed", "error", err)
		job.AddError(fmt.Sprintf("analyze: %s", err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			job.SetStatus(StatusFailed, "cancelled")
			return
		}
		job.SetStatus(StatusFailed, "analyzing")
		return
	}

	names := make([]string, 0, len(uploads))
	for _, u := range uploads {
		names = append(names, u.Filename)
	}
	for _, name := range analysis.Skipped {
		job.AddError(fmt.Sprintf("%s: skipped during analysis", name))
	}
	job.SetOutput(NewOutput(job.ID, names, q, analysis, time.Now()), analysis.Stats)

	snap := job.Snapshot()
	log.Info("job complete",
		"documents", len(docs),
		"sections", len(analysis.Result.Sections),
		"subunits", len(analysis.Result.SubUnits),
		"errors", len(snap.Progress.Errors),
		"duration_ms", analysis.Duration.Milliseconds(),
	)
	if len(snap.Progress.Errors) > 0 {
		job.SetStatus(StatusPartial, "done_with_errors")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}

// parseUploads decodes each upload in order. Byte-identical uploads are
// parsed once.
func (w *Worker) parseUploads(job *Job, uploads []Upload, log *slog.Logger) []*document.Document {
	seen := make(map[string]string, len(uploads))
	var docs []*document.Document
	for _, u := range uploads {
		hash := ContentHashHex(u.Data)
		if first, dup := seen[hash]; dup {
			log.Info("duplicate upload, skipping", "document", u.Filename, "duplicate_of", first)
			job.AddError(fmt.Sprintf("%s: duplicate of %s", u.Filename, first))
			continue
		}
		seen[hash] = u.Filename

		p, err := parser.ForFile(u.Filename, w.parse)
		if err != nil {
			log.Warn("unsupported format", "document", u.Filename, "error", err)
			job.AddError(fmt.Sprintf("%s: %s", u.Filename, err))
			continue
		}
		doc, err := p.Parse(bytes.NewReader(u.Data), u.Filename)
		if err != nil {
			log.Warn("parse failed", "document", u.Filename, "error", err)
			job.AddError(fmt.Sprintf("%s: parse: %s", u.Filename, err))
			continue
		}
		job.IncrParsed()
		docs = append(docs, doc)
	}
	return docs
}
