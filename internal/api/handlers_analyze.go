package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docrank/internal/pipeline"
)

// handleAnalyze accepts a multipart form with one or more "files" and either
// a "query" JSON part or "persona" and "job" fields. Files the worker cannot
// decode are recorded as job errors.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	q, err := formQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	wanted := make(map[string]bool)
	for _, name := range q.Filenames() {
		wanted[sanitizeFilename(name)] = true
	}

	var uploads []pipeline.Upload
	var total int64
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if len(wanted) > 0 && !wanted[filename] {
			continue
		}
		data, err := readPart(fh, s.cfg.MaxUploadBytes-total)
		if err != nil {
			jsonError(w, fmt.Sprintf("%s: %s", filename, err), http.StatusRequestEntityTooLarge)
			return
		}
		total += int64(len(data))
		uploads = append(uploads, pipeline.Upload{Filename: filename, Data: data})
	}
	if len(uploads) == 0 {
		jsonError(w, "no uploaded file matches the query documents", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(q, uploads)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    job.ID,
		"status":    pipeline.StatusQueued,
		"documents": len(uploads),
		"poll_url":  fmt.Sprintf("/api/analyze/%s", job.ID),
	})
}

// formQuery reads the query from a "query" file part or field, falling back
// to plain form values.
func formQuery(r *http.Request) (pipeline.QueryFile, error) {
	if fhs := r.MultipartForm.File["query"]; len(fhs) > 0 {
		f, err := fhs[0].Open()
		if err != nil {
			return pipeline.QueryFile{}, fmt.Errorf("open query: %w", err)
		}
		defer f.Close()
		return pipeline.ReadQueryFile(f)
	}
	if v := r.FormValue("query"); v != "" {
		return pipeline.ReadQueryFile(strings.NewReader(v))
	}
	return pipeline.NewQueryFile(r.FormValue("persona"), r.FormValue("job")), nil
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("upload exceeds max size")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("upload exceeds max size")
	}
	return data, nil
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleAnalyzeResult returns the output document of a finished job.
func (s *Server) handleAnalyzeResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Result == nil {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := snap.Result.WriteJSON(w); err != nil {
		s.log.Error("write result", "job_id", snap.ID, "error", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
