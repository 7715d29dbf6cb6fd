package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/pipeline"
)

const testKey = "secret"

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		DocrankAPIKey:     testKey,
		WorkerCount:       1,
		MaxQueueSize:      4,
		MaxConcurrentDocs: 2,
		MaxUploadBytes:    1 << 20,
		JobTTL:            time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := config.Preset(config.PresetLite)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	a, err := pipeline.NewAnalyzer(p, cfg.MaxConcurrentDocs, log)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	orch := pipeline.NewOrchestrator(cfg, a, log)
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)

	ts := httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(func() {
		ts.Close()
		cancel()
		orch.Stop()
	})
	return ts
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, method, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// waitForJob polls until the job leaves the queued and in-progress states.
func waitForJob(t *testing.T, url string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var snap pipeline.JobSnapshot
		decode(t, do(t, http.MethodGet, url, nil, ""), &snap)
		switch snap.Status {
		case pipeline.StatusCompleted, pipeline.StatusPartial, pipeline.StatusFailed:
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	ts := newTestServer(t, nil)

	paper := "ABSTRACT\nThis paper studies graph neural networks for drug discovery.\f" +
		"INTRODUCTION\nDrug discovery is expensive and slow."
	body, ct := multipartBody(t,
		map[string]string{"persona": "drug discovery researcher", "job": "find methods for drug discovery"},
		map[string]string{"paper.txt": paper},
	)
	resp := do(t, http.MethodPost, ts.URL+"/api/analyze", body, ct)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, resp, &accepted)
	if accepted.JobID == "" || accepted.PollURL != "/api/analyze/"+accepted.JobID {
		t.Fatalf("unexpected accept body %+v", accepted)
	}

	if snap := waitForJob(t, ts.URL+accepted.PollURL); snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}

	var out pipeline.Output
	decode(t, do(t, http.MethodGet, ts.URL+accepted.PollURL+"/result", nil, ""), &out)
	if len(out.ExtractedSections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(out.ExtractedSections))
	}
	if out.ExtractedSections[0].SectionTitle != "ABSTRACT" || out.ExtractedSections[0].ImportanceRank != 1 {
		t.Errorf("expected ABSTRACT ranked first, got %+v", out.ExtractedSections[0])
	}
	if out.Metadata.Persona != "drug discovery researcher" {
		t.Errorf("unexpected persona %q", out.Metadata.Persona)
	}
}

func TestAnalyze_UnsupportedFileFailsJob(t *testing.T) {
	ts := newTestServer(t, nil)
	body, ct := multipartBody(t, map[string]string{"persona": "p", "job": "j"}, map[string]string{"data.csv": "a,b"})
	resp := do(t, http.MethodPost, ts.URL+"/api/analyze", body, ct)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		PollURL string `json:"poll_url"`
	}
	decode(t, resp, &accepted)

	snap := waitForJob(t, ts.URL+accepted.PollURL)
	if snap.Status != pipeline.StatusFailed {
		t.Fatalf("expected failed job, got %q", snap.Status)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected recorded errors")
	}

	resp = do(t, http.MethodGet, ts.URL+accepted.PollURL+"/result", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for missing result, got %d", resp.StatusCode)
	}
}

func TestAnalyze_QueryRestrictsDocuments(t *testing.T) {
	ts := newTestServer(t, nil)
	query := `{"documents":[{"filename":"keep.txt"}],"persona":{"role":"Analyst"},"job_to_be_done":{"task":"Summarize"}}`
	body, ct := multipartBody(t,
		map[string]string{"query": query},
		map[string]string{"keep.txt": "Some text worth keeping around for a while.", "skip.txt": "Other text."},
	)
	resp := do(t, http.MethodPost, ts.URL+"/api/analyze", body, ct)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		Documents int `json:"documents"`
	}
	decode(t, resp, &accepted)
	if accepted.Documents != 1 {
		t.Errorf("expected 1 document after filtering, got %d", accepted.Documents)
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})

	first := do(t, http.MethodPost, ts.URL+"/api/analyze", nil, "")
	first.Body.Close()
	if first.StatusCode == http.StatusTooManyRequests {
		t.Fatal("first request should not be rate limited")
	}
	second := do(t, http.MethodPost, ts.URL+"/api/analyze", nil, "")
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", second.StatusCode)
	}
}

func TestStatusNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := do(t, http.MethodGet, ts.URL+"/api/analyze/missing", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, nil)
	var stats struct {
		Profile string `json:"profile"`
	}
	decode(t, do(t, http.MethodGet, ts.URL+"/api/stats", nil, ""), &stats)
	if stats.Profile != config.PresetLite {
		t.Errorf("expected profile %q, got %q", config.PresetLite, stats.Profile)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		"dir/report.pdf":   "report.pdf",
		"":                 "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
