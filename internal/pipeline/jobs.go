package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusAnalyzing JobStatus = "analyzing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Upload is one input file attached to a job.
type Upload struct {
	Filename string
	Data     []byte
}

// Job tracks the state of one analysis request over a batch of uploads.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Persona     string    `json:"persona"`
	JobToBeDone string    `json:"job_to_be_done"`
	Documents   []string  `json:"documents"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	uploads []Upload
	output  *Output
	stats   []DocStats
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalDocuments  int      `json:"total_documents"`
	DocumentsParsed int      `json:"documents_parsed"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(q QueryFile, uploads []Upload) *Job {
	now := time.Now()
	names := make([]string, 0, len(uploads))
	for _, u := range uploads {
		names = append(names, u.Filename)
	}
	query := q.Query()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Persona:     query.Persona,
		JobToBeDone: query.Job,
		Documents:   names,
		Progress:    Progress{TotalDocuments: len(uploads)},
		CreatedAt:   now,
		UpdatedAt:   now,
		uploads:     uploads,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// IncrParsed atomically increments the parsed document count.
func (j *Job) IncrParsed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DocumentsParsed++
	j.UpdatedAt = time.Now()
}

// Uploads returns the attached files.
func (j *Job) Uploads() []Upload {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.uploads
}

// SetOutput stores the finished result and releases the raw uploads.
func (j *Job) SetOutput(out Output, stats []DocStats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = &out
	j.stats = stats
	j.uploads = nil
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	Phase       string     `json:"phase"`
	Persona     string     `json:"persona"`
	JobToBeDone string     `json:"job_to_be_done"`
	Documents   []string   `json:"documents"`
	Progress    Progress   `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Stats       []DocStats `json:"document_stats,omitempty"`
	Result      *Output    `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	docs := append([]string{}, j.Documents...)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Persona:     j.Persona,
		JobToBeDone: j.JobToBeDone,
		Documents:   docs,
		Progress: Progress{
			TotalDocuments:  j.Progress.TotalDocuments,
			DocumentsParsed: j.Progress.DocumentsParsed,
			Errors:          errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		Stats:     j.stats,
		Result:    j.output,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
