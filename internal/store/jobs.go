// Package store holds the two process-wide in-memory stores: analysis jobs
// and the report cache. Both are volatile by design — a restart loses them,
// and the extension simply resubmits.
package store

import (
	"sync"
	"time"

	"github.com/clearterms/clearterms-backend/internal/report"
)

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

// Job is one analysis request. Terminal jobs stay in the store so the
// extension can keep polling after completion; only the reaper deletes them.
type Job struct {
	ID        string
	Status    JobStatus
	URL       string
	Content   string
	Language  string
	Result    report.Report
	Error     string
	CreatedAt time.Time
}

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

func (s *JobStore) Create(id, url, content, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &Job{
		ID:        id,
		Status:    JobQueued,
		URL:       url,
		Content:   content,
		Language:  language,
		CreatedAt: s.now(),
	}
}

// Get returns a snapshot copy so callers never observe a job mid-mutation.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// MarkRunning transitions a job from queued to running. It reports false for
// any other starting status, which makes re-entrant processing of the same
// job id a no-op.
func (s *JobStore) MarkRunning(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != JobQueued {
		return Job{}, false
	}
	j.Status = JobRunning
	return *j, true
}

func (s *JobStore) Complete(id string, result report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = JobDone
		j.Result = result
		j.Error = ""
	}
}

func (s *JobStore) Fail(id string, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = JobError
		j.Error = msg
	}
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// DeleteOlderThan removes jobs created more than age ago, regardless of
// status, and returns how many were removed.
func (s *JobStore) DeleteOlderThan(age time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-age)
	removed := 0
	for id, j := range s.jobs {
		if j.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
