package jobstore

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safescan/internal/model"
)

// Memory is the in-process volatile store. Records never expire; they live
// until the process exits.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*model.ResearchJob
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*model.ResearchJob)}
}

// Put stores a copy of job.
func (m *Memory) Put(_ context.Context, job *model.ResearchJob) error {
	if job == nil || job.ID == "" {
		return eris.New("memory: job id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a copy of the stored record.
func (m *Memory) Get(_ context.Context, id string) (*model.ResearchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Delete removes id if present.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// Len reports how many records are held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Close() error { return nil }
