package operations

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"wbbcli/internal/config"
	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// RunStatus is the lifecycle state of a hosted run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is a pipeline run started by a host
type Run struct {
	ID         string                  `json:"id"`
	Status     RunStatus               `json:"status"`
	InputDir   string                  `json:"input_dir"`
	OutputDir  string                  `json:"output_dir"`
	Processing config.ProcessingConfig `json:"processing"`
	CreatedAt  time.Time               `json:"created_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
	Summary    *domain.RunSummary      `json:"summary,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// RunFilter narrows List results
type RunFilter struct {
	Status RunStatus
	Limit  int
}

// MemoryRunStore keeps runs in memory for the lifetime of the process
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryRunStore creates an empty store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*Run)}
}

// Create adds a new run
func (s *MemoryRunStore) Create(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return apperrors.NewAppValidationError(fmt.Sprintf("run %s already exists", run.ID))
	}
	s.runs[run.ID] = run
	return nil
}

// Get returns a copy of the run with the given id
func (s *MemoryRunStore) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, apperrors.NewNotFoundError("run " + id)
	}
	runCopy := *run
	return &runCopy, nil
}

// Update replaces an existing run
func (s *MemoryRunStore) Update(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		return apperrors.NewNotFoundError("run " + run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// List returns copies of the matching runs, newest first
func (s *MemoryRunStore) List(filter RunFilter) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runCopy := *run
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

// Delete removes a run
func (s *MemoryRunStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return apperrors.NewNotFoundError("run " + id)
	}
	delete(s.runs, id)
	return nil
}

// CleanupFinished removes finished runs older than the given age
func (s *MemoryRunStore) CleanupFinished(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, run := range s.runs {
		if run.FinishedAt != nil && run.FinishedAt.Before(cutoff) {
			delete(s.runs, id)
			removed++
		}
	}
	return removed
}
