// Package store archives finished research runs.
package store

import (
	"context"
	"errors"
	"sync"

	"zonescout/internal/research/models"
	"zonescout/pkg/platform/sentinel"
)

// InMemoryStore keeps archived runs in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*models.Result
}

// NewInMemory creates an empty in-memory archive.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string]*models.Result)}
}

// Save stores a copy of the run.
func (s *InMemoryStore) Save(_ context.Context, result *models.Result) error {
	if result == nil {
		return errors.New("result is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[result.RunID] = cloneResult(result)
	return nil
}

// FindByID returns a copy of an archived run.
func (s *InMemoryStore) FindByID(_ context.Context, runID string) (*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneResult(r), nil
}

func cloneResult(r *models.Result) *models.Result {
	out := *r
	out.Record = r.Record.Clone()
	out.Evidence = append([]models.EvidenceItem(nil), r.Evidence...)
	out.CarriedEvidence = append([]models.EvidenceItem(nil), r.CarriedEvidence...)
	out.Sources = append([]models.Source(nil), r.Sources...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return &out
}
