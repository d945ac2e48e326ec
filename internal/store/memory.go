// Package store holds append-only submission stores.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mind-engage/assessment-engine/internal/exam"
)

var ErrDuplicate = errors.New("submission already stored")

type Memory struct {
	mu      sync.RWMutex
	records map[string][]exam.Submission
}

func NewMemory() *Memory {
	return &Memory{records: map[string][]exam.Submission{}}
}

func (m *Memory) AppendSubmission(_ context.Context, collection string, rec exam.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records[collection] {
		if r.ID == rec.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
		}
	}
	m.records[collection] = append(m.records[collection], rec)
	return nil
}

// List returns the collection in append order.
func (m *Memory) List(_ context.Context, collection string) ([]exam.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]exam.Submission(nil), m.records[collection]...), nil
}

// SubmittedAttempts returns the IDs of learnerID's stored submissions for
// subjectID in append order.
func (m *Memory) SubmittedAttempts(_ context.Context, collection, subjectID, learnerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, r := range m.records[collection] {
		if r.SubjectID == subjectID && r.LearnerID == learnerID {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}
