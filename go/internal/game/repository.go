package game

import (
	"context"
	"sort"
	"sync"

	"github.com/mcdev12/clicker/go/internal/models"
)

// MemoryRepository keeps subjects in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	subjects map[string]models.Subject
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subjects: make(map[string]models.Subject)}
}

// Seed inserts or replaces subjects.
func (r *MemoryRepository) Seed(subjects ...models.Subject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range subjects {
		r.subjects[s.ID] = s
	}
}

// GetSubject returns a copy of the stored subject
func (r *MemoryRepository) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subjects[id]
	if !ok {
		return nil, ErrSubjectNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) SaveSubject(ctx context.Context, subject *models.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subjects[subject.ID]; !ok {
		return ErrSubjectNotFound
	}
	r.subjects[subject.ID] = *subject
	return nil
}

// ListSubjects returns every subject ordered by id
func (r *MemoryRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Subject, 0, len(r.subjects))
	for _, s := range r.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
