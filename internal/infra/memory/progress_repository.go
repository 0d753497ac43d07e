package memory

import (
	"context"
	"sync"

	"cx-lms-service/internal/domain"
)

// ProgressRepository keeps progress documents in process memory; nothing survives a restart.
type ProgressRepository struct {
	mu   sync.RWMutex
	docs map[string]domain.Progress
}

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{docs: make(map[string]domain.Progress)}
}

func (r *ProgressRepository) Load(_ context.Context, learnerID string) (domain.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.docs[learnerID]; ok {
		return p.Clone(), nil
	}
	return domain.NewProgress(), nil
}

func (r *ProgressRepository) Save(_ context.Context, learnerID string, progress domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[learnerID] = progress.Clone()
	return nil
}
