package memory

import (
	"context"
	"sync"

	"cx-lms-service/internal/domain"
)

// OfflineStore holds module and section snapshots behind one lock, so every write,
// delete and clear is atomic for readers.
type OfflineStore struct {
	mu       sync.RWMutex
	modules  map[string]domain.OfflineModuleRecord
	sections map[string]map[string]domain.OfflineSection // moduleID -> key -> section
}

func NewOfflineStore() *OfflineStore {
	return &OfflineStore{
		modules:  make(map[string]domain.OfflineModuleRecord),
		sections: make(map[string]map[string]domain.OfflineSection),
	}
}

func (s *OfflineStore) PutSnapshot(_ context.Context, record domain.OfflineModuleRecord, sections []domain.OfflineSection) error {
	byKey := make(map[string]domain.OfflineSection, len(sections))
	for _, sec := range sections {
		byKey[sec.Key] = sec
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[record.ModuleID] = record
	s.sections[record.ModuleID] = byKey
	return nil
}

func (s *OfflineStore) DeleteModule(_ context.Context, moduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modules, moduleID)
	delete(s.sections, moduleID)
	return nil
}

func (s *OfflineStore) Module(_ context.Context, moduleID string) (domain.OfflineModuleRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.modules[moduleID]
	return rec, ok, nil
}

func (s *OfflineStore) Modules(_ context.Context) ([]domain.OfflineModuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OfflineModuleRecord, 0, len(s.modules))
	for _, rec := range s.modules {
		out = append(out, rec)
	}
	return out, nil
}

func (s *OfflineStore) Sections(_ context.Context, moduleID string) ([]domain.OfflineSection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OfflineSection, 0, len(s.sections[moduleID]))
	for _, sec := range s.sections[moduleID] {
		out = append(out, sec)
	}
	return out, nil
}

func (s *OfflineStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules = make(map[string]domain.OfflineModuleRecord)
	s.sections = make(map[string]map[string]domain.OfflineSection)
	return nil
}
