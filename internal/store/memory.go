package store

import (
	"context"
	"sync"

	"cinelist/internal/domain/film"
)

// Memory keeps everything in process memory. It is the default backend and
// the one the tests use.
type Memory struct {
	mu         sync.RWMutex
	lists      map[string]*film.ListSnapshot
	marks      map[string][]string
	enrichment map[string]*film.EnrichmentEntry
}

func NewMemory() *Memory {
	return &Memory{
		lists:      make(map[string]*film.ListSnapshot),
		marks:      make(map[string][]string),
		enrichment: make(map[string]*film.EnrichmentEntry),
	}
}

func (m *Memory) GetList(_ context.Context, key string) (*film.ListSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.lists[key]
	if !ok {
		return nil, nil
	}
	cp := *snap
	cp.Films = append([]film.Record(nil), snap.Films...)
	return &cp, nil
}

func (m *Memory) SaveList(_ context.Context, key string, snap *film.ListSnapshot) error {
	if snap == nil {
		return nil
	}
	cp := *snap
	cp.Films = append([]film.Record(nil), snap.Films...)
	m.mu.Lock()
	m.lists[key] = &cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetMarks(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.marks[key]...), nil
}

func (m *Memory) SaveMarks(_ context.Context, key string, marks []string) error {
	m.mu.Lock()
	m.marks[key] = append([]string(nil), marks...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetEnrichment(_ context.Context, filmID string) (*film.EnrichmentEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.enrichment[filmID]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (m *Memory) SaveEnrichment(_ context.Context, filmID string, entry *film.EnrichmentEntry) error {
	if entry == nil {
		return nil
	}
	cp := *entry
	m.mu.Lock()
	m.enrichment[filmID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
