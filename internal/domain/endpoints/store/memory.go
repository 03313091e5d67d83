package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"liveness-playground/internal/platform/errors"
)

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]Record
}

func NewMemory() Store {
	return &memoryStore{items: make(map[string]Record)}
}

func (s *memoryStore) Put(_ context.Context, rec Record) error {
	if rec.Tag == "" {
		return errors.New(errors.KindValidation, "endpoint_store.put", "tag required")
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[rec.Tag]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Headers = copyHeaders(rec.Headers)
	s.items[rec.Tag] = rec
	return nil
}

func (s *memoryStore) Get(_ context.Context, tag string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[tag]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Headers = copyHeaders(rec.Headers)
	return rec, nil
}

func (s *memoryStore) Remove(_ context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, tag)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.items))
	for _, rec := range s.items {
		rec.Headers = copyHeaders(rec.Headers)
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sortRecords(out)
	return out, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Position != records[j].Position {
			return records[i].Position < records[j].Position
		}
		return records[i].Tag < records[j].Tag
	})
}

func copyHeaders(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
