package sessions

import (
	"context"
	"sync"

	"github.com/duplexagent/core/pkg/models"
)

// MemoryStore is an in-process Store backed by a mutex-guarded map. Records
// are deep-cloned on both read and write so callers can never mutate state
// out from under a concurrent reader.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, id string, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = cloneRecord(record)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func cloneRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	clone := &Record{
		Context:  cloneContext(rec.Context),
		Messages: make([]models.Message, len(rec.Messages)),
	}
	for i, msg := range rec.Messages {
		clone.Messages[i] = cloneMessage(msg)
	}
	return clone
}

func cloneContext(c models.ClientContext) models.ClientContext {
	clone := c
	if c.Capabilities != nil {
		clone.Capabilities = append([]string(nil), c.Capabilities...)
	}
	if c.Metadata != nil {
		clone.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

func cloneMessage(m models.Message) models.Message {
	clone := m
	if m.ToolCalls != nil {
		clone.ToolCalls = append([]models.ToolCall(nil), m.ToolCalls...)
	}
	return clone
}
