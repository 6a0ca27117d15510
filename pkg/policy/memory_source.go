package policy

import "sync"

// MemorySource serves a policy held in memory
type MemorySource struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewMemorySource creates a source serving data
func NewMemorySource(data map[string]interface{}) *MemorySource {
	return &MemorySource{data: data}
}

// LoadRawData implements Source
func (s *MemorySource) LoadRawData() (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, nil
}

// SetData replaces the served policy
func (s *MemorySource) SetData(data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}
