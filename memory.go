package marmot

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Releasable represents any resource that can be released to free memory.
//
// Frames and Series implement this interface through Apache Arrow memory
// management. Always call Release() when done with a resource; the
// recommended pattern is defer for automatic cleanup:
//
//	f := marmot.NewFrame(names, foos)
//	defer f.Release()
type Releasable interface {
	Release()
}

// MemoryManager tracks multiple resources and releases them in bulk. It is
// useful when many short-lived frames are created in a loop and individual
// defer statements are impractical; for most use cases prefer defer with
// individual Release() calls.
//
// The MemoryManager is safe for concurrent use from multiple goroutines.
type MemoryManager struct {
	allocator memory.Allocator
	resources []Releasable
	mu        sync.Mutex
}

// NewMemoryManager creates a new memory manager with the given allocator.
func NewMemoryManager(allocator memory.Allocator) *MemoryManager {
	return &MemoryManager{
		allocator: allocator,
		resources: make([]Releasable, 0),
	}
}

// Allocator returns the underlying allocator for creating new resources.
func (m *MemoryManager) Allocator() memory.Allocator {
	return m.allocator
}

// Track adds a resource to be released by ReleaseAll.
func (m *MemoryManager) Track(resource Releasable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources = append(m.resources, resource)
}

// ReleaseAll releases every tracked resource in reverse tracking order and
// clears the tracking list.
func (m *MemoryManager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.resources) - 1; i >= 0; i-- {
		m.resources[i].Release()
	}
	m.resources = m.resources[:0]
}

// WithMemoryManager runs fn with a fresh manager and releases everything it
// tracked when fn returns, whether or not fn fails.
func WithMemoryManager(allocator memory.Allocator, fn func(*MemoryManager) error) error {
	manager := NewMemoryManager(allocator)
	defer manager.ReleaseAll()
	return fn(manager)
}
