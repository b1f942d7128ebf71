package memoryRegistry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"plugin-updater/registry"
)

var _ registry.Registry = (*MemoryRegistry)(nil)

// MemoryRegistry implements the registry interface using in-memory storage.
// Used for testing and dry runs.
type MemoryRegistry struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

// New creates a new memory-based registry
func New() *MemoryRegistry {
	return &MemoryRegistry{
		artifacts: make(map[string][]byte),
	}
}

// StoreArtifact stores an artifact in memory and returns its checksum
func (r *MemoryRegistry) StoreArtifact(
	_ context.Context,
	key registry.Key,
	reader io.Reader,
) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact content: %w", err)
	}

	r.mu.Lock()
	r.artifacts[key.ObjectName()] = content
	r.mu.Unlock()

	return registry.Checksum(content), nil
}

// GetArtifact retrieves a copy of the stored content
func (r *MemoryRegistry) GetArtifact(
	_ context.Context,
	key registry.Key,
) ([]byte, error) {
	r.mu.RLock()
	content, exists := r.artifacts[key.ObjectName()]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", registry.ErrArtifactNotFound, key)
	}

	// Return a copy to prevent external modifications
	result := make([]byte, len(content))
	copy(result, content)

	return result, nil
}

// DeleteArtifact deletes an artifact by key
func (r *MemoryRegistry) DeleteArtifact(_ context.Context, key registry.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.artifacts[key.ObjectName()]; !exists {
		return fmt.Errorf("failed to remove artifact: %w: %s", registry.ErrArtifactNotFound, key)
	}

	delete(r.artifacts, key.ObjectName())

	return nil
}

// Clear removes all artifacts from memory (useful for testing)
func (r *MemoryRegistry) Clear() {
	r.mu.Lock()
	r.artifacts = make(map[string][]byte)
	r.mu.Unlock()
}

// Count returns the number of artifacts stored (useful for testing)
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.artifacts)
}
