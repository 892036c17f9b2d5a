package directory

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrDirectoryUnavailable wraps any provider/department fetch failure so the
// workflow can surface a retryable error instead of a hard failure.
var ErrDirectoryUnavailable = errors.New("directory: provider directory unavailable")

// Repository supplies the provider and department listings. The workflow
// loads both once per entry; a manual retry re-issues both fetches.
type Repository interface {
	ListProviders(ctx context.Context) ([]Provider, error)
	ListDepartments(ctx context.Context) ([]Department, error)
}

// InMemoryRepository serves a fixed directory. Used in tests and local
// development without a database.
type InMemoryRepository struct {
	mu          sync.RWMutex
	providers   []Provider
	departments []Department
	failNext    int
}

// NewInMemoryRepository creates a repository seeded with the given listings.
func NewInMemoryRepository(providers []Provider, departments []Department) *InMemoryRepository {
	return &InMemoryRepository{providers: providers, departments: departments}
}

// FailNext makes the next n fetches fail. Lets tests drive the retryable
// fetch-error path.
func (r *InMemoryRepository) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = n
}

func (r *InMemoryRepository) takeFailure() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return true
	}
	return false
}

// ListProviders returns a copy of the seeded providers sorted by name.
func (r *InMemoryRepository) ListProviders(ctx context.Context) ([]Provider, error) {
	if r.takeFailure() {
		return nil, ErrDirectoryUnavailable
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListDepartments returns a copy of the seeded departments sorted by name.
func (r *InMemoryRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	if r.takeFailure() {
		return nil, ErrDirectoryUnavailable
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Department, len(r.departments))
	copy(out, r.departments)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
