package policy

import (
	"sort"
	"sync"
	"time"
)

// Store is a thread-safe in-memory policy registry. Reloads replace the
// whole set atomically, and every mutation bumps a monotonic version
// counter so callers can detect staleness cheaply.
type Store struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	version  uint64
	loadTime time.Time
}

// NewStore creates an empty policy store.
func NewStore() *Store {
	return &Store{
		policies: make(map[string]*Policy),
		loadTime: time.Now().UTC(),
	}
}

// Put adds or replaces a policy by ID.
func (s *Store) Put(p *Policy) error {
	if p == nil {
		return &StoreError{Operation: "put", Message: "policy cannot be nil"}
	}
	if p.ID == "" {
		return &StoreError{Operation: "put", Message: "policy ID cannot be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies[p.ID] = p
	s.version++

	return nil
}

// Get retrieves a policy by ID.
func (s *Store) Get(id string) (*Policy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	return p, ok
}

// Delete removes a policy by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[id]; !ok {
		return &StoreError{PolicyID: id, Operation: "delete", Message: "policy not found"}
	}

	delete(s.policies, id)
	s.version++

	return nil
}

// List returns the enabled policies sorted by name. The slice is a copy;
// the sort keeps evaluation order deterministic across processes.
func (s *Store) List() []*Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := make([]*Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if p.Enabled {
			policies = append(policies, p)
		}
	}

	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Name != policies[j].Name {
			return policies[i].Name < policies[j].Name
		}
		return policies[i].ID < policies[j].ID
	})

	return policies
}

// All returns every policy, enabled or not, sorted by name.
func (s *Store) All() []*Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := make([]*Policy, 0, len(s.policies))
	for _, p := range s.policies {
		policies = append(policies, p)
	}

	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Name != policies[j].Name {
			return policies[i].Name < policies[j].Name
		}
		return policies[i].ID < policies[j].ID
	})

	return policies
}

// Replace atomically swaps the entire policy set. Used by reloads so
// readers never observe a half-applied set.
func (s *Store) Replace(policies []*Policy) error {
	for _, p := range policies {
		if p == nil {
			return &StoreError{Operation: "replace", Message: "policy cannot be nil"}
		}
		if p.ID == "" {
			return &StoreError{Operation: "replace", Message: "policy ID cannot be empty"}
		}
	}

	next := make(map[string]*Policy, len(policies))
	for _, p := range policies {
		next[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.policies = next
	s.loadTime = time.Now().UTC()
	s.version++

	return nil
}

// Count returns the number of stored policies (enabled or not).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.policies)
}

// Version returns the monotonic version counter. It increases on every
// mutation and never repeats within a process.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// LoadTime returns when the set was last replaced.
func (s *Store) LoadTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadTime
}
