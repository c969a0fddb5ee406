package gate

import "sync"

// Requirement declares what a caller must present to reach an operation.
// A non empty Permission implies the tenant gate: there is no tenant-less
// permission check.
type Requirement struct {
	Permission     string
	TenantRequired bool
}

// Registry maps operation keys to requirements. Operations are registered at
// startup but the registry is safe for concurrent use, handlers may consult
// it while routes are still being mounted.
type Registry struct {
	mu   sync.RWMutex
	reqs map[string]Requirement
}

func NewRegistry() *Registry {
	return &Registry{
		reqs: map[string]Requirement{},
	}
}

// Require registers the requirement for an operation key, replacing any
// previous registration.
func (r *Registry) Require(operation string, req Requirement) *Registry {
	if req.Permission != "" {
		req.TenantRequired = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs[operation] = req

	return r
}

// Lookup returns the requirement registered for an operation key.
func (r *Registry) Lookup(operation string) (Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.reqs[operation]
	return req, ok
}

// Operations returns the registered operation keys.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.reqs))
	for op := range r.reqs {
		out = append(out, op)
	}
	return out
}
