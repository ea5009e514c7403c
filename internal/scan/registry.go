package scan

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long an unused workflow is kept.
const DefaultIdleTimeout = 30 * time.Minute

type registryEntry struct {
	flow     *Workflow
	lastUsed time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTimeout drops workflows unused for d. Zero or negative keeps the default.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithClock replaces time.Now for idle tracking.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// Registry keeps one workflow per client scope. Workflows that sit unused
// for the idle timeout, with no scan running and no watchers, are dropped.
type Registry struct {
	newFlow func(userID uint) *Workflow
	idle    time.Duration
	now     func() time.Time

	mu        sync.Mutex
	flows     map[string]*registryEntry
	lastSweep time.Time
}

// NewRegistry returns an empty registry that builds workflows with newFlow.
func NewRegistry(newFlow func(userID uint) *Workflow, opts ...RegistryOption) *Registry {
	r := &Registry{
		newFlow: newFlow,
		idle:    DefaultIdleTimeout,
		now:     time.Now,
		flows:   make(map[string]*registryEntry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the scope's workflow, creating it on first use. A workflow
// built for a different user is closed and replaced.
func (r *Registry) Get(scope string, userID uint) *Workflow {
	r.mu.Lock()
	now := r.now()
	var stale []*Workflow
	if now.Sub(r.lastSweep) > r.idle {
		stale = r.sweepLocked(now)
		r.lastSweep = now
	}
	e, ok := r.flows[scope]
	if ok && e.flow.UserID() == userID {
		e.lastUsed = now
		r.mu.Unlock()
		closeAll(stale)
		return e.flow
	}
	fresh := r.newFlow(userID)
	r.flows[scope] = &registryEntry{flow: fresh, lastUsed: now}
	r.mu.Unlock()

	if ok {
		stale = append(stale, e.flow)
	}
	closeAll(stale)
	return fresh
}

// Lookup returns the scope's workflow without creating one.
func (r *Registry) Lookup(scope string) (*Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[scope]
	if !ok {
		return nil, false
	}
	return e.flow, true
}

// Remove drops the scope's workflow, cancelling a running scan and ending
// its watchers.
func (r *Registry) Remove(scope string) {
	r.mu.Lock()
	e, ok := r.flows[scope]
	delete(r.flows, scope)
	r.mu.Unlock()
	if ok {
		e.flow.Close()
	}
}

// Sweep drops idle workflows now and returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	now := r.now()
	stale := r.sweepLocked(now)
	r.lastSweep = now
	r.mu.Unlock()
	closeAll(stale)
	return len(stale)
}

// Len returns the number of tracked workflows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

func (r *Registry) sweepLocked(now time.Time) []*Workflow {
	var stale []*Workflow
	for scope, e := range r.flows {
		if now.Sub(e.lastUsed) > r.idle && e.flow.idle() {
			delete(r.flows, scope)
			stale = append(stale, e.flow)
		}
	}
	return stale
}

func closeAll(flows []*Workflow) {
	for _, w := range flows {
		w.Close()
	}
}
