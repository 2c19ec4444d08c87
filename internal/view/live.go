package view

import (
	"sync"

	"github.com/iyhunko/storefront-admin/internal/cache"
	"github.com/iyhunko/storefront-admin/internal/model"
)

// Projection keeps the rendered sequence for one view in step with a cache.
// It re-derives on every cache change notification and on every state change.
type Projection struct {
	mu          sync.RWMutex
	cache       *cache.Cache
	state       State
	current     []model.Product
	unsubscribe func()
}

// NewProjection subscribes to c and renders the initial sequence.
func NewProjection(c *cache.Cache, state State) *Projection {
	p := &Projection{cache: c, state: state}
	p.current = Project(c.Snapshot(), state)
	p.unsubscribe = c.Subscribe(func(cache.Change) { p.refresh() })
	return p
}

func (p *Projection) refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = Project(p.cache.Snapshot(), p.state)
}

// State returns the current filter and sort state.
func (p *Projection) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState replaces the filter and sort state and re-renders.
func (p *Projection) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	p.current = Project(p.cache.Snapshot(), s)
}

// UpdateState applies fn to the current state and re-renders, as one step
// with respect to other state changes. If fn fails the state is unchanged.
func (p *Projection) UpdateState(fn func(State) (State, error)) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := fn(p.state)
	if err != nil {
		return p.state, err
	}
	p.state = next
	p.current = Project(p.cache.Snapshot(), next)
	return next, nil
}

// Current returns a copy of the rendered sequence.
func (p *Projection) Current() []model.Product {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.Product, len(p.current))
	copy(out, p.current)
	return out
}

// Close stops listening for cache changes.
func (p *Projection) Close() {
	p.unsubscribe()
}
