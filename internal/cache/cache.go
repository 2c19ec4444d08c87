// Package cache holds the local product cache the console renders from.
//
// Writes carry a Ticket taken before the remote request was issued. A result
// is applied only if nothing newer for the same id has been applied since,
// which keeps out-of-order responses from overwriting fresher state and keeps
// a confirmed delete from being undone by a late upsert.
package cache

import (
	"sync"

	"github.com/iyhunko/storefront-admin/internal/model"
)

// Ticket orders writes. Later tickets win.
type Ticket uint64

// ChangeKind describes what a Change did to the cache.
type ChangeKind string

const (
	Loaded   ChangeKind = "loaded"
	Upserted ChangeKind = "upserted"
	Removed  ChangeKind = "removed"
	Cleared  ChangeKind = "cleared"
)

// Change is delivered to subscribers after every applied mutation.
type Change struct {
	Kind ChangeKind
	// ID is the affected product for Upserted and Removed.
	ID int64
}

type entry struct {
	product    model.Product
	ticket     Ticket
	optimistic bool
}

// Cache maps product id to product. It never holds two records with the same id.
type Cache struct {
	mu      sync.RWMutex
	seq     Ticket
	entries map[int64]entry
	order   []int64
	removed map[int64]Ticket
	loaded  Ticket

	subsMu  sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[int64]entry),
		removed: make(map[int64]Ticket),
		subs:    make(map[int]func(Change)),
	}
}

// Begin returns a ticket for a request about to be issued.
func (c *Cache) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next()
}

func (c *Cache) next() Ticket {
	c.seq++
	return c.seq
}

// Load replaces the whole mapping with records.
func (c *Cache) Load(records []model.Product) {
	c.LoadAt(c.Begin(), records)
}

// LoadAt replaces the mapping with the result of a full list issued at t.
// It is ignored if a newer full load was already applied. Records removed or
// upserted (confirmed) after t keep their newer state; optimistic records are
// replaced. It reports whether the load was applied.
func (c *Cache) LoadAt(t Ticket, records []model.Product) bool {
	c.mu.Lock()
	if t < c.loaded {
		c.mu.Unlock()
		return false
	}

	entries := make(map[int64]entry, len(records))
	order := make([]int64, 0, len(records))
	for _, p := range records {
		if tomb, ok := c.removed[p.ID]; ok && tomb > t {
			continue
		}
		e := entry{product: p, ticket: t}
		if cur, ok := c.entries[p.ID]; ok && !cur.optimistic && cur.ticket > t {
			e = cur
		}
		if _, dup := entries[p.ID]; !dup {
			order = append(order, p.ID)
		}
		entries[p.ID] = e
	}
	for _, id := range c.order {
		cur := c.entries[id]
		if _, ok := entries[id]; ok || cur.optimistic || cur.ticket <= t {
			continue
		}
		entries[id] = cur
		order = append(order, id)
	}
	for id, tomb := range c.removed {
		if tomb <= t {
			delete(c.removed, id)
		}
	}

	c.entries = entries
	c.order = order
	c.loaded = t
	c.mu.Unlock()

	c.notify(Change{Kind: Loaded})
	return true
}

// Upsert inserts or replaces a record by id.
func (c *Cache) Upsert(p model.Product) {
	c.UpsertAt(c.Begin(), p)
}

// UpsertAt applies a confirmed write issued at t. It is dropped if the id was
// removed or written by a newer ticket, or if a full load or Clear newer than t
// left the id out. It reports whether it was applied.
func (c *Cache) UpsertAt(t Ticket, p model.Product) bool {
	return c.upsert(t, p, false)
}

// UpsertOptimistic applies a local, unconfirmed write. The record is tagged
// and will be replaced by the next full load.
func (c *Cache) UpsertOptimistic(p model.Product) Ticket {
	t := c.Begin()
	c.upsert(t, p, true)
	return t
}

// UpsertOptimisticAt is UpsertOptimistic for a value derived from a request
// issued at t, subject to the same staleness checks as UpsertAt.
func (c *Cache) UpsertOptimisticAt(t Ticket, p model.Product) bool {
	return c.upsert(t, p, true)
}

func (c *Cache) upsert(t Ticket, p model.Product, optimistic bool) bool {
	c.mu.Lock()
	if tomb, ok := c.removed[p.ID]; ok && tomb > t {
		c.mu.Unlock()
		return false
	}
	cur, exists := c.entries[p.ID]
	if exists && cur.ticket > t || !exists && t < c.loaded {
		c.mu.Unlock()
		return false
	}
	if !exists {
		c.order = append(c.order, p.ID)
	}
	c.entries[p.ID] = entry{product: p, ticket: t, optimistic: optimistic}
	delete(c.removed, p.ID)
	c.mu.Unlock()

	c.notify(Change{Kind: Upserted, ID: p.ID})
	return true
}

// Remove deletes a record by id. Removing an absent id is a no-op.
func (c *Cache) Remove(id int64) {
	c.RemoveAt(c.Begin(), id)
}

// RemoveAt deletes id as of t. Any write for id carrying an older ticket that
// arrives afterwards is ignored. It reports whether a record was present.
func (c *Cache) RemoveAt(t Ticket, id int64) bool {
	c.mu.Lock()
	if tomb, ok := c.removed[id]; !ok || tomb < t {
		c.removed[id] = t
	}
	_, existed := c.entries[id]
	if existed {
		delete(c.entries, id)
		for i, oid := range c.order {
			if oid == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()

	if existed {
		c.notify(Change{Kind: Removed, ID: id})
	}
	return existed
}

// Clear drops every record and all write history.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[int64]entry)
	c.removed = make(map[int64]Ticket)
	c.order = nil
	c.loaded = c.next()
	c.mu.Unlock()

	c.notify(Change{Kind: Cleared})
}

// Snapshot returns the current records in insertion order.
func (c *Cache) Snapshot() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].product)
	}
	return out
}

// Get returns the record for id.
func (c *Cache) Get(id int64) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.product, ok
}

// IsOptimistic reports whether id holds an unconfirmed local write.
func (c *Cache) IsOptimistic(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[id].optimistic
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Subscribe registers fn to be called after every applied change. Callbacks
// run synchronously on the mutating goroutine, outside the cache lock. The
// returned function unsubscribes.
func (c *Cache) Subscribe(fn func(Change)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

func (c *Cache) notify(ch Change) {
	c.subsMu.Lock()
	fns := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}
