package glcache

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned by [Budget.Allocate] when a category is at its
// limit and no evictor could free room.
var ErrOutOfMemory = errors.New("out of memory")

// MemoryManager arbitrates allocations of GPU resources. Allocate runs build
// once there is room for one more resource of the category, calling the
// registered evictors of the category if needed.
type MemoryManager interface {
	Allocate(category string, build func() error) error
	RegisterEvictor(category string, evict func() bool)
}

// Releaser is implemented by memory managers that track live resources.
// Caches call Release after destroying resources obtained through Allocate.
type Releaser interface {
	Release(category string, n int)
}

// Budget is a [MemoryManager] limiting the number of live resources per
// category. Categories without a limit are unbounded.
type Budget struct {
	limits   map[string]int
	live     map[string]int
	evictors map[string][]func() bool
}

var (
	_ MemoryManager = (*Budget)(nil)
	_ Releaser      = (*Budget)(nil)
)

// NewBudget returns a Budget with the given per-category limits.
func NewBudget(limits map[string]int) *Budget {
	b := &Budget{
		limits:   make(map[string]int),
		live:     make(map[string]int),
		evictors: make(map[string][]func() bool),
	}
	for category, limit := range limits {
		b.SetLimit(category, limit)
	}
	return b
}

// SetLimit sets the maximum live resources of category. A limit below 1 removes it.
func (b *Budget) SetLimit(category string, limit int) {
	if limit < 1 {
		delete(b.limits, category)
		return
	}
	b.limits[category] = limit
}

// Limit returns the category's limit and whether it has one.
func (b *Budget) Limit(category string) (int, bool) {
	limit, ok := b.limits[category]
	return limit, ok
}

// Live returns the number of resources of category allocated and not released.
func (b *Budget) Live(category string) int { return b.live[category] }

func (b *Budget) RegisterEvictor(category string, evict func() bool) {
	if evict == nil {
		panic("nil evictor")
	}
	b.evictors[category] = append(b.evictors[category], evict)
}

// Allocate evicts until the category has room, then runs build. The resource
// counts as live only if build succeeds.
func (b *Budget) Allocate(category string, build func() error) error {
	limit, limited := b.limits[category]
	for limited && b.live[category] >= limit {
		before := b.live[category]
		if !b.evict(category) {
			return fmt.Errorf("%w: %d/%d live %q resources and none evictable", ErrOutOfMemory, before, limit, category)
		} else if b.live[category] >= before {
			return fmt.Errorf("%w: evictor for %q reported success without releasing", ErrOutOfMemory, category)
		}
	}
	err := build()
	if err != nil {
		return err
	}
	b.live[category]++
	return nil
}

func (b *Budget) evict(category string) bool {
	for _, evict := range b.evictors[category] {
		if evict() {
			return true
		}
	}
	return false
}

// Release returns n resources of category to the budget.
func (b *Budget) Release(category string, n int) {
	b.live[category] -= n
	if b.live[category] < 0 {
		panic("released more " + category + " resources than allocated")
	}
}
