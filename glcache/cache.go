// Package glcache implements the program cache: fingerprints map to linked
// programs that are composed and compiled lazily and evicted least recently
// used first under memory pressure.
package glcache

import (
	"errors"
	"fmt"
	"slices"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glprog"
	"github.com/soypat/gshade/log"
)

var logger = log.New("glcache")

// DefaultCategory is the memory manager category programs are allocated under.
const DefaultCategory = "shader"

// ComposeFunc produces the source of a missing program.
type ComposeFunc func() (glbuild.Source, error)

type Config struct {
	// Category is the memory manager category. Defaults to [DefaultCategory].
	Category string
	// Protect returns the fingerprints exempt from eviction, usually the
	// bound program's and the one the current state will activate next.
	Protect func() []gshade.Fingerprint
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Failures  uint64
}

// Cache owns every program it creates. Programs returned by GetOrCreate stay
// valid until evicted or the cache is reset.
type Cache struct {
	dev      glprog.Device
	mm       MemoryManager
	category string
	protect  func() []gshade.Fingerprint
	progs    map[gshade.Fingerprint]*glprog.Program
	tick     uint64
	// resolving is the fingerprint being built by GetOrCreate, if any.
	resolving gshade.Fingerprint
	stats     Stats
}

// New returns an empty cache compiling on dev. If mm is not nil the cache
// registers its evictor with it and allocates every program through it.
func New(dev glprog.Device, mm MemoryManager, cfg Config) *Cache {
	if dev == nil {
		panic("nil device")
	}
	c := &Cache{
		dev:      dev,
		mm:       mm,
		category: cfg.Category,
		protect:  cfg.Protect,
		progs:    make(map[gshade.Fingerprint]*glprog.Program),
	}
	if c.category == "" {
		c.category = DefaultCategory
	}
	if mm != nil {
		mm.RegisterEvictor(c.category, c.Evict)
	}
	return c
}

// SetProtect replaces the callback naming the fingerprints exempt from eviction.
func (c *Cache) SetProtect(fn func() []gshade.Fingerprint) { c.protect = fn }

// GetOrCreate returns the program for fp. On a miss compose is called and its
// source compiled and linked; compose is never called on a hit. The resolved
// fingerprint cannot be evicted while it is being built. Nothing is stored
// when building fails.
func (c *Cache) GetOrCreate(fp gshade.Fingerprint, compose ComposeFunc) (*glprog.Program, error) {
	if fp == "" {
		return nil, errors.New("empty fingerprint")
	}
	if prog, ok := c.progs[fp]; ok {
		c.stats.Hits++
		c.touch(prog)
		return prog, nil
	}
	if c.resolving != "" {
		return nil, fmt.Errorf("resolving %q while %q is being built", fp, c.resolving)
	}
	c.stats.Misses++
	c.resolving = fp
	defer func() { c.resolving = "" }()

	var prog *glprog.Program
	build := func() error {
		src, err := compose()
		if err != nil {
			return fmt.Errorf("compose %q: %w", fp, err)
		}
		prog, err = glprog.Link(c.dev, fp, src)
		return err
	}
	var err error
	if c.mm != nil {
		err = c.mm.Allocate(c.category, build)
	} else {
		err = build()
	}
	if err != nil {
		c.stats.Failures++
		var cerr *glprog.CompileError
		if errors.As(err, &cerr) {
			logger.Error(cerr.Annotated())
		} else {
			logger.Errorf("building program %q: %s", fp, err)
		}
		return nil, err
	}
	c.progs[fp] = prog
	c.touch(prog)
	logger.Debugf("compiled program %q (%d cached)", fp, len(c.progs))
	return prog, nil
}

func (c *Cache) touch(prog *glprog.Program) {
	c.tick++
	prog.Touch(c.tick)
}

// Evict destroys the least recently used program that is neither protected
// nor being resolved. Protection is sampled once when Evict is called. It
// reports false when no program can be evicted.
func (c *Cache) Evict() bool {
	var protected []gshade.Fingerprint
	if c.protect != nil {
		protected = c.protect()
	}
	var victim *glprog.Program
	for fp, prog := range c.progs {
		if fp == c.resolving || slices.Contains(protected, fp) {
			continue
		}
		if victim == nil || prog.LastUsed() < victim.LastUsed() {
			victim = prog
		}
	}
	if victim == nil {
		logger.Debugf("no evictable program among %d", len(c.progs))
		return false
	}
	c.stats.Evictions++
	logger.Infof("evicting program %q last used at %d", victim.Fingerprint(), victim.LastUsed())
	c.remove(victim)
	return true
}

func (c *Cache) remove(prog *glprog.Program) {
	delete(c.progs, prog.Fingerprint())
	prog.Destroy()
	if r, ok := c.mm.(Releaser); ok {
		r.Release(c.category, 1)
	}
}

// Reset destroys every program unconditionally, including protected ones.
func (c *Cache) Reset() {
	n := len(c.progs)
	for _, prog := range c.progs {
		c.remove(prog)
	}
	if n > 0 {
		logger.Infof("reset destroyed %d programs", n)
	}
}

// Abandon empties the cache without device calls. It is used when the
// rendering context was destroyed and its programs died with it.
func (c *Cache) Abandon() {
	n := len(c.progs)
	for fp, prog := range c.progs {
		delete(c.progs, fp)
		prog.Abandon()
		if r, ok := c.mm.(Releaser); ok {
			r.Release(c.category, 1)
		}
	}
	if n > 0 {
		logger.Infof("abandoned %d programs of a lost context", n)
	}
}

// Len returns the number of cached programs.
func (c *Cache) Len() int { return len(c.progs) }

// Contains reports whether fp has a cached program. It does not count as a use.
func (c *Cache) Contains(fp gshade.Fingerprint) bool {
	_, ok := c.progs[fp]
	return ok
}

// Stats returns the cumulative counters.
func (c *Cache) Stats() Stats { return c.stats }
