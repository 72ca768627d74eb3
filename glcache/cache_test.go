package glcache_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glcache"
	"github.com/soypat/gshade/glprog"
)

// shapeN returns a distinct render shape with n directional lights.
func shapeN(n int) gshade.Shape {
	sh := gshade.Shape{Mode: gshade.ModeRender}
	for i := 0; i < n; i++ {
		sh.Lights = append(sh.Lights, gshade.LightShape{Kind: gshade.LightDirectional, Diffuse: true})
	}
	return sh
}

type composer struct {
	p     *glbuild.Programmer
	calls int
}

func (c *composer) get(cache *glcache.Cache, sh gshade.Shape) (*glprog.Program, error) {
	return cache.GetOrCreate(sh.Fingerprint(), func() (glbuild.Source, error) {
		c.calls++
		return c.p.Compose(sh)
	})
}

func newComposer() *composer { return &composer{p: glbuild.NewDefaultProgrammer()} }

func TestHitDoesNotCompose(t *testing.T) {
	dev := glprog.NewHeadless()
	cache := glcache.New(dev, nil, glcache.Config{})
	c := newComposer()
	first, err := c.get(cache, shapeN(1))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.get(cache, shapeN(1))
		require.NoError(t, err)
		assert.Same(t, first, again)
	}
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, 1, dev.Compiles())
	stats := cache.Stats()
	assert.Equal(t, uint64(5), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.True(t, cache.Contains(shapeN(1).Fingerprint()))
}

func TestLastUsedMonotonic(t *testing.T) {
	cache := glcache.New(glprog.NewHeadless(), nil, glcache.Config{})
	c := newComposer()
	a, err := c.get(cache, shapeN(1))
	require.NoError(t, err)
	b, err := c.get(cache, shapeN(2))
	require.NoError(t, err)
	require.Less(t, a.LastUsed(), b.LastUsed())
	_, err = c.get(cache, shapeN(1))
	require.NoError(t, err)
	assert.Greater(t, a.LastUsed(), b.LastUsed())
}

func TestEvictionExcludesActive(t *testing.T) {
	dev := glprog.NewHeadless()
	budget := glcache.NewBudget(map[string]int{glcache.DefaultCategory: 3})
	var active gshade.Fingerprint
	cache := glcache.New(dev, budget, glcache.Config{Protect: func() []gshade.Fingerprint { return []gshade.Fingerprint{active} }})
	c := newComposer()

	// A is least recently used but active, B is the expected victim.
	for n := 1; n <= 3; n++ {
		_, err := c.get(cache, shapeN(n))
		require.NoError(t, err)
	}
	active = shapeN(1).Fingerprint()
	_, err := c.get(cache, shapeN(4))
	require.NoError(t, err)

	assert.True(t, cache.Contains(shapeN(1).Fingerprint()), "active program evicted")
	assert.False(t, cache.Contains(shapeN(2).Fingerprint()), "LRU program kept")
	assert.True(t, cache.Contains(shapeN(3).Fingerprint()))
	assert.True(t, cache.Contains(shapeN(4).Fingerprint()))
	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, 3, budget.Live(glcache.DefaultCategory))
	assert.Equal(t, 3, dev.Live())
	assert.Equal(t, uint64(1), cache.Stats().Evictions)
}

func TestEvictionUnavailable(t *testing.T) {
	dev := glprog.NewHeadless()
	budget := glcache.NewBudget(map[string]int{glcache.DefaultCategory: 1})
	var active gshade.Fingerprint
	cache := glcache.New(dev, budget, glcache.Config{})
	cache.SetProtect(func() []gshade.Fingerprint { return []gshade.Fingerprint{active} })
	c := newComposer()

	prog, err := c.get(cache, shapeN(1))
	require.NoError(t, err)
	active = prog.Fingerprint()
	assert.False(t, cache.Evict())

	_, err = c.get(cache, shapeN(2))
	require.ErrorIs(t, err, glcache.ErrOutOfMemory)
	assert.False(t, cache.Contains(shapeN(2).Fingerprint()))
	assert.Equal(t, 1, c.calls, "compose must not run without room")
	assert.False(t, prog.Destroyed())

	active = ""
	_, err = c.get(cache, shapeN(2))
	require.NoError(t, err)
	assert.True(t, prog.Destroyed())
	assert.Equal(t, 1, cache.Len())
}

func TestFailedBuildStoresNothing(t *testing.T) {
	dev := glprog.NewHeadless()
	budget := glcache.NewBudget(map[string]int{glcache.DefaultCategory: 4})
	cache := glcache.New(dev, budget, glcache.Config{})
	c := newComposer()

	dev.FailNextCompile(glprog.StageVertex, "syntax error")
	_, err := c.get(cache, shapeN(1))
	var cerr *glprog.CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, glprog.StageVertex, cerr.Stage)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, budget.Live(glcache.DefaultCategory))
	assert.Equal(t, uint64(1), cache.Stats().Failures)

	composeErr := errors.New("bad shape")
	_, err = cache.GetOrCreate("broken", func() (glbuild.Source, error) { return glbuild.Source{}, composeErr })
	require.ErrorIs(t, err, composeErr)
	assert.False(t, cache.Contains("broken"))

	// Retried on next request with the same source.
	_, err = c.get(cache, shapeN(1))
	require.NoError(t, err)
	assert.Equal(t, 2, c.calls)
}

func TestReset(t *testing.T) {
	dev := glprog.NewHeadless()
	budget := glcache.NewBudget(nil)
	cache := glcache.New(dev, budget, glcache.Config{Protect: func() []gshade.Fingerprint { return []gshade.Fingerprint{shapeN(1).Fingerprint()} }})
	c := newComposer()
	var progs []*glprog.Program
	for n := 1; n <= 3; n++ {
		prog, err := c.get(cache, shapeN(n))
		require.NoError(t, err)
		progs = append(progs, prog)
	}
	cache.Reset()
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, dev.Live())
	assert.Equal(t, 0, budget.Live(glcache.DefaultCategory))
	for _, prog := range progs {
		assert.True(t, prog.Destroyed())
	}
	assert.NoError(t, dev.Err())
}

func TestReentrantResolveRejected(t *testing.T) {
	cache := glcache.New(glprog.NewHeadless(), nil, glcache.Config{})
	p := glbuild.NewDefaultProgrammer()
	_, err := cache.GetOrCreate(shapeN(1).Fingerprint(), func() (glbuild.Source, error) {
		_, err := cache.GetOrCreate(shapeN(2).Fingerprint(), func() (glbuild.Source, error) {
			return p.Compose(shapeN(2))
		})
		require.Error(t, err)
		return p.Compose(shapeN(1))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestBudget(t *testing.T) {
	b := glcache.NewBudget(map[string]int{"tex": 1, "shader": 0})
	_, limited := b.Limit("shader")
	assert.False(t, limited)
	require.NoError(t, b.Allocate("tex", func() error { return nil }))
	err := b.Allocate("tex", func() error { t.Fatal("build called without room"); return nil })
	require.ErrorIs(t, err, glcache.ErrOutOfMemory)

	b.RegisterEvictor("tex", func() bool { return true }) // Lies: releases nothing.
	err = b.Allocate("tex", func() error { return nil })
	require.ErrorIs(t, err, glcache.ErrOutOfMemory)

	b.Release("tex", 1)
	require.NoError(t, b.Allocate("tex", func() error { return nil }))
	assert.Equal(t, 1, b.Live("tex"))
	assert.Panics(t, func() { b.Release("tex", 2) })
}

func TestEvictionProtectsSet(t *testing.T) {
	dev := glprog.NewHeadless()
	protected := []gshade.Fingerprint{shapeN(1).Fingerprint(), shapeN(2).Fingerprint()}
	cache := glcache.New(dev, nil, glcache.Config{Protect: func() []gshade.Fingerprint { return protected }})
	c := newComposer()
	for n := 1; n <= 3; n++ {
		_, err := c.get(cache, shapeN(n))
		require.NoError(t, err)
	}
	require.True(t, cache.Evict())
	assert.False(t, cache.Contains(shapeN(3).Fingerprint()))
	assert.False(t, cache.Evict(), "only protected programs remain")
	assert.Equal(t, 2, cache.Len())
}

func TestAbandon(t *testing.T) {
	dev := glprog.NewHeadless()
	budget := glcache.NewBudget(nil)
	cache := glcache.New(dev, budget, glcache.Config{})
	c := newComposer()
	prog, err := c.get(cache, shapeN(1))
	require.NoError(t, err)
	cache.Abandon()
	assert.True(t, prog.Destroyed())
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, budget.Live(glcache.DefaultCategory))
	assert.Equal(t, 0, dev.Deletes(), "lost programs must not be deleted on the device")
	assert.NoError(t, dev.Err())
}
