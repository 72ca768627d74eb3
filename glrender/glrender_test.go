package glrender_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glcache"
	"github.com/soypat/gshade/glprog"
	"github.com/soypat/gshade/glrender"
)

type event struct {
	kind string
	fp   gshade.Fingerprint
}

type recorder struct{ events []event }

func (r *recorder) observer() glrender.Observer {
	add := func(kind string) func(*glprog.Program) {
		return func(p *glprog.Program) { r.events = append(r.events, event{kind, p.Fingerprint()}) }
	}
	return glrender.ObserverFuncs{Deactivated: add("deactivated"), Activated: add("activated"), Ready: add("ready")}
}

func (r *recorder) take() []event {
	ev := r.events
	r.events = nil
	return ev
}

type fixture struct {
	dev   *glprog.Headless
	state *gshade.State
	cache *glcache.Cache
	ctl   *glrender.Controller
	rec   *recorder
}

func newFixture(t *testing.T, mm glcache.MemoryManager) *fixture {
	t.Helper()
	f := &fixture{dev: glprog.NewHeadless(), state: gshade.NewState(), rec: &recorder{}}
	f.cache = glcache.New(f.dev, mm, glcache.Config{})
	f.ctl = glrender.New(f.state, f.cache, nil)
	f.ctl.AddObserver(f.rec.observer())
	f.state.SetContext(1)
	return f
}

func directional(n int) []gshade.Light {
	lights := make([]gshade.Light, n)
	for i := range lights {
		lights[i] = gshade.Light{Kind: gshade.LightDirectional, Color: ms3.Vec{X: 1, Y: 1, Z: 1}, Diffuse: true}
	}
	return lights
}

func TestNoActiveContext(t *testing.T) {
	f := newFixture(t, nil)
	f.state.SetContext(0)
	require.ErrorIs(t, f.ctl.Activate(), glrender.ErrNoActiveContext)
	_, err := f.ctl.Prepare()
	require.ErrorIs(t, err, glrender.ErrNoActiveContext)
	assert.Equal(t, glrender.PhaseInactive, f.ctl.Phase())
	assert.Equal(t, 0, f.dev.Compiles())
}

func TestLightCountRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	f.state.SetLights(directional(2))
	progA, err := f.ctl.Prepare()
	require.NoError(t, err)
	fpA := progA.Fingerprint()
	assert.Equal(t, []event{{"activated", fpA}, {"ready", fpA}}, f.rec.take())
	assert.Equal(t, glrender.PhaseRendering, f.ctl.Phase())

	f.state.Push()
	f.state.SetLights(directional(1))
	assert.Equal(t, glrender.PhaseFingerprintStale, f.ctl.Phase())
	progB, err := f.ctl.Prepare()
	require.NoError(t, err)
	fpB := progB.Fingerprint()
	require.NotEqual(t, fpA, fpB)
	assert.Equal(t, []event{{"deactivated", fpA}, {"activated", fpB}, {"ready", fpB}}, f.rec.take())
	assert.Equal(t, 2, f.dev.Compiles())

	f.state.Pop()
	again, err := f.ctl.Prepare()
	require.NoError(t, err)
	assert.Same(t, progA, again, "program should be reused from cache")
	assert.Equal(t, 2, f.dev.Compiles(), "no recompilation on return to two lights")
	assert.Equal(t, []event{{"deactivated", fpB}, {"activated", fpA}, {"ready", fpA}}, f.rec.take())
	assert.Equal(t, progA.Handle(), f.dev.Bound())
	assert.NoError(t, f.dev.Err())
}

func TestSameFingerprintExportsWithoutRebind(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.ctl.Prepare()
	require.NoError(t, err)
	f.rec.take()

	f.state.SetMaterial(gshade.Material{BaseColor: ms3.Vec{X: 0.25, Y: 0.5, Z: 1}, Alpha: 1})
	prog, err := f.ctl.Prepare()
	require.NoError(t, err)
	assert.Equal(t, []event{{"ready", prog.Fingerprint()}}, f.rec.take())
	got, ok := f.dev.Value("uMaterialBaseColor")
	require.True(t, ok)
	assert.Equal(t, []float32{0.25, 0.5, 1}, got)
	assert.Equal(t, 1, f.dev.Compiles())
}

func TestFailedResolveKeepsProgram(t *testing.T) {
	f := newFixture(t, nil)
	prev, err := f.ctl.Prepare()
	require.NoError(t, err)
	f.rec.take()

	f.dev.FailNextCompile(glprog.StageFragment, "too many uniforms")
	f.state.SetLights(directional(3))
	_, err = f.ctl.Prepare()
	var cerr *glprog.CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Same(t, prev, f.ctl.Active())
	assert.Equal(t, prev.Handle(), f.dev.Bound())
	assert.Equal(t, glrender.PhaseFingerprintStale, f.ctl.Phase())
	assert.Empty(t, f.rec.take())
	assert.Equal(t, 1, f.cache.Len())

	_, err = f.ctl.Prepare()
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.Len())
}

func TestActiveProgramNotEvicted(t *testing.T) {
	budget := glcache.NewBudget(map[string]int{glcache.DefaultCategory: 1})
	f := newFixture(t, budget)
	active, err := f.ctl.Prepare()
	require.NoError(t, err)

	f.state.SetLights(directional(1))
	_, err = f.ctl.Prepare()
	require.ErrorIs(t, err, glcache.ErrOutOfMemory)
	assert.False(t, active.Destroyed())
	assert.Same(t, active, f.ctl.Active())

	// Once nothing is bound the old program is evictable.
	f.ctl.Deactivate()
	prog, err := f.ctl.Prepare()
	require.NoError(t, err)
	assert.True(t, active.Destroyed())
	assert.Equal(t, prog.Handle(), f.dev.Bound())
}

func TestDeactivatedProgramProtected(t *testing.T) {
	f := newFixture(t, nil)
	prog, err := f.ctl.Prepare()
	require.NoError(t, err)
	f.ctl.Deactivate()
	assert.False(t, f.cache.Evict(), "program the state reactivates must not be evicted")
	assert.False(t, prog.Destroyed())

	f.state.SetLights(directional(1))
	assert.True(t, f.cache.Evict())
	assert.True(t, prog.Destroyed())

	f.state.SetContext(0)
	_, err = f.cache.GetOrCreate("unused", func() (glbuild.Source, error) {
		return glbuild.NewDefaultProgrammer().Compose(gshade.Shape{Mode: gshade.ModeRender})
	})
	require.NoError(t, err)
	assert.True(t, f.cache.Evict(), "nothing is protected without a context")
}

func TestPickMode(t *testing.T) {
	f := newFixture(t, nil)
	f.state.SetLights(directional(2))
	f.state.SetPickIndex(10)
	f.ctl.SetMode(gshade.ModePick)
	prog, err := f.ctl.Prepare()
	require.NoError(t, err)
	assert.Equal(t, gshade.Fingerprint("p"), prog.Fingerprint())
	got, ok := f.dev.Value("uPickColor")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0.046875, 0}, got)
	_, ok = f.dev.Value("uLightColor0")
	assert.False(t, ok)

	f.state.SetPickIndex(11)
	_, err = f.ctl.Prepare()
	require.NoError(t, err)
	got, _ = f.dev.Value("uPickColor")
	id, ok := gshade.DecodePickColor(got[0], got[1])
	assert.True(t, ok)
	assert.Equal(t, 11, id)

	f.ctl.SetMode(gshade.ModeRender)
	assert.Equal(t, glrender.PhaseFingerprintStale, f.ctl.Phase())
	prog, err = f.ctl.Prepare()
	require.NoError(t, err)
	assert.NotEqual(t, gshade.Fingerprint("p"), prog.Fingerprint())
}

func TestExportLights(t *testing.T) {
	f := newFixture(t, nil)
	f.state.SetAmbient(ms3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
	f.state.SetLights([]gshade.Light{{
		Kind:         gshade.LightSpot,
		Color:        ms3.Vec{X: 1},
		Position:     ms3.Vec{Y: 4},
		Direction:    ms3.Vec{Y: -1},
		Diffuse:      true,
		SpotCutoff:   60,
		SpotExponent: 2,
		Attenuation:  ms3.Vec{X: 1, Y: 0.5},
	}})
	_, err := f.ctl.Prepare()
	require.NoError(t, err)
	expect := map[string][]float32{
		"uAmbientColor":       {0.1, 0.1, 0.1},
		"uLightColor0":        {1, 0, 0},
		"uLightPos0":          {0, 4, 0},
		"uLightDir0":          {0, -1, 0},
		"uLightAttenuation0":  {1, 0.5, 0},
		"uLightSpotExponent0": {2},
	}
	for name, want := range expect {
		got, ok := f.dev.Value(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, want, got, name)
		}
	}
	got, ok := f.dev.Value("uLightSpotCosCutoff0")
	require.True(t, ok)
	assert.InDelta(t, 0.5, got[0], 1e-6)
	nm, ok := f.dev.Value("uNMatrix")
	require.True(t, ok)
	assert.Len(t, nm, 9)
	assert.InDelta(t, 1, math32.Abs(nm[0]), 1e-6)
}

func TestTexturesAndGeometry(t *testing.T) {
	f := newFixture(t, nil)
	m := gshade.ScalingMat4(ms3.Vec{X: 2, Y: 2, Z: 1})
	f.state.SetTextureLayers([]gshade.TextureLayer{
		{Source: gshade.TexCoordParametric, Texture: 7, Matrix: &m},
		{Source: gshade.TexCoordNormal, Target: gshade.TargetAlpha, Texture: 9},
	})
	require.Error(t, f.ctl.BindGeometry(glrender.Geometry{Vertex: glprog.Buffer{ID: 1, Components: 3}}))
	_, err := f.ctl.Prepare()
	require.NoError(t, err)
	tex, ok := f.dev.TextureOf("uSampler1")
	require.True(t, ok)
	assert.Equal(t, glprog.Texture(9), tex)
	unit, _ := f.dev.Value("uSampler1")
	assert.Equal(t, []float32{1}, unit)
	lm, ok := f.dev.Value("uLayerMatrix0")
	require.True(t, ok)
	assert.Equal(t, float32(2), lm[0])

	err = f.ctl.BindGeometry(glrender.Geometry{
		Vertex: glprog.Buffer{ID: 1, Components: 3},
		Normal: glprog.Buffer{ID: 2, Components: 3},
		UV:     glprog.Buffer{ID: 3, Components: 2},
	})
	require.NoError(t, err)
	for name, id := range map[string]uint32{"aVertex": 1, "aNormal": 2, "aUVCoord": 3} {
		buf, ok := f.dev.Attribute(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, id, buf.ID)
		}
	}
	require.Error(t, f.ctl.BindGeometry(glrender.Geometry{}))
	assert.NoError(t, f.dev.Err())
}

func TestContextLost(t *testing.T) {
	f := newFixture(t, nil)
	prog, err := f.ctl.Prepare()
	require.NoError(t, err)
	f.rec.take()
	f.ctl.ContextLost()
	assert.Equal(t, glrender.PhaseInactive, f.ctl.Phase())
	assert.Nil(t, f.ctl.Active())
	assert.True(t, prog.Destroyed())
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, 0, f.dev.Deletes(), "programs of a lost context are not deleted")
	assert.Equal(t, []event{{"deactivated", prog.Fingerprint()}}, f.rec.take())

	_, err = f.ctl.Prepare()
	require.NoError(t, err)
	assert.Equal(t, 2, f.dev.Compiles())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "fingerprint-stale", glrender.PhaseFingerprintStale.String())
	assert.Equal(t, "Phase(9)", glrender.Phase(9).String())
}
