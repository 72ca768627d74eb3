package gshadeaux_test

import (
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glcache"
	"github.com/soypat/gshade/gshadeaux"
)

const sceneTOML = `
glsl_version = "330 core"
cache_limit = 4
log_level = "warn"

[scene]
mode = "render"
texturing = false
ambient = "white"
pick_index = 3

[[scene.lights]]
kind = "spot"
color = [1.0, 0.5, 0.0]
position = [0.0, 4.0, 0.0]
direction = [0.0, -1.0, 0.0]
diffuse = true
specular = true
spot_cutoff = 30.0

[[scene.lights]]
color = "#ff0000"
diffuse = true

[scene.material]
base_color = "red"
shininess = 12.0
alpha = 0.5

[scene.fog]
mode = "linear"
color = [0.5, 0.5, 0.5]
start = 1.0
end = 20.0

[[scene.layers]]
target = "alpha"
texture = 5
scale = [2.0, 2.0, 1.0]
`

func TestLoadAndApply(t *testing.T) {
	cfg, err := gshadeaux.Load(strings.NewReader(sceneTOML))
	require.NoError(t, err)
	assert.Equal(t, "330 core", cfg.GLSLVersion)
	assert.Equal(t, 4, cfg.CacheLimit)

	s := gshade.NewState()
	require.NoError(t, cfg.Scene.Apply(s))
	assert.Equal(t, gshade.FlagLighting, s.Flags())
	assert.Equal(t, ms3.Vec{X: 1, Y: 1, Z: 1}, s.Ambient())
	assert.Equal(t, 3, s.PickIndex())

	require.Equal(t, 2, s.NumLights())
	spot := s.Light(0)
	assert.Equal(t, gshade.LightSpot, spot.Kind)
	assert.Equal(t, ms3.Vec{X: 1, Y: 0.5}, spot.Color)
	assert.Equal(t, ms3.Vec{Y: 4}, spot.Position)
	assert.Equal(t, float32(30), spot.SpotCutoff)
	dir := s.Light(1)
	assert.Equal(t, gshade.LightDirectional, dir.Kind)
	assert.Equal(t, ms3.Vec{X: 1}, dir.Color)

	m := s.Material()
	assert.Equal(t, ms3.Vec{X: 1}, m.BaseColor)
	assert.Equal(t, float32(12), m.Shininess)
	assert.Equal(t, float32(0.5), m.Alpha)
	assert.Equal(t, float32(1), m.Specular, "omitted specular keeps default")

	f := s.Fog()
	assert.Equal(t, gshade.FogLinear, f.Mode)
	assert.Equal(t, float32(20), f.End)

	require.Equal(t, 1, s.NumTextureLayers())
	tl := s.TextureLayer(0)
	assert.Equal(t, gshade.TargetAlpha, tl.Target)
	assert.Equal(t, gshade.TexCoordParametric, tl.Source)
	require.NotNil(t, tl.Matrix)
	assert.Equal(t, float32(2), tl.Matrix.At(0, 0))

	mode, err := cfg.Scene.TraversalMode()
	require.NoError(t, err)
	assert.Equal(t, gshade.ModeRender, mode)

	p, err := cfg.Programmer()
	require.NoError(t, err)
	assert.Equal(t, "#version 330 core", p.Version())

	budget := cfg.Budget()
	limit, ok := budget.Limit(glcache.DefaultCategory)
	assert.True(t, ok)
	assert.Equal(t, 4, limit)
}

func TestApplyRejectsAtomically(t *testing.T) {
	s := gshade.NewState()
	sc := gshadeaux.SceneConfig{
		Ambient: "red",
		Lights:  []gshadeaux.LightConfig{{Kind: "laser"}},
	}
	err := sc.Apply(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "light 0")
	assert.Equal(t, ms3.Vec{}, s.Ambient(), "ambient applied despite error")
	assert.Equal(t, 0, s.NumLights())
}

func TestLoadUnknownKey(t *testing.T) {
	_, err := gshadeaux.Load(strings.NewReader("cache_limt = 3\n"))
	require.Error(t, err)
}

func TestParseColor(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want ms3.Vec
	}{
		{"black", ms3.Vec{}},
		{"Blue", ms3.Vec{Z: 1}},
		{"#FF0000", ms3.Vec{X: 1}},
		{"#00ff00", ms3.Vec{Y: 1}},
		{[]any{int64(1), 0.25, 0.5}, ms3.Vec{X: 1, Y: 0.25, Z: 0.5}},
	} {
		got, err := gshadeaux.ParseColor(tc.in)
		if assert.NoError(t, err, tc.in) {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
	for _, bad := range []any{"notacolor", "#12345", "#00gg00", "#+12345", []any{1.0}, []any{"a", "b", "c"}, 3} {
		_, err := gshadeaux.ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestLerpColorHSV(t *testing.T) {
	red := ms3.Vec{X: 1}
	blue := ms3.Vec{Z: 1}
	assert.InDelta(t, 1, gshadeaux.LerpColorHSV(red, blue, 0).X, 1e-5)
	end := gshadeaux.LerpColorHSV(red, blue, 1)
	assert.InDelta(t, 1, end.Z, 1e-5)
	assert.InDelta(t, 0, end.X, 1e-5)
	// Red to blue takes the short way through magenta.
	mid := gshadeaux.LerpColorHSV(red, blue, 0.5)
	assert.InDelta(t, 1, mid.X, 1e-5)
	assert.InDelta(t, 0, mid.Y, 1e-5)
	assert.InDelta(t, 1, mid.Z, 1e-5)

	c := gshadeaux.HueCycle(2, 1)
	assert.InDelta(t, 1, c.X, 1e-5)
	assert.InDelta(t, 0, c.Y+c.Z, 1e-5)
}
