// Package gshadeaux has helpers for programs built on gshade: TOML scene
// configuration, color utilities and window bootstrapping.
package gshadeaux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/colornames"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glcache"
	"github.com/soypat/gshade/log"
)

var logger = log.New("gshadeaux")

// Config configures the shading engine and an initial scene state.
//
//	glsl_version = "410 core"
//	cache_limit = 32
//	log_level = "info"
//
//	[scene]
//	ambient = "darkslategray"
//	[[scene.lights]]
//	kind = "directional"
//	color = [1.0, 1.0, 1.0]
//	direction = [0.0, 0.0, -1.0]
//	diffuse = true
type Config struct {
	// GLSLVersion is the version directive without the "#version" prefix.
	// Empty uses the default "410 core".
	GLSLVersion string `toml:"glsl_version"`
	// CacheLimit is the maximum number of live programs. Zero or less is unlimited.
	CacheLimit int         `toml:"cache_limit"`
	LogLevel   string      `toml:"log_level"`
	Scene      SceneConfig `toml:"scene"`
}

// SceneConfig mirrors the state tracked by [gshade.State]. Omitted fields keep
// the state's defaults.
type SceneConfig struct {
	// Mode is "render" or "pick".
	Mode      string          `toml:"mode"`
	Lighting  *bool           `toml:"lighting"`
	Texturing *bool           `toml:"texturing"`
	Ambient   any             `toml:"ambient"`
	PickIndex int             `toml:"pick_index"`
	Lights    []LightConfig   `toml:"lights"`
	Material  *MaterialConfig `toml:"material"`
	Fog       *FogConfig      `toml:"fog"`
	Layers    []LayerConfig   `toml:"layers"`
}

type LightConfig struct {
	// Kind is one of "directional", "point" or "spot".
	Kind         string    `toml:"kind"`
	Color        any       `toml:"color"`
	Position     []float32 `toml:"position"`
	Direction    []float32 `toml:"direction"`
	Attenuation  []float32 `toml:"attenuation"`
	Diffuse      bool      `toml:"diffuse"`
	Specular     bool      `toml:"specular"`
	SpotCutoff   float32   `toml:"spot_cutoff"`
	SpotExponent float32   `toml:"spot_exponent"`
}

type MaterialConfig struct {
	BaseColor     any      `toml:"base_color"`
	SpecularColor any      `toml:"specular_color"`
	Specular      *float32 `toml:"specular"`
	Shininess     float32  `toml:"shininess"`
	Emit          float32  `toml:"emit"`
	Alpha         *float32 `toml:"alpha"`
}

type FogConfig struct {
	// Mode is one of "disabled", "linear" or "exponential".
	Mode    string  `toml:"mode"`
	Color   any     `toml:"color"`
	Start   float32 `toml:"start"`
	End     float32 `toml:"end"`
	Density float32 `toml:"density"`
}

type LayerConfig struct {
	// Source is "normal" or "parametric".
	Source string `toml:"source"`
	// Target is one of "base", "specular", "emit" or "alpha".
	Target string `toml:"target"`
	// Blend is "multiply" or "add".
	Blend   string `toml:"blend"`
	Texture uint32 `toml:"texture"`
	// Scale, if set, becomes the layer's texture coordinate matrix.
	Scale []float32 `toml:"scale"`
}

// Load decodes a TOML configuration. Unknown keys are an error.
func Load(r io.Reader) (Config, error) {
	var cfg Config
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	err := dec.Decode(&cfg)
	if err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return cfg, fmt.Errorf("config: %s", serr.String())
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes the TOML configuration at path.
func LoadFile(path string) (Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer fp.Close()
	return Load(fp)
}

// Programmer returns the composer for the configured GLSL version.
func (cfg Config) Programmer() (*glbuild.Programmer, error) {
	if cfg.GLSLVersion == "" {
		return glbuild.NewDefaultProgrammer(), nil
	}
	return glbuild.NewProgrammer(cfg.GLSLVersion)
}

// Budget returns a memory manager enforcing CacheLimit on programs.
func (cfg Config) Budget() *glcache.Budget {
	limits := map[string]int{}
	if cfg.CacheLimit > 0 {
		limits[glcache.DefaultCategory] = cfg.CacheLimit
	}
	return glcache.NewBudget(limits)
}

// ApplyLogging sets the global log level.
func (cfg Config) ApplyLogging() error {
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// TraversalMode returns the configured traversal mode.
func (sc SceneConfig) TraversalMode() (gshade.Mode, error) {
	switch strings.ToLower(sc.Mode) {
	case "", "render":
		return gshade.ModeRender, nil
	case "pick":
		return gshade.ModePick, nil
	}
	return gshade.ModeRender, fmt.Errorf("unknown mode %q", sc.Mode)
}

// Apply sets the scene on s. Nothing is applied when an error is returned.
func (sc SceneConfig) Apply(s *gshade.State) error {
	var steps []func()
	flags := s.Flags()
	if sc.Lighting != nil {
		flags = setFlag(flags, gshade.FlagLighting, *sc.Lighting)
	}
	if sc.Texturing != nil {
		flags = setFlag(flags, gshade.FlagTexturing, *sc.Texturing)
	}
	steps = append(steps, func() { s.SetFlags(flags) })

	if sc.Ambient != nil {
		c, err := ParseColor(sc.Ambient)
		if err != nil {
			return fmt.Errorf("ambient: %w", err)
		}
		steps = append(steps, func() { s.SetAmbient(c) })
	}
	if sc.Lights != nil {
		lights := make([]gshade.Light, len(sc.Lights))
		for i, lc := range sc.Lights {
			l, err := lc.light()
			if err != nil {
				return fmt.Errorf("light %d: %w", i, err)
			}
			lights[i] = l
		}
		steps = append(steps, func() { s.SetLights(lights) })
	}
	if sc.Material != nil {
		m, err := sc.Material.material()
		if err != nil {
			return fmt.Errorf("material: %w", err)
		}
		steps = append(steps, func() { s.SetMaterial(m) })
	}
	if sc.Fog != nil {
		f, err := sc.Fog.fog()
		if err != nil {
			return fmt.Errorf("fog: %w", err)
		}
		steps = append(steps, func() { s.SetFog(f) })
	}
	if sc.Layers != nil {
		layers := make([]gshade.TextureLayer, len(sc.Layers))
		for i, lc := range sc.Layers {
			tl, err := lc.layer()
			if err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
			layers[i] = tl
		}
		steps = append(steps, func() { s.SetTextureLayers(layers) })
	}
	steps = append(steps, func() { s.SetPickIndex(sc.PickIndex) })
	for _, step := range steps {
		step()
	}
	logger.Debugf("scene applied: %d lights, %d texture layers", s.NumLights(), s.NumTextureLayers())
	return nil
}

func setFlag(f, bit gshade.Flags, on bool) gshade.Flags {
	if on {
		return f | bit
	}
	return f &^ bit
}

func (lc LightConfig) light() (l gshade.Light, err error) {
	switch strings.ToLower(lc.Kind) {
	case "", "directional":
		l.Kind = gshade.LightDirectional
	case "point":
		l.Kind = gshade.LightPoint
	case "spot":
		l.Kind = gshade.LightSpot
	default:
		return l, fmt.Errorf("unknown light kind %q", lc.Kind)
	}
	l.Color = ms3.Vec{X: 1, Y: 1, Z: 1}
	if lc.Color != nil {
		l.Color, err = ParseColor(lc.Color)
		if err != nil {
			return l, err
		}
	}
	if l.Position, err = vec(lc.Position, "position"); err != nil {
		return l, err
	}
	if l.Direction, err = vec(lc.Direction, "direction"); err != nil {
		return l, err
	}
	if l.Attenuation, err = vec(lc.Attenuation, "attenuation"); err != nil {
		return l, err
	}
	l.Diffuse = lc.Diffuse
	l.Specular = lc.Specular
	l.SpotCutoff = lc.SpotCutoff
	l.SpotExponent = lc.SpotExponent
	return l, nil
}

func (mc MaterialConfig) material() (m gshade.Material, err error) {
	m = gshade.DefaultMaterial()
	if mc.BaseColor != nil {
		if m.BaseColor, err = ParseColor(mc.BaseColor); err != nil {
			return m, err
		}
	}
	if mc.SpecularColor != nil {
		if m.SpecularColor, err = ParseColor(mc.SpecularColor); err != nil {
			return m, err
		}
	}
	if mc.Specular != nil {
		m.Specular = *mc.Specular
	}
	if mc.Alpha != nil {
		m.Alpha = *mc.Alpha
	}
	m.Shininess = mc.Shininess
	m.Emit = mc.Emit
	return m, nil
}

func (fc FogConfig) fog() (f gshade.Fog, err error) {
	switch strings.ToLower(fc.Mode) {
	case "", "disabled":
		f.Mode = gshade.FogDisabled
	case "linear":
		f.Mode = gshade.FogLinear
	case "exponential":
		f.Mode = gshade.FogExponential
	default:
		return f, fmt.Errorf("unknown fog mode %q", fc.Mode)
	}
	if fc.Color != nil {
		if f.Color, err = ParseColor(fc.Color); err != nil {
			return f, err
		}
	}
	f.Start = fc.Start
	f.End = fc.End
	f.Density = fc.Density
	return f, nil
}

func (lc LayerConfig) layer() (tl gshade.TextureLayer, err error) {
	switch strings.ToLower(lc.Source) {
	case "", "parametric":
		tl.Source = gshade.TexCoordParametric
	case "normal":
		tl.Source = gshade.TexCoordNormal
	default:
		return tl, fmt.Errorf("unknown texture coordinate source %q", lc.Source)
	}
	switch strings.ToLower(lc.Target) {
	case "", "base":
		tl.Target = gshade.TargetBaseColor
	case "specular":
		tl.Target = gshade.TargetSpecular
	case "emit":
		tl.Target = gshade.TargetEmit
	case "alpha":
		tl.Target = gshade.TargetAlpha
	default:
		return tl, fmt.Errorf("unknown texture target %q", lc.Target)
	}
	switch strings.ToLower(lc.Blend) {
	case "", "multiply":
		tl.Blend = gshade.BlendMultiply
	case "add":
		tl.Blend = gshade.BlendAdd
	default:
		return tl, fmt.Errorf("unknown blend mode %q", lc.Blend)
	}
	tl.Texture = lc.Texture
	if lc.Scale != nil {
		scale, err := vec(lc.Scale, "scale")
		if err != nil {
			return tl, err
		}
		m := gshade.ScalingMat4(scale)
		tl.Matrix = &m
	}
	return tl, nil
}

func vec(v []float32, field string) (ms3.Vec, error) {
	switch len(v) {
	case 0:
		return ms3.Vec{}, nil
	case 3:
		return ms3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
	}
	return ms3.Vec{}, fmt.Errorf("%s needs 3 components, got %d", field, len(v))
}

// ParseColor converts a decoded TOML color to RGB in [0,1]. Accepted forms are
// an SVG color name such as "coral", a "#rrggbb" hex string or an array of
// three numbers in [0,1].
func ParseColor(v any) (ms3.Vec, error) {
	switch c := v.(type) {
	case ms3.Vec:
		return c, nil
	case string:
		if strings.HasPrefix(c, "#") {
			return parseHex(c)
		}
		rgba, ok := colornames.Map[strings.ToLower(c)]
		if !ok {
			return ms3.Vec{}, fmt.Errorf("unknown color name %q", c)
		}
		return ms3.Vec{
			X: float32(rgba.R) / 255,
			Y: float32(rgba.G) / 255,
			Z: float32(rgba.B) / 255,
		}, nil
	case []any:
		if len(c) != 3 {
			return ms3.Vec{}, fmt.Errorf("color needs 3 components, got %d", len(c))
		}
		var rgb [3]float32
		for i, e := range c {
			switch n := e.(type) {
			case float64:
				rgb[i] = float32(n)
			case int64:
				rgb[i] = float32(n)
			default:
				return ms3.Vec{}, fmt.Errorf("color component %d is %T, want number", i, e)
			}
		}
		return ms3.Vec{X: rgb[0], Y: rgb[1], Z: rgb[2]}, nil
	}
	return ms3.Vec{}, fmt.Errorf("unsupported color %T", v)
}

func parseHex(s string) (ms3.Vec, error) {
	if len(s) != 7 {
		return ms3.Vec{}, fmt.Errorf("bad hex color %q", s)
	}
	c, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return ms3.Vec{}, fmt.Errorf("bad hex color %q: %w", s, err)
	}
	r, g, b := cToRGB(uint32(c))
	return ms3.Vec{X: r, Y: g, Z: b}, nil
}
