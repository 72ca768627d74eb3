package gshade

import (
	"strconv"

	"github.com/soypat/geometry/ms3"
)

// Mode selects the kind of shader a traversal needs.
type Mode uint8

const (
	// ModeRender produces lit, textured and fogged shaders.
	ModeRender Mode = iota
	// ModePick produces the lightweight shaders that write an object index
	// as color for object selection.
	ModePick
	numModes
)

func (m Mode) String() string {
	switch m {
	case ModeRender:
		return "render"
	case ModePick:
		return "pick"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// Flags are renderer-wide switches that gate entire shading features.
type Flags uint8

const (
	// FlagLighting enables the light list. With lighting off lights are ignored.
	FlagLighting Flags = 1 << iota
	// FlagTexturing enables texture sampling. With texturing off texture layers are ignored.
	FlagTexturing

	DefaultFlags = FlagLighting | FlagTexturing
)

func (f Flags) Lighting() bool  { return f&FlagLighting != 0 }
func (f Flags) Texturing() bool { return f&FlagTexturing != 0 }

// LightKind is the type of light source.
type LightKind uint8

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
)

func (k LightKind) String() string {
	switch k {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return "LightKind(" + strconv.Itoa(int(k)) + ")"
}

// Light is a single light source. Directional lights use only Direction,
// point lights use Position and Attenuation and spot lights use all fields.
type Light struct {
	Kind  LightKind
	Color ms3.Vec
	// Position of the light in world coordinates.
	Position ms3.Vec
	// Direction the light travels in world coordinates.
	Direction ms3.Vec
	// Diffuse and Specular enable the light's contributions.
	// A light with neither enabled is kept in the list but adds nothing.
	Diffuse  bool
	Specular bool
	// Attenuation holds the constant (X), linear (Y) and quadratic (Z)
	// distance attenuation coefficients. Zero value defaults to (1,0,0).
	Attenuation ms3.Vec
	// SpotCutoff is the half-angle of the spot cone in degrees.
	SpotCutoff float32
	// SpotExponent shapes the angular falloff inside the cone.
	SpotExponent float32
}

// sanitized returns the light with missing or out of range fields replaced by
// their documented defaults.
func (l Light) sanitized() Light {
	if l.Kind > LightSpot {
		l.Kind = LightDirectional
	}
	if l.Attenuation == (ms3.Vec{}) || !finite(l.Attenuation.X+l.Attenuation.Y+l.Attenuation.Z) {
		l.Attenuation = defaultAtten
	}
	if l.Direction == (ms3.Vec{}) || !finite(l.Direction.X+l.Direction.Y+l.Direction.Z) {
		l.Direction = defaultDir
	}
	if !(l.SpotCutoff > 0 && l.SpotCutoff <= 90) {
		l.SpotCutoff = DefaultSpotCutoff
	}
	if !(l.SpotExponent >= 0) {
		l.SpotExponent = 0
	}
	return l
}

// TexCoordSource selects where a texture layer takes its coordinates from.
type TexCoordSource uint8

const (
	// TexCoordNormal samples with the view-space normal.
	TexCoordNormal TexCoordSource = iota
	// TexCoordParametric samples with the surface's UV coordinates.
	TexCoordParametric
)

// TextureTarget is the material channel a texture layer modifies.
type TextureTarget uint8

const (
	TargetBaseColor TextureTarget = iota
	TargetSpecular
	TargetEmit
	TargetAlpha
)

// BlendMode is how a texture layer is combined into its target.
type BlendMode uint8

const (
	BlendMultiply BlendMode = iota
	BlendAdd
)

// TextureLayer is one entry of the texture stack.
type TextureLayer struct {
	Source TexCoordSource
	Target TextureTarget
	Blend  BlendMode
	// Matrix transforms the texture coordinates. nil means no transform.
	Matrix *Mat4
	// Texture is the device texture handle sampled by this layer.
	Texture uint32
}

func (tl TextureLayer) sanitized() TextureLayer {
	if tl.Source > TexCoordParametric {
		tl.Source = TexCoordParametric
	}
	if tl.Target > TargetAlpha {
		tl.Target = TargetBaseColor
	}
	if tl.Blend > BlendAdd {
		tl.Blend = BlendMultiply
	}
	if tl.Matrix != nil {
		m := *tl.Matrix // Layers never alias caller memory.
		tl.Matrix = &m
	}
	return tl
}

// Material describes surface response. All fields are passed as uniforms.
type Material struct {
	BaseColor     ms3.Vec
	SpecularColor ms3.Vec
	// Specular is the intensity of the specular contribution.
	Specular  float32
	Shininess float32
	// Emit greater than zero renders the base color full-bright, ignoring lights.
	Emit  float32
	Alpha float32
}

// DefaultMaterial returns the material a State starts with: white, fully opaque,
// with full white specular highlights of [DefaultShininess].
func DefaultMaterial() Material {
	return Material{
		BaseColor:     one,
		SpecularColor: one,
		Specular:      1,
		Shininess:     DefaultShininess,
		Alpha:         1,
	}
}

func (m Material) sanitized() Material {
	if !(m.Shininess > 0) {
		m.Shininess = DefaultShininess
	}
	if !(m.Specular >= 0) {
		m.Specular = 0
	}
	if !(m.Emit >= 0) {
		m.Emit = 0
	}
	if !finite(m.Alpha) {
		m.Alpha = 1
	}
	m.Alpha = clampf(m.Alpha, 0, 1)
	return m
}

// FogMode is the fog falloff function.
type FogMode uint8

const (
	FogDisabled FogMode = iota
	// FogLinear interpolates between the start and end distances.
	FogLinear
	// FogExponential uses exponential-squared falloff with density past the start distance.
	FogExponential
)

func (f FogMode) String() string {
	switch f {
	case FogDisabled:
		return "disabled"
	case FogLinear:
		return "linear"
	case FogExponential:
		return "exponential"
	}
	return "FogMode(" + strconv.Itoa(int(f)) + ")"
}

// Fog blends fragments towards Color with distance from the eye.
type Fog struct {
	Mode    FogMode
	Color   ms3.Vec
	Start   float32
	End     float32
	Density float32
}

func (f Fog) sanitized() Fog {
	if f.Mode > FogExponential {
		f.Mode = FogDisabled
	}
	if !(f.Start >= 0) {
		f.Start = 0
	}
	if !(f.End > f.Start) {
		f.End = f.Start + DefaultFogRange
	}
	if !(f.Density > 0) {
		f.Density = DefaultFogDensity
	}
	return f
}

// Transforms holds the current model, view and projection matrices.
type Transforms struct {
	Model      Mat4
	View       Mat4
	Projection Mat4
}

// DefaultTransforms returns identity model, view and projection matrices.
func DefaultTransforms() Transforms {
	id := IdentityMat4()
	return Transforms{Model: id, View: id, Projection: id}
}

// ModelView returns View*Model.
func (t Transforms) ModelView() Mat4 { return t.View.Mul(t.Model) }

// NormalMatrix returns the inverse transpose of the upper 3x3 of the
// model-view matrix in column-major order.
func (t Transforms) NormalMatrix() [9]float32 { return t.ModelView().NormalMatrix() }
