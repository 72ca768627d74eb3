package glbuild

import "strconv"

// Uniform identifies a uniform of the generated programs. Indexed uniforms are
// declared once per light or texture layer with the index appended to the name.
type Uniform uint8

const (
	UniformModelMatrix Uniform = iota
	UniformViewMatrix
	UniformProjectionMatrix
	UniformNormalMatrix
	UniformAmbientColor
	UniformMaterialBaseColor
	UniformMaterialSpecularColor
	UniformMaterialSpecular
	UniformMaterialShininess
	UniformMaterialEmit
	UniformMaterialAlpha
	UniformLightColor
	UniformLightPos
	UniformLightDir
	UniformLightAttenuation
	UniformLightSpotCosCutoff
	UniformLightSpotExponent
	UniformSampler
	UniformLayerMatrix
	UniformFogColor
	UniformFogStart
	UniformFogEnd
	UniformFogDensity
	UniformPickColor
	// NumUniforms is the number of distinct uniforms.
	NumUniforms
)

var uniformNames = [NumUniforms]string{
	UniformModelMatrix:           "uMMatrix",
	UniformViewMatrix:            "uVMatrix",
	UniformProjectionMatrix:      "uPMatrix",
	UniformNormalMatrix:          "uNMatrix",
	UniformAmbientColor:          "uAmbientColor",
	UniformMaterialBaseColor:     "uMaterialBaseColor",
	UniformMaterialSpecularColor: "uMaterialSpecularColor",
	UniformMaterialSpecular:      "uMaterialSpecular",
	UniformMaterialShininess:     "uMaterialShininess",
	UniformMaterialEmit:          "uMaterialEmit",
	UniformMaterialAlpha:         "uMaterialAlpha",
	UniformLightColor:            "uLightColor",
	UniformLightPos:              "uLightPos",
	UniformLightDir:              "uLightDir",
	UniformLightAttenuation:      "uLightAttenuation",
	UniformLightSpotCosCutoff:    "uLightSpotCosCutoff",
	UniformLightSpotExponent:     "uLightSpotExponent",
	UniformSampler:               "uSampler",
	UniformLayerMatrix:           "uLayerMatrix",
	UniformFogColor:              "uFogColor",
	UniformFogStart:              "uFogStart",
	UniformFogEnd:                "uFogEnd",
	UniformFogDensity:            "uFogDensity",
	UniformPickColor:             "uPickColor",
}

// Indexed reports whether the uniform is declared per light or per texture layer.
func (u Uniform) Indexed() bool {
	return u >= UniformLightColor && u <= UniformLayerMatrix
}

// AppendName appends the GLSL name of the uniform to b. idx is ignored for
// uniforms that are not indexed.
func (u Uniform) AppendName(b []byte, idx int) []byte {
	if u >= NumUniforms {
		panic("invalid uniform " + strconv.Itoa(int(u)))
	}
	b = append(b, uniformNames[u]...)
	if u.Indexed() {
		b = strconv.AppendInt(b, int64(idx), 10)
	}
	return b
}

// Name returns the GLSL name of the uniform.
func (u Uniform) Name(idx int) string {
	var buf [32]byte
	return string(u.AppendName(buf[:0], idx))
}

func (u Uniform) String() string {
	if u >= NumUniforms {
		return "Uniform(" + strconv.Itoa(int(u)) + ")"
	}
	return uniformNames[u]
}

// UniformRef is a declared uniform: the uniform kind and, for indexed uniforms,
// the light or texture layer index.
type UniformRef struct {
	Uniform Uniform
	Index   int
}

func (ref UniformRef) AppendName(b []byte) []byte { return ref.Uniform.AppendName(b, ref.Index) }
func (ref UniformRef) String() string             { return ref.Uniform.Name(ref.Index) }

// Attribute identifies a vertex attribute of the generated programs.
type Attribute uint8

const (
	AttribVertex Attribute = iota
	AttribNormal
	AttribUVCoord
	// NumAttributes is the number of distinct attributes.
	NumAttributes
)

var attribNames = [NumAttributes]string{
	AttribVertex:  "aVertex",
	AttribNormal:  "aNormal",
	AttribUVCoord: "aUVCoord",
}

// AppendName appends the GLSL name of the attribute to b.
func (a Attribute) AppendName(b []byte) []byte {
	if a >= NumAttributes {
		panic("invalid attribute " + strconv.Itoa(int(a)))
	}
	return append(b, attribNames[a]...)
}

func (a Attribute) String() string {
	if a >= NumAttributes {
		return "Attribute(" + strconv.Itoa(int(a)) + ")"
	}
	return attribNames[a]
}

// Components returns the number of float components of the attribute.
func (a Attribute) Components() int {
	if a == AttribUVCoord {
		return 2
	}
	return 3
}
