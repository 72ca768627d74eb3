package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/soypat/gshade"
)

// VersionStr is the default GLSL version directive.
const VersionStr = "#version 410 core\n"

// Source is a composed program: both shader stages plus every uniform and
// attribute they declare, in declaration order.
type Source struct {
	Vertex     []byte
	Fragment   []byte
	Uniforms   []UniformRef
	Attributes []Attribute
}

// Declares reports whether the source declares the uniform u with index idx.
func (src Source) Declares(u Uniform, idx int) bool {
	if !u.Indexed() {
		idx = 0
	}
	return slices.Contains(src.Uniforms, UniformRef{Uniform: u, Index: idx})
}

// DeclaresAttribute reports whether the vertex stage declares attribute a.
func (src Source) DeclaresAttribute(a Attribute) bool {
	return slices.Contains(src.Attributes, a)
}

// Programmer implements shader generation logic for [gshade.Shape]. Output is a
// pure function of the shape: equal shapes produce byte identical source.
type Programmer struct {
	header []byte
	decl   decls
}

// NewDefaultProgrammer returns a Programmer emitting [VersionStr] sources.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{header: []byte(VersionStr)}
}

// NewProgrammer returns a Programmer emitting sources for the GLSL version, i.e: "410 core" or "330 core".
func NewProgrammer(version string) (*Programmer, error) {
	version = string(bytes.TrimSpace([]byte(version)))
	if len(version) < 3 {
		return nil, errors.New("short GLSL version " + strconv.Quote(version))
	}
	n, err := strconv.Atoi(version[:3])
	if err != nil {
		return nil, fmt.Errorf("bad GLSL version %q: %w", version, err)
	} else if n < 330 {
		return nil, fmt.Errorf("GLSL version %d lacks in/out qualifiers, need 330 or newer", n)
	}
	return &Programmer{header: []byte("#version " + version + "\n")}, nil
}

// Version returns the version directive line, without the trailing newline.
func (p *Programmer) Version() string {
	return string(bytes.TrimSpace(p.header))
}

// Compose generates both stages for the shape and records the declared
// uniforms and attributes.
func (p *Programmer) Compose(shape gshade.Shape) (Source, error) {
	err := ValidateShape(shape)
	if err != nil {
		return Source{}, err
	}
	p.decl.reset()
	var src Source
	src.Vertex = p.appendVertex(nil, shape, &p.decl)
	src.Fragment = p.appendFragment(nil, shape, &p.decl)
	src.Uniforms = slices.Clone(p.decl.uniforms)
	src.Attributes = slices.Clone(p.decl.attribs)
	return src, nil
}

// AppendVertexSource appends the vertex stage source for the shape to dst.
func (p *Programmer) AppendVertexSource(dst []byte, shape gshade.Shape) ([]byte, error) {
	err := ValidateShape(shape)
	if err != nil {
		return dst, err
	}
	return p.appendVertex(dst, shape, nil), nil
}

// AppendFragmentSource appends the fragment stage source for the shape to dst.
func (p *Programmer) AppendFragmentSource(dst []byte, shape gshade.Shape) ([]byte, error) {
	err := ValidateShape(shape)
	if err != nil {
		return dst, err
	}
	return p.appendFragment(dst, shape, nil), nil
}

// ValidateShape checks every enumerated field of the shape is known to the composer.
func ValidateShape(sh gshade.Shape) error {
	switch {
	case sh.Mode == gshade.ModePick:
		return nil
	case sh.Mode != gshade.ModeRender:
		return fmt.Errorf("unknown traversal mode %d", sh.Mode)
	case sh.Fog > gshade.FogExponential:
		return fmt.Errorf("unknown fog mode %d", sh.Fog)
	}
	for i, l := range sh.Lights {
		if l.Kind > gshade.LightSpot {
			return fmt.Errorf("light %d: unknown kind %d", i, l.Kind)
		}
	}
	for i, tl := range sh.Layers {
		if tl.Source > gshade.TexCoordParametric || tl.Target > gshade.TargetAlpha || tl.Blend > gshade.BlendAdd {
			return fmt.Errorf("texture layer %d: unknown source, target or blend %+v", i, tl)
		}
	}
	return nil
}

// decls records declarations in order. A nil *decls discards them.
type decls struct {
	uniforms []UniformRef
	attribs  []Attribute
}

func (d *decls) reset() {
	d.uniforms = d.uniforms[:0]
	d.attribs = d.attribs[:0]
}

func (d *decls) uniform(b []byte, typename string, u Uniform, idx int) []byte {
	if !u.Indexed() {
		idx = 0
	}
	if d != nil {
		d.uniforms = append(d.uniforms, UniformRef{Uniform: u, Index: idx})
	}
	b = append(b, "uniform "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = u.AppendName(b, idx)
	return append(b, ";\n"...)
}

func (d *decls) attribute(b []byte, typename string, a Attribute) []byte {
	if d != nil {
		d.attribs = append(d.attribs, a)
	}
	b = append(b, "in "...)
	b = append(b, typename...)
	b = append(b, ' ')
	b = a.AppendName(b)
	return append(b, ";\n"...)
}

// needs summarizes which optional inputs a render shape requires.
type needs struct {
	lit        bool
	diffuse    bool
	specular   bool
	normal     bool
	uv         bool
	viewVertex bool
}

func analyze(sh gshade.Shape) (n needs) {
	if sh.Mode != gshade.ModeRender {
		return n
	}
	for _, l := range sh.Lights {
		if !l.Contributes() {
			continue
		}
		n.lit = true
		n.diffuse = n.diffuse || l.Diffuse
		n.specular = n.specular || l.Specular
	}
	n.normal = n.lit
	for _, tl := range sh.Layers {
		if !n.layerActive(tl) {
			continue
		}
		if tl.Source == gshade.TexCoordNormal {
			n.normal = true
		} else {
			n.uv = true
		}
	}
	// Only the specular view vector and fog read the view-space position.
	n.viewVertex = n.specular || sh.Fog != gshade.FogDisabled
	return n
}

// layerActive reports whether the layer affects output. Specular layers do
// nothing without a specular light.
func (n needs) layerActive(tl gshade.LayerShape) bool {
	return tl.Target != gshade.TargetSpecular || n.specular
}

func appendIdx(b []byte, name string, i int) []byte {
	b = append(b, name...)
	return strconv.AppendInt(b, int64(i), 10)
}

func appendVarying(b []byte, qualifier, typename, name string, i int) []byte {
	b = append(b, qualifier...)
	b = append(b, ' ')
	b = append(b, typename...)
	b = append(b, ' ')
	if i >= 0 {
		b = appendIdx(b, name, i)
	} else {
		b = append(b, name...)
	}
	return append(b, ";\n"...)
}

// appendVaryings declares the interface between stages. qualifier is "out"
// for the vertex stage and "in" for the fragment stage.
func appendVaryings(b []byte, qualifier string, sh gshade.Shape, n needs) []byte {
	if n.viewVertex {
		b = appendVarying(b, qualifier, "vec3", "vViewVertex", -1)
	}
	if n.normal {
		b = appendVarying(b, qualifier, "vec3", "vNormal", -1)
	}
	if n.uv {
		b = appendVarying(b, qualifier, "vec2", "vUVCoord", -1)
	}
	if sh.Mode != gshade.ModeRender {
		return b
	}
	for i, l := range sh.Lights {
		if !l.Contributes() {
			continue
		}
		b = appendVarying(b, qualifier, "vec3", "vLightVec", i)
		if l.Kind != gshade.LightDirectional {
			b = appendVarying(b, qualifier, "float", "vLightDist", i)
		}
		if l.Kind == gshade.LightSpot {
			b = appendVarying(b, qualifier, "vec3", "vSpotDir", i)
		}
	}
	return b
}

func (p *Programmer) appendVertex(b []byte, sh gshade.Shape, d *decls) []byte {
	n := analyze(sh)
	b = append(b, p.header...)
	b = d.attribute(b, "vec3", AttribVertex)
	if n.normal {
		b = d.attribute(b, "vec3", AttribNormal)
	}
	if n.uv {
		b = d.attribute(b, "vec2", AttribUVCoord)
	}
	b = d.uniform(b, "mat4", UniformModelMatrix, 0)
	b = d.uniform(b, "mat4", UniformViewMatrix, 0)
	b = d.uniform(b, "mat4", UniformProjectionMatrix, 0)
	if n.normal {
		b = d.uniform(b, "mat3", UniformNormalMatrix, 0)
	}
	if sh.Mode == gshade.ModeRender {
		for i, l := range sh.Lights {
			if !l.Contributes() {
				continue
			}
			if l.Kind != gshade.LightDirectional {
				b = d.uniform(b, "vec3", UniformLightPos, i)
			}
			if l.Kind != gshade.LightPoint {
				b = d.uniform(b, "vec3", UniformLightDir, i)
			}
		}
	}
	b = appendVaryings(b, "out", sh, n)

	b = append(b, "void main() {\n\tvec4 tmpVertex = uVMatrix*uMMatrix*vec4(aVertex,1.0);\n"...)
	if n.viewVertex {
		b = append(b, "\tvViewVertex = tmpVertex.xyz;\n"...)
	}
	if n.normal {
		b = append(b, "\tvNormal = normalize(uNMatrix*aNormal);\n"...)
	}
	if n.uv {
		b = append(b, "\tvUVCoord = aUVCoord;\n"...)
	}
	for i, l := range sh.Lights {
		if sh.Mode != gshade.ModeRender || !l.Contributes() {
			continue
		}
		switch l.Kind {
		case gshade.LightDirectional:
			// Direction is the way light travels, the light vector points back at the source.
			b = appendIdx(append(b, '\t'), "vLightVec", i)
			b = appendIdx(append(b, " = normalize((uVMatrix*vec4(-"...), "uLightDir", i)
			b = append(b, ",0.0)).xyz);\n"...)
		case gshade.LightPoint, gshade.LightSpot:
			b = appendIdx(append(b, '\t'), "vLightVec", i)
			b = appendIdx(append(b, " = (uVMatrix*vec4("...), "uLightPos", i)
			b = append(b, ",1.0)).xyz - tmpVertex.xyz;\n"...)
			b = appendIdx(append(b, '\t'), "vLightDist", i)
			b = appendIdx(append(b, " = length("...), "vLightVec", i)
			b = append(b, ");\n"...)
			if l.Kind == gshade.LightSpot {
				b = appendIdx(append(b, '\t'), "vSpotDir", i)
				b = appendIdx(append(b, " = normalize((uVMatrix*vec4(-"...), "uLightDir", i)
				b = append(b, ",0.0)).xyz);\n"...)
			}
		}
	}
	b = append(b, "\tgl_Position = uPMatrix*tmpVertex;\n}\n"...)
	return b
}

func (p *Programmer) appendFragment(b []byte, sh gshade.Shape, d *decls) []byte {
	b = append(b, p.header...)
	if sh.Mode == gshade.ModePick {
		b = d.uniform(b, "vec3", UniformPickColor, 0)
		b = append(b, "out vec4 fragColor;\nvoid main() {\n\tfragColor = vec4(uPickColor,1.0);\n}\n"...)
		return b
	}
	n := analyze(sh)
	b = appendVaryings(b, "in", sh, n)
	b = d.uniform(b, "vec3", UniformMaterialBaseColor, 0)
	b = d.uniform(b, "float", UniformMaterialAlpha, 0)
	b = d.uniform(b, "float", UniformMaterialEmit, 0)
	if n.lit {
		b = d.uniform(b, "vec3", UniformAmbientColor, 0)
	}
	if n.specular {
		b = d.uniform(b, "vec3", UniformMaterialSpecularColor, 0)
		b = d.uniform(b, "float", UniformMaterialSpecular, 0)
		b = d.uniform(b, "float", UniformMaterialShininess, 0)
	}
	for i, l := range sh.Lights {
		if !l.Contributes() {
			continue
		}
		b = d.uniform(b, "vec3", UniformLightColor, i)
		if l.Kind != gshade.LightDirectional {
			b = d.uniform(b, "vec3", UniformLightAttenuation, i)
		}
		if l.Kind == gshade.LightSpot {
			b = d.uniform(b, "float", UniformLightSpotCosCutoff, i)
			b = d.uniform(b, "float", UniformLightSpotExponent, i)
		}
	}
	for i, tl := range sh.Layers {
		if !n.layerActive(tl) {
			continue
		}
		b = d.uniform(b, "sampler2D", UniformSampler, i)
		if tl.HasMatrix {
			b = d.uniform(b, "mat4", UniformLayerMatrix, i)
		}
	}
	switch sh.Fog {
	case gshade.FogLinear:
		b = d.uniform(b, "vec3", UniformFogColor, 0)
		b = d.uniform(b, "float", UniformFogStart, 0)
		b = d.uniform(b, "float", UniformFogEnd, 0)
	case gshade.FogExponential:
		b = d.uniform(b, "vec3", UniformFogColor, 0)
		b = d.uniform(b, "float", UniformFogStart, 0)
		b = d.uniform(b, "float", UniformFogDensity, 0)
	}
	b = append(b, "out vec4 fragColor;\nvoid main() {\n"...)
	b = append(b, "\tvec3 baseColor = uMaterialBaseColor;\n\tfloat alpha = uMaterialAlpha;\n\tfloat emit = uMaterialEmit;\n"...)
	if n.specular {
		b = append(b, "\tvec3 specColor = uMaterialSpecularColor*uMaterialSpecular;\n"...)
	}
	if n.normal {
		b = append(b, "\tvec3 N = normalize(vNormal);\n"...)
	}
	for i, tl := range sh.Layers {
		if n.layerActive(tl) {
			b = appendLayer(b, i, tl)
		}
	}
	if n.lit {
		b = appendLighting(b, sh, n)
	} else {
		b = append(b, "\tvec3 color = baseColor;\n"...)
	}
	b = append(b, "\tif (emit > 0.0) {\n\t\tcolor = baseColor;\n\t}\n"...)
	switch sh.Fog {
	case gshade.FogLinear:
		b = append(b, "\tfloat fogDist = length(vViewVertex);\n"...)
		b = append(b, "\tfloat fogFactor = clamp((uFogEnd-fogDist)/(uFogEnd-uFogStart),0.0,1.0);\n"...)
		b = append(b, "\tcolor = mix(uFogColor,color,fogFactor);\n"...)
	case gshade.FogExponential:
		b = append(b, "\tfloat fogDist = max(length(vViewVertex)-uFogStart,0.0);\n"...)
		b = append(b, "\tfloat fogFactor = clamp(exp(-(uFogDensity*fogDist)*(uFogDensity*fogDist)),0.0,1.0);\n"...)
		b = append(b, "\tcolor = mix(uFogColor,color,fogFactor);\n"...)
	}
	b = append(b, "\tfragColor = vec4(color,alpha);\n}\n"...)
	return b
}

func appendLayer(b []byte, i int, tl gshade.LayerShape) []byte {
	b = appendIdx(append(b, "\tvec2 "...), "tc", i)
	if tl.Source == gshade.TexCoordNormal {
		b = append(b, " = N.xy*0.5+0.5;\n"...)
	} else {
		b = append(b, " = vUVCoord;\n"...)
	}
	if tl.HasMatrix {
		b = appendIdx(append(b, '\t'), "tc", i)
		b = appendIdx(append(b, " = ("...), "uLayerMatrix", i)
		b = appendIdx(append(b, "*vec4("...), "tc", i)
		b = append(b, ",0.0,1.0)).xy;\n"...)
	}
	b = appendIdx(append(b, "\tvec4 "...), "texel", i)
	b = appendIdx(append(b, " = texture("...), "uSampler", i)
	b = appendIdx(append(b, ','), "tc", i)
	b = append(b, ");\n"...)

	var dst, swizzle string
	switch tl.Target {
	case gshade.TargetBaseColor:
		dst, swizzle = "baseColor", ".rgb"
	case gshade.TargetSpecular:
		dst, swizzle = "specColor", ".rgb"
	case gshade.TargetEmit:
		dst, swizzle = "emit", ".r"
	case gshade.TargetAlpha:
		dst, swizzle = "alpha", ".a"
	}
	op := " *= "
	if tl.Blend == gshade.BlendAdd {
		op = " += "
	}
	b = append(b, '\t')
	b = append(b, dst...)
	b = append(b, op...)
	b = appendIdx(b, "texel", i)
	b = append(b, swizzle...)
	return append(b, ";\n"...)
}

func appendLighting(b []byte, sh gshade.Shape, n needs) []byte {
	if n.diffuse {
		b = append(b, "\tvec3 diffuseSum = vec3(0.0);\n"...)
	}
	if n.specular {
		b = append(b, "\tvec3 specularSum = vec3(0.0);\n\tvec3 V = normalize(-vViewVertex);\n"...)
	}
	for i, l := range sh.Lights {
		if !l.Contributes() {
			continue
		}
		b = append(b, "\t{\n"...)
		b = appendIdx(append(b, "\t\tvec3 L = normalize("...), "vLightVec", i)
		b = append(b, ");\n\t\tfloat att = 1.0;\n"...)
		if l.Kind != gshade.LightDirectional {
			b = appendIdx(append(b, "\t\tvec3 k = "...), "uLightAttenuation", i)
			b = appendIdx(append(b, ";\n\t\tfloat d = "...), "vLightDist", i)
			b = append(b, ";\n\t\tatt = 1.0/(k.x + k.y*d + k.z*d*d);\n"...)
		}
		if l.Kind == gshade.LightSpot {
			b = appendIdx(append(b, "\t\tfloat spot = dot(-L,-normalize("...), "vSpotDir", i)
			b = appendIdx(append(b, "));\n\t\tif (spot > "...), "uLightSpotCosCutoff", i)
			b = appendIdx(append(b, ") {\n\t\t\tatt *= pow(spot,"...), "uLightSpotExponent", i)
			b = append(b, ");\n\t\t} else {\n\t\t\tatt = 0.0;\n\t\t}\n"...)
		}
		if l.Diffuse {
			b = appendIdx(append(b, "\t\tdiffuseSum += "...), "uLightColor", i)
			b = append(b, "*max(dot(N,L),0.0)*att;\n"...)
		}
		if l.Specular {
			b = append(b, "\t\tvec3 R = reflect(-L,N);\n"...)
			b = appendIdx(append(b, "\t\tspecularSum += "...), "uLightColor", i)
			b = append(b, "*pow(max(dot(R,V),0.0),uMaterialShininess)*att;\n"...)
		}
		b = append(b, "\t}\n"...)
	}
	b = append(b, "\tvec3 color = baseColor*(uAmbientColor"...)
	if n.diffuse {
		b = append(b, "+diffuseSum"...)
	}
	b = append(b, ')')
	if n.specular {
		b = append(b, " + specColor*specularSum"...)
	}
	return append(b, ";\n"...)
}

// AppendFloat appends a float to the buffer with the minimal number of decimal
// digits, replacing the negative sign and decimal point with neg and decimal if non-zero.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', -1, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != 0 && decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if neg != 0 && b[start] == '-' {
		b[start] = neg
	}
	return b
}

// AppendFloats appends the floats separated by sep.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

// AppendAnnotated appends src to dst with every line prefixed by its 1-based
// line number, the form GL driver info logs refer to.
func AppendAnnotated(dst, src []byte) []byte {
	line := 1
	for len(src) > 0 {
		end := bytes.IndexByte(src, '\n')
		if end < 0 {
			end = len(src) - 1
		}
		if line < 100 {
			dst = append(dst, ' ')
		}
		if line < 10 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendInt(dst, int64(line), 10)
		dst = append(dst, ": "...)
		dst = append(dst, src[:end+1]...)
		if src[end] != '\n' {
			dst = append(dst, '\n')
		}
		src = src[end+1:]
		line++
	}
	return dst
}
