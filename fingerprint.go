package gshade

// Fingerprint is the canonical encoding of a [Shape]. Equal fingerprints imply
// equal shapes and therefore byte-identical generated shader source.
type Fingerprint string

// Hash returns a 64 bit digest of the fingerprint, useful for short names and logs.
func (fp Fingerprint) Hash() uint64 {
	return hash([]byte(fp), 0x9e3779b97f4a7c15)
}

// LightShape is the structural part of a [Light].
type LightShape struct {
	Kind     LightKind
	Diffuse  bool
	Specular bool
}

// Contributes reports whether the light adds anything to the lit color.
func (ls LightShape) Contributes() bool { return ls.Diffuse || ls.Specular }

// LayerShape is the structural part of a [TextureLayer].
type LayerShape struct {
	Source    TexCoordSource
	Target    TextureTarget
	Blend     BlendMode
	HasMatrix bool
}

// Shape is the subset of a [State] that determines generated shader source:
// counts, kinds, ordering and flags. Numeric values passed as uniforms are not part of it.
type Shape struct {
	Mode   Mode
	Lights []LightShape
	Layers []LayerShape
	Fog    FogMode
}

// pickShape is shared by every picking traversal.
var pickShape = Shape{Mode: ModePick}

// Lit reports whether any light contributes to the shape.
func (sh Shape) Lit() bool {
	for _, l := range sh.Lights {
		if l.Contributes() {
			return true
		}
	}
	return false
}

// Fingerprint returns the canonical encoding of the shape.
func (sh Shape) Fingerprint() Fingerprint {
	var buf [64]byte
	return Fingerprint(sh.AppendKey(buf[:0]))
}

// AppendKey appends the canonical encoding of the shape to dst. Picking shapes
// always encode to "p". Render shapes encode as
//
//	r|L<kind><flags>...|T<source><target><blend><matrix>...|F<fog>
//
// where light kinds are d, p, s and flags is diffuse+2*specular.
func (sh Shape) AppendKey(dst []byte) []byte {
	if sh.Mode == ModePick {
		return append(dst, 'p')
	}
	dst = append(dst, "r|L"...)
	for _, l := range sh.Lights {
		dst = append(dst, "dps"[l.Kind], byte('0'+b2i(l.Diffuse)+2*b2i(l.Specular)))
	}
	dst = append(dst, "|T"...)
	for _, t := range sh.Layers {
		dst = append(dst, "nu"[t.Source], "bsea"[t.Target], "ma"[t.Blend], byte('0'+b2i(t.HasMatrix)))
	}
	dst = append(dst, "|F"...)
	dst = append(dst, "0le"[sh.Fog])
	return dst
}

func (sh Shape) equal(other Shape) bool {
	if sh.Mode != other.Mode || sh.Fog != other.Fog ||
		len(sh.Lights) != len(other.Lights) || len(sh.Layers) != len(other.Layers) {
		return false
	}
	for i := range sh.Lights {
		if sh.Lights[i] != other.Lights[i] {
			return false
		}
	}
	for i := range sh.Layers {
		if sh.Layers[i] != other.Layers[i] {
			return false
		}
	}
	return true
}

// ComputeFingerprint derives the fingerprint of s for the traversal mode
// without consulting or updating the state's cache.
func ComputeFingerprint(s *State, mode Mode) Fingerprint {
	return s.Shape(mode).Fingerprint()
}

func lightShapes(lights []Light) []LightShape {
	if len(lights) == 0 {
		return nil
	}
	shapes := make([]LightShape, len(lights))
	for i, l := range lights {
		shapes[i] = LightShape{Kind: l.Kind, Diffuse: l.Diffuse, Specular: l.Specular}
	}
	return shapes
}

func layerShapes(layers []TextureLayer) []LayerShape {
	if len(layers) == 0 {
		return nil
	}
	shapes := make([]LayerShape, len(layers))
	for i, t := range layers {
		shapes[i] = LayerShape{Source: t.Source, Target: t.Target, Blend: t.Blend, HasMatrix: t.Matrix != nil}
	}
	return shapes
}
