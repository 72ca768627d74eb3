package gshade

import (
	"slices"

	"github.com/soypat/geometry/ms3"
)

// State is the shading-relevant render state of one rendering context. It is
// mutated only through its setters, which never fail: out of range values are
// replaced by documented defaults. Setters that change the structural shape
// invalidate the cached fingerprints and call the hooks registered with
// [State.OnInvalidate].
//
// State is not safe for concurrent use; a single rendering thread owns it.
type State struct {
	contextID uint64
	flags     Flags
	layers    []TextureLayer
	lights    []Light
	ambient   ms3.Vec
	material  Material
	fog       Fog
	xf        Transforms
	pickIndex int

	fp      [numModes]Fingerprint
	fpValid [numModes]bool
	hooks   []func()
	stack   []snapshot
}

// snapshot is a saved copy of a State's values. Setters replace slices instead
// of writing into them, so a snapshot may share slices with the live state.
type snapshot struct {
	contextID uint64
	flags     Flags
	layers    []TextureLayer
	lights    []Light
	ambient   ms3.Vec
	material  Material
	fog       Fog
	xf        Transforms
	pickIndex int
}

// NewState returns a State with no context, default flags, no lights or
// texture layers, [DefaultMaterial], disabled fog and identity transforms.
func NewState() *State {
	s := &State{}
	s.reset()
	return s
}

func (s *State) reset() {
	s.contextID = 0
	s.flags = DefaultFlags
	s.layers = nil
	s.lights = nil
	s.ambient = ms3.Vec{}
	s.material = DefaultMaterial()
	s.fog = Fog{}.sanitized()
	s.xf = DefaultTransforms()
	s.pickIndex = 0
	s.stack = s.stack[:0]
}

// Reset clears every category to its default, drops saved snapshots and
// invalidates everything. Invalidation hooks remain registered.
func (s *State) Reset() {
	s.reset()
	s.invalidate()
}

// OnInvalidate registers fn to be called every time a structural change
// invalidates the fingerprint.
func (s *State) OnInvalidate(fn func()) {
	if fn == nil {
		panic("nil invalidation hook")
	}
	s.hooks = append(s.hooks, fn)
}

func (s *State) invalidate() {
	s.fpValid = [numModes]bool{}
	for _, fn := range s.hooks {
		fn()
	}
}

// Fingerprint returns the fingerprint of the current state for the traversal
// mode. The result is cached until the next structural change.
func (s *State) Fingerprint(mode Mode) Fingerprint {
	if mode >= numModes {
		panic("invalid traversal mode " + mode.String())
	}
	if !s.fpValid[mode] {
		s.fp[mode] = s.Shape(mode).Fingerprint()
		s.fpValid[mode] = true
	}
	return s.fp[mode]
}

// Shape returns the structural projection of the state for the traversal mode.
func (s *State) Shape(mode Mode) Shape {
	if mode == ModePick {
		return pickShape
	}
	sh := Shape{Mode: mode, Fog: s.fog.Mode}
	if s.flags.Lighting() {
		sh.Lights = lightShapes(s.lights)
	}
	if s.flags.Texturing() {
		sh.Layers = layerShapes(s.layers)
	}
	return sh
}

// SetContext sets the identity of the rendering context. Zero means no context.
// A context switch always invalidates the fingerprint.
func (s *State) SetContext(id uint64) {
	s.contextID = id
	s.invalidate()
}

// SetFlags sets the renderer flags.
func (s *State) SetFlags(f Flags) {
	if f == s.flags {
		return
	}
	s.flags = f
	s.invalidate()
}

// SetTextureLayers replaces the texture layer stack. The slice is copied.
func (s *State) SetTextureLayers(layers []TextureLayer) {
	old := layerShapes(s.layers)
	s.layers = make([]TextureLayer, len(layers))
	for i, tl := range layers {
		s.layers[i] = tl.sanitized()
	}
	if !slices.Equal(old, layerShapes(s.layers)) && s.flags.Texturing() {
		s.invalidate()
	}
}

// SetLights replaces the light list. The slice is copied.
func (s *State) SetLights(lights []Light) {
	old := lightShapes(s.lights)
	s.lights = make([]Light, len(lights))
	for i, l := range lights {
		s.lights[i] = l.sanitized()
	}
	if !slices.Equal(old, lightShapes(s.lights)) && s.flags.Lighting() {
		s.invalidate()
	}
}

// SetAmbient sets the ambient light color applied when lighting is active.
func (s *State) SetAmbient(color ms3.Vec) { s.ambient = color }

// SetMaterial sets the surface material.
func (s *State) SetMaterial(m Material) { s.material = m.sanitized() }

// SetFog sets the fog parameters. Only a change of fog mode is structural.
func (s *State) SetFog(f Fog) {
	f = f.sanitized()
	structural := f.Mode != s.fog.Mode
	s.fog = f
	if structural {
		s.invalidate()
	}
}

// SetTransforms replaces all three transform matrices.
func (s *State) SetTransforms(t Transforms) { s.xf = t }

// SetModel sets the model matrix.
func (s *State) SetModel(m Mat4) { s.xf.Model = m }

// SetView sets the view matrix.
func (s *State) SetView(m Mat4) { s.xf.View = m }

// SetProjection sets the projection matrix.
func (s *State) SetProjection(m Mat4) { s.xf.Projection = m }

// SetPickIndex sets the object index written by picking shaders.
func (s *State) SetPickIndex(idx int) { s.pickIndex = idx }

// Push saves the current values so a later [State.Pop] can restore them.
// Traversals call Push before visiting a node's children and Pop after.
func (s *State) Push() {
	s.stack = append(s.stack, s.save())
}

// Pop restores the values saved by the matching [State.Push]. It panics if
// there is no saved snapshot.
func (s *State) Pop() {
	if len(s.stack) == 0 {
		panic("gshade: Pop without matching Push")
	}
	before := s.Shape(ModeRender)
	ctxBefore := s.contextID
	snap := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.restore(snap)
	if ctxBefore != s.contextID || !before.equal(s.Shape(ModeRender)) {
		s.invalidate()
	}
}

// Depth returns the number of saved snapshots.
func (s *State) Depth() int { return len(s.stack) }

func (s *State) save() snapshot {
	return snapshot{
		contextID: s.contextID,
		flags:     s.flags,
		layers:    s.layers,
		lights:    s.lights,
		ambient:   s.ambient,
		material:  s.material,
		fog:       s.fog,
		xf:        s.xf,
		pickIndex: s.pickIndex,
	}
}

func (s *State) restore(snap snapshot) {
	s.contextID = snap.contextID
	s.flags = snap.flags
	s.layers = snap.layers
	s.lights = snap.lights
	s.ambient = snap.ambient
	s.material = snap.material
	s.fog = snap.fog
	s.xf = snap.xf
	s.pickIndex = snap.pickIndex
}

// ContextID returns the identity of the current rendering context, zero if none.
func (s *State) ContextID() uint64 { return s.contextID }

// Flags returns the renderer flags.
func (s *State) Flags() Flags { return s.flags }

// Lights returns a copy of the light list.
func (s *State) Lights() []Light { return slices.Clone(s.lights) }

// NumLights returns the length of the light list.
func (s *State) NumLights() int { return len(s.lights) }

// Light returns the i'th light.
func (s *State) Light(i int) Light { return s.lights[i] }

// TextureLayers returns a copy of the texture layer stack.
func (s *State) TextureLayers() []TextureLayer { return slices.Clone(s.layers) }

// NumTextureLayers returns the length of the texture layer stack.
func (s *State) NumTextureLayers() int { return len(s.layers) }

// TextureLayer returns the i'th texture layer.
func (s *State) TextureLayer(i int) TextureLayer { return s.layers[i] }

// Ambient returns the ambient light color.
func (s *State) Ambient() ms3.Vec { return s.ambient }

// Material returns the surface material.
func (s *State) Material() Material { return s.material }

// Fog returns the fog parameters.
func (s *State) Fog() Fog { return s.fog }

// Transforms returns the current transform matrices.
func (s *State) Transforms() Transforms { return s.xf }

// PickIndex returns the object index written by picking shaders.
func (s *State) PickIndex() int { return s.pickIndex }
