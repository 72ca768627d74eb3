package glprog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
)

// Program is a linked device program together with the slot table of the
// uniforms and attributes its source declares. Locations are resolved once at
// link time; setters for undeclared or inactive uniforms are silent no-ops.
type Program struct {
	dev      Device
	handle   Handle
	fp       gshade.Fingerprint
	uniforms []glbuild.UniformRef
	slots    [glbuild.NumUniforms][]int32
	attribs  [glbuild.NumAttributes]int32
	lastUsed uint64
}

// Link compiles src on dev and resolves the locations of every declared
// uniform and attribute. Compilation failures are returned as *[CompileError].
func Link(dev Device, fp gshade.Fingerprint, src glbuild.Source) (*Program, error) {
	if dev == nil {
		return nil, errors.New("nil device")
	}
	h, err := dev.CompileProgram(src.Vertex, src.Fragment)
	if err != nil {
		cerr := &CompileError{
			Stage:       StageUnknown,
			Fingerprint: fp,
			Vertex:      src.Vertex,
			Fragment:    src.Fragment,
			Err:         err,
		}
		var serr *StageError
		if errors.As(err, &serr) {
			cerr.Stage = serr.Stage
		}
		return nil, cerr
	} else if h == 0 {
		return nil, fmt.Errorf("device returned zero program handle for %q", fp)
	}
	p := &Program{
		dev:      dev,
		handle:   h,
		fp:       fp,
		uniforms: slices.Clone(src.Uniforms),
	}
	var name []byte
	for _, ref := range src.Uniforms {
		slot := p.slots[ref.Uniform]
		for len(slot) <= ref.Index {
			slot = append(slot, -1)
		}
		name = ref.AppendName(name[:0])
		slot[ref.Index] = dev.UniformLocation(h, string(name))
		p.slots[ref.Uniform] = slot
	}
	for i := range p.attribs {
		p.attribs[i] = -1
	}
	for _, a := range src.Attributes {
		p.attribs[a] = dev.AttribLocation(h, a.String())
	}
	return p, nil
}

// Handle returns the device program name. It is zero after [Program.Destroy].
func (p *Program) Handle() Handle { return p.handle }

// Fingerprint returns the fingerprint the program was composed for.
func (p *Program) Fingerprint() gshade.Fingerprint { return p.fp }

// Uniforms returns the uniforms declared by the program's source.
func (p *Program) Uniforms() []glbuild.UniformRef { return slices.Clone(p.uniforms) }

// LastUsed returns the logical time the program was last returned by its cache.
func (p *Program) LastUsed() uint64 { return p.lastUsed }

// Touch sets the last used logical time.
func (p *Program) Touch(tick uint64) { p.lastUsed = tick }

// Destroyed reports whether the device program was deleted.
func (p *Program) Destroyed() bool { return p.handle == 0 }

// Destroy deletes the device program. Calling Destroy more than once is a no-op.
func (p *Program) Destroy() {
	if p.handle == 0 {
		return
	}
	p.dev.DeleteProgram(p.handle)
	p.handle = 0
}

// Abandon marks the program destroyed without deleting it on the device, for
// programs whose context no longer exists.
func (p *Program) Abandon() { p.handle = 0 }

// Bind makes the program current on its device.
func (p *Program) Bind() {
	if p.handle == 0 {
		panic("bind of destroyed program " + string(p.fp))
	}
	p.dev.UseProgram(p.handle)
}

// Unbind clears the device's current program.
func (p *Program) Unbind() { p.dev.UseProgram(0) }

// Location returns the location of uniform u with index idx or -1 if the
// program does not declare it or the driver reports it inactive.
func (p *Program) Location(u glbuild.Uniform, idx int) int32 {
	if u >= glbuild.NumUniforms {
		return -1
	}
	if !u.Indexed() {
		idx = 0
	}
	slot := p.slots[u]
	if idx < 0 || idx >= len(slot) {
		return -1
	}
	return slot[idx]
}

// Has reports whether the uniform has a valid location.
func (p *Program) Has(u glbuild.Uniform, idx int) bool { return p.Location(u, idx) >= 0 }

// AttribLocation returns the location of attribute a or -1 if unused.
func (p *Program) AttribLocation(a glbuild.Attribute) int32 {
	if a >= glbuild.NumAttributes {
		return -1
	}
	return p.attribs[a]
}

// SetInt sets an int or sampler uniform. Like all setters it expects the program to be bound.
func (p *Program) SetInt(u glbuild.Uniform, idx int, v int32) {
	if loc := p.Location(u, idx); loc >= 0 {
		p.dev.Uniform1i(loc, v)
	}
}

func (p *Program) SetFloat(u glbuild.Uniform, idx int, v float32) {
	if loc := p.Location(u, idx); loc >= 0 {
		p.dev.Uniform1f(loc, v)
	}
}

func (p *Program) SetVec3(u glbuild.Uniform, idx int, v ms3.Vec) {
	if loc := p.Location(u, idx); loc >= 0 {
		p.dev.Uniform3f(loc, v.X, v.Y, v.Z)
	}
}

func (p *Program) SetMat3(u glbuild.Uniform, idx int, m [9]float32) {
	if loc := p.Location(u, idx); loc >= 0 {
		p.dev.UniformMatrix3(loc, &m)
	}
}

func (p *Program) SetMat4(u glbuild.Uniform, idx int, m gshade.Mat4) {
	if loc := p.Location(u, idx); loc >= 0 {
		arr := [16]float32(m)
		p.dev.UniformMatrix4(loc, &arr)
	}
}

// BindAttribute feeds buf to attribute a. It reports false when the program
// does not use the attribute.
func (p *Program) BindAttribute(a glbuild.Attribute, buf Buffer) bool {
	loc := p.AttribLocation(a)
	if loc < 0 {
		return false
	}
	p.dev.BindAttribute(loc, buf)
	return true
}

// BindTexture binds tex to texture unit and points sampler layer at it. It
// reports false when the program does not sample layer.
func (p *Program) BindTexture(unit, layer int, tex Texture) bool {
	loc := p.Location(glbuild.UniformSampler, layer)
	if loc < 0 {
		return false
	}
	p.dev.BindTexture(unit, loc, tex)
	return true
}
