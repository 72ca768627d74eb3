//go:build !tinygo && cgo

package glprog

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/glgl/v4.1-core/glgl"
)

// GLDevice is a [Device] backed by the current OpenGL context.
type GLDevice struct {
	progs map[Handle]glgl.Program
	vao   uint32
}

// NewGLDevice returns a device issuing calls to the OpenGL context current on
// the calling thread. gl.Init must have been called. All calls must be made
// from that thread.
func NewGLDevice() (Device, error) {
	d := &GLDevice{progs: make(map[Handle]glgl.Program)}
	// Core profiles require a bound vertex array object to feed attributes.
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	err := glgl.Err()
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *GLDevice) CompileProgram(vertex, fragment []byte) (Handle, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   string(vertex) + "\x00",
		Fragment: string(fragment) + "\x00",
	})
	if err != nil {
		return 0, &StageError{Stage: stageFromLog(err.Error()), Log: err.Error()}
	}
	h := Handle(prog.ID())
	d.progs[h] = prog
	return h, nil
}

func (d *GLDevice) DeleteProgram(h Handle) {
	prog, ok := d.progs[h]
	if !ok {
		return
	}
	prog.Delete()
	delete(d.progs, h)
}

func (d *GLDevice) UseProgram(h Handle) {
	gl.UseProgram(uint32(h))
}

func (d *GLDevice) UniformLocation(h Handle, name string) int32 {
	prog, ok := d.progs[h]
	if !ok {
		return -1
	}
	loc, err := prog.UniformLocation(name + "\x00")
	if err != nil {
		return -1
	}
	return loc
}

func (d *GLDevice) AttribLocation(h Handle, name string) int32 {
	prog, ok := d.progs[h]
	if !ok {
		return -1
	}
	loc, err := prog.AttribLocation(name + "\x00")
	if err != nil {
		return -1
	}
	return int32(loc)
}

func (d *GLDevice) Uniform1i(loc int32, v int32)         { gl.Uniform1i(loc, v) }
func (d *GLDevice) Uniform1f(loc int32, v float32)       { gl.Uniform1f(loc, v) }
func (d *GLDevice) Uniform3f(loc int32, x, y, z float32) { gl.Uniform3f(loc, x, y, z) }

func (d *GLDevice) UniformMatrix3(loc int32, m *[9]float32) {
	gl.UniformMatrix3fv(loc, 1, false, &m[0])
}

func (d *GLDevice) UniformMatrix4(loc int32, m *[16]float32) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *GLDevice) BindAttribute(loc int32, buf Buffer) {
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.ID)
	gl.EnableVertexAttribArray(uint32(loc))
	gl.VertexAttribPointer(uint32(loc), int32(buf.Components), gl.FLOAT, false, 0, gl.PtrOffset(0))
}

func (d *GLDevice) BindTexture(unit int, loc int32, tex Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.Uniform1i(loc, int32(unit))
}

// Err returns the pending OpenGL error, if any.
func (d *GLDevice) Err() error { return glgl.Err() }
