package glprog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/gshade/glbuild"
)

// Headless is a [Device] that runs without a GPU. It parses the declarations
// of the sources it compiles so that only declared names get locations,
// records every value set and can be told to fail compilations. Misuse a
// driver would flag, such as setting a uniform with no program bound, is
// reported by [Headless.Err].
type Headless struct {
	next     Handle
	bound    Handle
	programs map[Handle]*headlessProgram
	compiles int
	deletes  int
	failNext *StageError
	err      error
	trace    io.Writer
	scratch  []byte
}

type headlessProgram struct {
	uniforms map[string]int32
	attribs  map[string]int32
	values   map[int32][]float32
	buffers  map[int32]Buffer
	textures map[int32]Texture
}

var _ Device = (*Headless)(nil)

// NewHeadless returns a ready to use headless device.
func NewHeadless() *Headless {
	return &Headless{programs: make(map[Handle]*headlessProgram)}
}

// SetTrace makes the device write one line per call to w. nil disables tracing.
func (h *Headless) SetTrace(w io.Writer) { h.trace = w }

// FailNextCompile makes the next CompileProgram call fail at stage with log msg.
func (h *Headless) FailNextCompile(stage Stage, msg string) {
	h.failNext = &StageError{Stage: stage, Log: msg}
}

// Err returns and clears the first misuse recorded since the last call.
func (h *Headless) Err() error {
	err := h.err
	h.err = nil
	return err
}

// Live returns the number of programs compiled and not yet deleted.
func (h *Headless) Live() int { return len(h.programs) }

// Compiles returns the number of successful compilations.
func (h *Headless) Compiles() int { return h.compiles }

// Deletes returns the number of deleted programs.
func (h *Headless) Deletes() int { return h.deletes }

// Bound returns the current program or zero.
func (h *Headless) Bound() Handle { return h.bound }

// Value returns the last value set for the named uniform of the bound program.
func (h *Headless) Value(name string) ([]float32, bool) {
	p := h.programs[h.bound]
	if p == nil {
		return nil, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := p.values[loc]
	return v, ok
}

// Attribute returns the buffer bound to the named attribute of the bound program.
func (h *Headless) Attribute(name string) (Buffer, bool) {
	p := h.programs[h.bound]
	if p == nil {
		return Buffer{}, false
	}
	loc, ok := p.attribs[name]
	if !ok {
		return Buffer{}, false
	}
	buf, ok := p.buffers[loc]
	return buf, ok
}

// TextureOf returns the texture the named sampler of the bound program reads.
func (h *Headless) TextureOf(sampler string) (Texture, bool) {
	p := h.programs[h.bound]
	if p == nil {
		return 0, false
	}
	loc, ok := p.uniforms[sampler]
	if !ok {
		return 0, false
	}
	tex, ok := p.textures[loc]
	return tex, ok
}

func (h *Headless) CompileProgram(vertex, fragment []byte) (Handle, error) {
	h.tracef("compile %d+%d bytes", len(vertex), len(fragment))
	if h.failNext != nil {
		err := h.failNext
		h.failNext = nil
		return 0, err
	}
	if !bytes.HasPrefix(vertex, []byte("#version ")) || !bytes.HasPrefix(fragment, []byte("#version ")) {
		return 0, &StageError{Stage: StageVertex, Log: "missing #version directive"}
	} else if !bytes.Contains(vertex, []byte("void main()")) {
		return 0, &StageError{Stage: StageVertex, Log: "no main function"}
	} else if !bytes.Contains(fragment, []byte("void main()")) {
		return 0, &StageError{Stage: StageFragment, Log: "no main function"}
	}
	p := &headlessProgram{
		uniforms: make(map[string]int32),
		attribs:  make(map[string]int32),
		values:   make(map[int32][]float32),
		buffers:  make(map[int32]Buffer),
		textures: make(map[int32]Texture),
	}
	var nextUniform, nextAttrib int32
	for i, src := range [2][]byte{vertex, fragment} {
		isVertex := i == 0
		s := bufio.NewScanner(bytes.NewReader(src))
		for s.Scan() {
			fields := bytes.Fields(s.Bytes())
			if len(fields) != 3 || !bytes.HasSuffix(fields[2], []byte(";")) {
				continue
			}
			name := string(bytes.TrimSuffix(fields[2], []byte(";")))
			switch {
			case string(fields[0]) == "uniform":
				if _, dup := p.uniforms[name]; !dup {
					p.uniforms[name] = nextUniform
					nextUniform++
				}
			case string(fields[0]) == "in" && isVertex:
				p.attribs[name] = nextAttrib
				nextAttrib++
			}
		}
	}
	h.next++
	h.programs[h.next] = p
	h.compiles++
	return h.next, nil
}

func (h *Headless) DeleteProgram(handle Handle) {
	h.tracef("delete %d", handle)
	if _, ok := h.programs[handle]; !ok {
		h.misuse(fmt.Errorf("delete of unknown program %d", handle))
		return
	}
	delete(h.programs, handle)
	h.deletes++
	if h.bound == handle {
		h.bound = 0
	}
}

func (h *Headless) UseProgram(handle Handle) {
	h.tracef("use %d", handle)
	if _, ok := h.programs[handle]; handle != 0 && !ok {
		h.misuse(fmt.Errorf("use of unknown program %d", handle))
		return
	}
	h.bound = handle
}

func (h *Headless) UniformLocation(handle Handle, name string) int32 {
	p := h.programs[handle]
	if p == nil {
		h.misuse(fmt.Errorf("uniform location query on unknown program %d", handle))
		return -1
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return -1
	}
	return loc
}

func (h *Headless) AttribLocation(handle Handle, name string) int32 {
	p := h.programs[handle]
	if p == nil {
		h.misuse(fmt.Errorf("attribute location query on unknown program %d", handle))
		return -1
	}
	loc, ok := p.attribs[name]
	if !ok {
		return -1
	}
	return loc
}

func (h *Headless) Uniform1i(loc int32, v int32) { h.set("uniform1i", loc, float32(v)) }
func (h *Headless) Uniform1f(loc int32, v float32) { h.set("uniform1f", loc, v) }
func (h *Headless) Uniform3f(loc int32, x, y, z float32) {
	h.set("uniform3f", loc, x, y, z)
}
func (h *Headless) UniformMatrix3(loc int32, m *[9]float32) {
	h.set("uniformMatrix3", loc, m[:]...)
}
func (h *Headless) UniformMatrix4(loc int32, m *[16]float32) {
	h.set("uniformMatrix4", loc, m[:]...)
}

func (h *Headless) BindAttribute(loc int32, buf Buffer) {
	h.tracef("attribute %d buffer %d size %d", loc, buf.ID, buf.Components)
	p := h.current()
	if p == nil {
		return
	} else if buf.Components < 1 || buf.Components > 4 {
		h.misuse(fmt.Errorf("attribute %d: invalid component count %d", loc, buf.Components))
		return
	}
	p.buffers[loc] = buf
}

func (h *Headless) BindTexture(unit int, loc int32, tex Texture) {
	h.tracef("texture unit %d loc %d texture %d", unit, loc, tex)
	p := h.current()
	if p == nil {
		return
	} else if unit < 0 {
		h.misuse(fmt.Errorf("negative texture unit %d", unit))
		return
	}
	p.textures[loc] = tex
	p.values[loc] = []float32{float32(unit)}
}

func (h *Headless) set(call string, loc int32, v ...float32) {
	if h.trace != nil {
		h.scratch = append(h.scratch[:0], call...)
		h.scratch = append(h.scratch, ' ')
		h.scratch = strconv.AppendInt(h.scratch, int64(loc), 10)
		h.scratch = append(h.scratch, ' ')
		h.scratch = glbuild.AppendFloats(h.scratch, ',', '-', '.', v...)
		h.scratch = append(h.scratch, '\n')
		h.trace.Write(h.scratch)
	}
	p := h.current()
	if p == nil {
		return
	}
	if loc < 0 {
		return // Same as GL: location -1 is silently ignored.
	}
	p.values[loc] = append(p.values[loc][:0], v...)
}

func (h *Headless) current() *headlessProgram {
	p := h.programs[h.bound]
	if p == nil {
		h.misuse(errors.New("no program bound"))
	}
	return p
}

func (h *Headless) misuse(err error) {
	if h.err == nil {
		h.err = err
	}
}

func (h *Headless) tracef(format string, args ...any) {
	if h.trace != nil {
		fmt.Fprintf(h.trace, format+"\n", args...)
	}
}
