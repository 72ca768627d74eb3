// Package glprog implements linked shader programs with their resolved uniform
// and attribute slots, plus the GPU device abstraction they are built on.
package glprog

import (
	"strconv"
	"strings"
)

// Handle is a device program name. Zero is never a valid program.
type Handle uint32

// Texture is a device texture name.
type Texture uint32

// Buffer is a device vertex buffer holding tightly packed float32 components.
type Buffer struct {
	ID         uint32
	Components int
}

// Device is the GPU layer programs are compiled on and fed through.
// Locations are -1 when the name is absent or inactive; every setter is a
// no-op for location -1.
type Device interface {
	// CompileProgram compiles and links both stages. Failures should be
	// reported as *[StageError] when the stage is known.
	CompileProgram(vertex, fragment []byte) (Handle, error)
	DeleteProgram(Handle)
	// UseProgram makes the program current. Zero unbinds.
	UseProgram(Handle)
	UniformLocation(h Handle, name string) int32
	AttribLocation(h Handle, name string) int32
	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform3f(loc int32, x, y, z float32)
	UniformMatrix3(loc int32, m *[9]float32)
	UniformMatrix4(loc int32, m *[16]float32)
	BindAttribute(loc int32, buf Buffer)
	BindTexture(unit int, loc int32, tex Texture)
}

// Stage is the pipeline step a compilation failed in.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageVertex
	StageFragment
	StageLink
)

func (s Stage) String() string {
	switch s {
	case StageUnknown:
		return "unknown"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageLink:
		return "link"
	}
	return "Stage(" + strconv.Itoa(int(s)) + ")"
}

// StageError is a device compilation failure with the driver info log.
type StageError struct {
	Stage Stage
	Log   string
}

func (e *StageError) Error() string {
	return e.Stage.String() + " stage: " + e.Log
}

// stageFromLog guesses the failing stage from a driver message that does not
// report it structurally.
func stageFromLog(msg string) Stage {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "vertex"):
		return StageVertex
	case strings.Contains(msg, "fragment"):
		return StageFragment
	case strings.Contains(msg, "link"):
		return StageLink
	}
	return StageUnknown
}
