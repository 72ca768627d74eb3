package glprog

import (
	"fmt"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
)

// CompileError is returned by [Link] when the device rejects a composed
// program. It keeps both stages so the failure can be diagnosed offline.
type CompileError struct {
	Stage       Stage
	Fingerprint gshade.Fingerprint
	Vertex      []byte
	Fragment    []byte
	Err         error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile program %q (%s): %v", e.Fingerprint, e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Annotated returns the error followed by both stages with line numbers.
func (e *CompileError) Annotated() string {
	b := make([]byte, 0, 64+len(e.Vertex)+len(e.Fragment)+16*32)
	b = append(b, e.Error()...)
	b = append(b, "\n--- vertex ---\n"...)
	b = glbuild.AppendAnnotated(b, e.Vertex)
	b = append(b, "--- fragment ---\n"...)
	b = glbuild.AppendAnnotated(b, e.Fragment)
	return string(b)
}
