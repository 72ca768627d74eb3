//go:build tinygo || !cgo

package glprog

import "errors"

var errNoCGO = errors.New("OpenGL device requires CGo and is not supported on TinyGo")

// NewGLDevice returns an error on builds without CGo. Use [NewHeadless].
func NewGLDevice() (Device, error) {
	return nil, errNoCGO
}
