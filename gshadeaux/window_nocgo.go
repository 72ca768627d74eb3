//go:build tinygo || !cgo

package gshadeaux

import "errors"

// Window stands in for a GLFW window on builds without cgo.
type Window struct{}

// StartWindow always fails without cgo.
func StartWindow(width, height int, title string) (*Window, func(), error) {
	return nil, nil, errors.New("require cgo for windowed rendering")
}
