// Package gshade tracks the shading-relevant state of a scene traversal and
// derives the structural fingerprints used to select cached shader variants.
//
// The GLSL composition lives in [github.com/soypat/gshade/glbuild], program
// objects in glprog, the variant cache in glcache and the activation state
// machine in glrender.
package gshade

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	// DefaultShininess is used for materials with zero or negative shininess.
	DefaultShininess = 30
	// DefaultSpotCutoff is the cone half-angle in degrees used for spot lights
	// with a cutoff outside (0, 90].
	DefaultSpotCutoff = 45
	// DefaultFogRange is added to the fog start when the fog end is not past it.
	DefaultFogRange = 100
	// DefaultFogDensity is used by exponential fog with zero or negative density.
	DefaultFogDensity = 0.05
)

var (
	one          = ms3.Vec{X: 1, Y: 1, Z: 1}
	defaultAtten = ms3.Vec{X: 1}
	defaultDir   = ms3.Vec{Z: -1}
)

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
