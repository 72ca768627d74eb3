package gshade

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Mat4 is a 4x4 matrix stored in column-major order, the layout GL expects
// for uniform upload without transposition.
type Mat4 [16]float32

// IdentityMat4 returns the identity matrix.
func IdentityMat4() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Mat4FromMS3 converts a row-major [ms3.Mat4] into a column-major Mat4.
func Mat4FromMS3(m ms3.Mat4) Mat4 {
	arr := m.Array()
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = arr[r*4+c]
		}
	}
	return out
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 { return m[c*4+r] }

// TranslationMat4 returns a matrix translating by v.
func TranslationMat4(v ms3.Vec) Mat4 {
	m := IdentityMat4()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// ScalingMat4 returns a matrix scaling each axis by the components of v.
func ScalingMat4(v ms3.Vec) Mat4 {
	return Mat4{0: v.X, 5: v.Y, 10: v.Z, 15: 1}
}

// PerspectiveMat4 returns a right-handed perspective projection with a vertical
// field of view fovy in radians.
func PerspectiveMat4(fovy, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovy/2)
	nf := 1 / (near - far)
	return Mat4{
		0:  f / aspect,
		5:  f,
		10: (far + near) * nf,
		11: -1,
		14: 2 * far * near * nf,
	}
}

// LookAtMat4 returns a view matrix for an eye at eye looking towards center.
func LookAtMat4(eye, center, up ms3.Vec) Mat4 {
	f := ms3.Unit(ms3.Sub(center, eye))
	s := ms3.Unit(cross(f, up))
	u := cross(s, f)
	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-ms3.Dot(s, eye), -ms3.Dot(u, eye), ms3.Dot(f, eye), 1,
	}
}

// Mul returns the product m*n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * n[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulPosition transforms the point v (w=1) and returns the xyz result.
func (m Mat4) MulPosition(v ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
}

// NormalMatrix returns the inverse transpose of the upper 3x3 block in
// column-major order. A singular block yields the plain upper 3x3.
func (m Mat4) NormalMatrix() [9]float32 {
	a00, a01, a02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	a10, a11, a12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	a20, a21, a22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)
	// Cofactors.
	c00 := a11*a22 - a12*a21
	c01 := a12*a20 - a10*a22
	c02 := a10*a21 - a11*a20
	c10 := a02*a21 - a01*a22
	c11 := a00*a22 - a02*a20
	c12 := a01*a20 - a00*a21
	c20 := a01*a12 - a02*a11
	c21 := a02*a10 - a00*a12
	c22 := a00*a11 - a01*a10
	det := a00*c00 + a01*c01 + a02*c02
	if math32.Abs(det) < 1e-12 {
		return [9]float32{a00, a10, a20, a01, a11, a21, a02, a12, a22}
	}
	inv := 1 / det
	// inverse(A)^T = cofactor(A)/det, stored column-major.
	return [9]float32{
		c00 * inv, c10 * inv, c20 * inv,
		c01 * inv, c11 * inv, c21 * inv,
		c02 * inv, c12 * inv, c22 * inv,
	}
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}
