// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package batch

import (
	"math"

	"golang.org/x/image/math/f32"
)

// View is the camera particles are billboarded against. Axes are unit
// vectors in world space.
type View struct {
	Position f32.Vec3
	Right    f32.Vec3
	Up       f32.Vec3
	Forward  f32.Vec3
}

// ViewFromMatrix extracts the camera from a rigid world-to-view matrix in
// row-major order with a right-handed camera looking down -Z.
func ViewFromMatrix(m f32.Mat4) View {
	v := View{
		Right:   f32.Vec3{m[0], m[1], m[2]},
		Up:      f32.Vec3{m[4], m[5], m[6]},
		Forward: f32.Vec3{-m[8], -m[9], -m[10]},
	}
	// Position is -R^T * t.
	for i := range 3 {
		v.Position[i] = -(m[i]*m[3] + m[4+i]*m[7] + m[8+i]*m[11])
	}
	return v
}

// Depth returns the distance of p in front of the camera.
func (v View) Depth(p f32.Vec3) float32 {
	return dot(sub(p, v.Position), v.Forward)
}

// Axes returns the right and up vectors of a billboard rotated by angle
// radians around the view direction.
func (v View) Axes(angle float32) (right, up f32.Vec3) {
	if angle == 0 {
		return v.Right, v.Up
	}
	s, c := math.Sincos(float64(angle))
	sin, cos := float32(s), float32(c)
	right = add(scale(v.Right, cos), scale(v.Up, sin))
	up = add(scale(v.Right, -sin), scale(v.Up, cos))
	return right, up
}

func add(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func dot(a, b f32.Vec3) float32  { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func scale(a f32.Vec3, s float32) f32.Vec3 { return f32.Vec3{a[0] * s, a[1] * s, a[2] * s} }
