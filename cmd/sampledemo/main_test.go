package main

import (
	"math"
	"testing"

	"github.com/gogpu/samplelib/batch"
	"github.com/gogpu/samplelib/rhi"
	"golang.org/x/image/math/f32"
)

func TestRunHeadless(t *testing.T) {
	for _, o := range []options{
		{api: "null", width: 64, height: 48, frames: 5, model: "immediate", particles: 50, sort: true},
		{api: "null", width: 64, height: 48, frames: 5, model: "deferred", particles: 50},
		{api: "null", width: 64, height: 48, frames: 5, model: "immediate", particles: 5000, gpuSim: true, sort: true},
	} {
		if err := run(o); err != nil {
			t.Errorf("run(%+v) error = %v", o, err)
		}
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	if err := run(options{api: "glide", model: "immediate"}); err == nil {
		t.Error("run(unknown api) error = nil")
	}
	if err := run(options{api: "null", model: "eventually"}); err == nil {
		t.Error("run(unknown model) error = nil")
	}
}

func TestParseModel(t *testing.T) {
	for in, want := range map[string]rhi.Kind{"immediate": rhi.Immediate, "Deferred": rhi.Deferred} {
		if got, err := parseModel(in); err != nil || got != want {
			t.Errorf("parseModel(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
}

func TestLookAt(t *testing.T) {
	v := batch.ViewFromMatrix(lookAt(f32.Vec3{0, 0, 10}, f32.Vec3{}, f32.Vec3{0, 1, 0}))
	want := batch.View{
		Position: f32.Vec3{0, 0, 10},
		Right:    f32.Vec3{1, 0, 0},
		Up:       f32.Vec3{0, 1, 0},
		Forward:  f32.Vec3{0, 0, -1},
	}
	for i, pair := range [][2]f32.Vec3{
		{v.Position, want.Position},
		{v.Right, want.Right},
		{v.Up, want.Up},
		{v.Forward, want.Forward},
	} {
		for k := range 3 {
			if math.Abs(float64(pair[0][k]-pair[1][k])) > 1e-5 {
				t.Errorf("view vector %d = %v, want %v", i, pair[0], pair[1])
				break
			}
		}
	}
}

func TestFountainStep(t *testing.T) {
	f := newFountain(10, false, false, false)
	f.age[0] = 0
	f.particles[0].Position = f32.Vec3{}
	f.velocity[0] = f32.Vec3{0, 10, 0}
	f.step(particleLife / 30)
	if p := f.particles[0].Position; p[1] <= 0 {
		t.Errorf("particle did not rise: %v", p)
	}
	f.age[1] = particleLife
	f.step(1)
	if f.age[1] != 0 {
		t.Errorf("expired particle age = %v, want respawned", f.age[1])
	}
}
