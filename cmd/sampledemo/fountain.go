package main

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/batch"
	"github.com/gogpu/samplelib/internal/halctx"
	"github.com/gogpu/samplelib/rhi"
	"github.com/gogpu/samplelib/scene"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"golang.org/x/image/math/f32"
)

const (
	gravity      = -9.8
	particleLife = 3 * time.Second

	// storageStride is position, velocity and color as vec4s.
	storageStride = 3 * 4 * 4
)

// fountain is a CPU particle fountain drawn through a batch.
type fountain struct {
	batch *batch.Batch

	count  int
	gpuSim bool
	sorted bool
	static bool

	particles []batch.Particle
	velocity  []f32.Vec3
	age       []time.Duration
	rng       *rand.Rand
	orbit     float64
}

func newFountain(count int, gpuSim, sorted, static bool) *fountain {
	f := &fountain{
		count:     max(count, 1),
		gpuSim:    gpuSim,
		sorted:    sorted,
		static:    static,
		rng:       rand.New(rand.NewPCG(1, 2)),
		particles: make([]batch.Particle, max(count, 1)),
		velocity:  make([]f32.Vec3, max(count, 1)),
		age:       make([]time.Duration, max(count, 1)),
	}
	for i := range f.particles {
		f.spawn(i)
		// Spread the first generation over a whole lifetime.
		f.age[i] = time.Duration(f.rng.Int64N(int64(particleLife)))
	}
	return f
}

func (f *fountain) hooks() scene.Hooks {
	return scene.Hooks{
		Setup:   f.setup,
		Update:  f.update,
		Compute: func(cb *rhi.CommandBuffer) error { return f.batch.IssueCompute(cb) },
		Render:  func(cb *rhi.CommandBuffer, _ *rhi.FrameBuffer) error { return f.batch.Issue(cb) },
	}
}

// setup creates the render state and the batch. Deferred command buffers
// are recorded once, so a static fountain prepares its only frame here.
func (f *fountain) setup(s *scene.Scene) error {
	mgr := s.Manager()
	state, err := mgr.CreateRenderState(rhi.RenderStateDesc{
		Shader:    "billboard",
		Pass:      s.RenderPass().Desc,
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		CullMode:  gputypes.CullModeNone,
		FrontFace: gputypes.FrontFaceCCW,
		Blend:     gputypes.BlendStateAlpha(),
	})
	if err != nil {
		return err
	}

	dev, queue := devices(mgr.APIData())
	frames := mgr.APIData().FrameCount
	var policy batch.Policy
	if f.gpuSim {
		storage, err := batch.NewBuffer(dev, "fountain particles", uint64(f.count)*storageStride, gputypes.BufferUsageStorage)
		if err != nil {
			return err
		}
		defer storage.Release()
		if err := storage.Write(queue, 0, f.encodeStorage()); err != nil {
			return err
		}
		g, err := batch.NewGPUSimBatch(dev, queue, state, storage, frames)
		if err != nil {
			return err
		}
		g.SetCount(uint32(f.count))
		if f.sorted {
			g.EnableSort(16)
		}
		policy = g
	} else {
		p, err := batch.NewVertexPolicy(dev, queue, state, frames)
		if err != nil {
			return err
		}
		p.SetParticles(f.particles)
		p.SetSorted(f.sorted)
		policy = p
	}
	f.batch = batch.New(policy, frames)

	if f.static {
		return f.batch.Prepare(f.view())
	}
	return nil
}

func (f *fountain) update(dt time.Duration) error {
	if f.static {
		return nil
	}
	f.orbit += dt.Seconds() * 0.3
	if !f.gpuSim {
		f.step(dt)
	}
	return f.batch.Prepare(f.view())
}

func (f *fountain) close() {
	if f.batch != nil {
		f.batch.Clear()
	}
}

func (f *fountain) step(dt time.Duration) {
	sec := float32(dt.Seconds())
	for i := range f.particles {
		f.age[i] += dt
		if f.age[i] > particleLife {
			f.spawn(i)
			continue
		}
		v := &f.velocity[i]
		v[1] += gravity * sec
		p := &f.particles[i]
		for k := range 3 {
			p.Position[k] += v[k] * sec
		}
		p.Color[3] = 1 - float32(f.age[i])/float32(particleLife)
	}
}

func (f *fountain) spawn(i int) {
	angle := f.rng.Float64() * 2 * math.Pi
	spread := f.rng.Float64() * 1.5
	f.velocity[i] = f32.Vec3{
		float32(math.Cos(angle) * spread),
		8 + f.rng.Float32()*2,
		float32(math.Sin(angle) * spread),
	}
	f.particles[i] = batch.Particle{
		Size:     0.05 + f.rng.Float32()*0.1,
		Rotation: f.rng.Float32() * 2 * math.Pi,
		Color:    f32.Vec4{0.3 + f.rng.Float32()*0.2, 0.6, 1, 1},
	}
	f.age[i] = 0
}

// view orbits the camera around the fountain.
func (f *fountain) view() batch.View {
	eye := f32.Vec3{float32(12 * math.Sin(f.orbit)), 4, float32(12 * math.Cos(f.orbit))}
	return batch.ViewFromMatrix(lookAt(eye, f32.Vec3{0, 3, 0}, f32.Vec3{0, 1, 0}))
}

func (f *fountain) encodeStorage() []byte {
	out := make([]byte, 0, len(f.particles)*storageStride)
	for i, p := range f.particles {
		v := f.velocity[i]
		for _, x := range [...]float32{
			p.Position[0], p.Position[1], p.Position[2], p.Size,
			v[0], v[1], v[2], p.Rotation,
			p.Color[0], p.Color[1], p.Color[2], p.Color[3],
		} {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(x))
		}
	}
	return out
}

// devices returns the HAL device of the context, or a noop device for
// backends that drive their API directly.
func devices(data *samplelib.APIData) (hal.Device, hal.Queue) {
	if n, ok := data.Native.(*halctx.Native); ok && n.Device != nil {
		return n.Device, n.Queue
	}
	samplelib.Logger().Warn("backend exposes no HAL device; particle buffers stay on the CPU", "api", data.API)
	return &noop.Device{}, &noop.Queue{}
}

// lookAt returns a row-major right-handed world-to-view matrix.
func lookAt(eye, target, up f32.Vec3) f32.Mat4 {
	f := normalize(sub(target, eye))
	r := normalize(cross(f, up))
	u := cross(r, f)
	return f32.Mat4{
		r[0], r[1], r[2], -dot(r, eye),
		u[0], u[1], u[2], -dot(u, eye),
		-f[0], -f[1], -f[2], dot(f, eye),
		0, 0, 0, 1,
	}
}

func sub(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func dot(a, b f32.Vec3) float32  { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func normalize(a f32.Vec3) f32.Vec3 {
	l := float32(math.Sqrt(float64(dot(a, a))))
	if l == 0 {
		return a
	}
	return f32.Vec3{a[0] / l, a[1] / l, a[2] / l}
}
