// Command sampledemo renders a particle fountain with any registered
// backend.
//
//	sampledemo -api vulkan -particles 20000 -sort
//	sampledemo -offscreen -frames 120 -v
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend"
	"github.com/gogpu/samplelib/rhi"
	"github.com/gogpu/samplelib/scene"
	"github.com/gogpu/samplelib/window"

	_ "github.com/gogpu/samplelib/backend/d3d11"
	_ "github.com/gogpu/samplelib/backend/d3d12"
	_ "github.com/gogpu/samplelib/backend/gl"
	_ "github.com/gogpu/samplelib/backend/metal"
	_ "github.com/gogpu/samplelib/backend/null"
	_ "github.com/gogpu/samplelib/backend/vulkan/vkdriver"
	_ "github.com/gogpu/samplelib/window/sdlwindow"
)

// SDL and the GL backends need the main thread.
func init() { runtime.LockOSThread() }

type options struct {
	api       string
	width     int
	height    int
	offscreen bool
	debug     bool
	frames    uint64
	model     string
	particles int
	gpuSim    bool
	sort      bool
	verbose   bool
}

func main() {
	var o options
	flag.StringVar(&o.api, "api", "", "graphics API ("+apiList()+"); empty picks the best available")
	flag.IntVar(&o.width, "width", 1280, "window width")
	flag.IntVar(&o.height, "height", 720, "window height")
	flag.BoolVar(&o.offscreen, "offscreen", false, "render into an offscreen target")
	flag.BoolVar(&o.debug, "debug", false, "enable the API debug layer")
	flag.Uint64Var(&o.frames, "frames", 0, "stop after this many frames (0 runs until closed)")
	flag.StringVar(&o.model, "model", "immediate", "command recording model: immediate or deferred")
	flag.IntVar(&o.particles, "particles", 10000, "number of particles")
	flag.BoolVar(&o.gpuSim, "gpusim", false, "draw particles from a storage buffer with an indirect draw")
	flag.BoolVar(&o.sort, "sort", false, "sort particles back to front")
	flag.BoolVar(&o.verbose, "v", false, "log at debug level")
	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("sampledemo: %v", err)
	}
}

func run(o options) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	samplelib.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	model, err := parseModel(o.model)
	if err != nil {
		return err
	}
	ctx, api, err := newContext(o.api)
	if err != nil {
		return err
	}

	win, err := openWindow(o, api)
	if err != nil {
		return err
	}
	defer win.Close()
	defer ctx.Destroy()

	demo := newFountain(o.particles, o.gpuSim, o.sort, model == rhi.Deferred)
	s, err := scene.New(ctx, win, demo.hooks(),
		scene.WithModel(model),
		scene.WithMaxFrames(o.frames),
		scene.WithDebug(o.debug),
		scene.WithClearColor(gputypes.Color{R: 0.02, G: 0.02, B: 0.05, A: 1}),
	)
	if err != nil {
		return err
	}
	defer demo.close()
	if ew, ok := win.(gpucontext.EventSource); ok {
		ew.OnKeyPress(func(k gpucontext.Key, _ gpucontext.Modifiers) {
			if k == gpucontext.KeyEscape {
				s.Quit()
			}
		})
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = s.Run(runCtx)
	st := s.Stats()
	samplelib.Logger().Info("done", "frames", st.Frames, "skipped", st.Skipped, "resizes", st.Resizes, "fps", fmt.Sprintf("%.1f", st.FPS))
	return errors.Join(err, s.Close())
}

func newContext(name string) (samplelib.APIContext, samplelib.GraphicsAPI, error) {
	if name == "" {
		ctx, err := backend.Default()
		if err != nil {
			return nil, 0, err
		}
		return ctx, ctx.API(), nil
	}
	api, err := samplelib.ParseGraphicsAPI(name)
	if err != nil {
		return nil, 0, err
	}
	ctx, err := backend.New(api)
	return ctx, api, err
}

func openWindow(o options, api samplelib.GraphicsAPI) (window.Window, error) {
	opts := window.Options{
		Title:     "sampledemo (" + api.String() + ")",
		Width:     o.width,
		Height:    o.height,
		API:       api,
		Resizable: true,
	}
	if o.offscreen || api == samplelib.APINull {
		return window.OpenByName("offscreen", opts)
	}
	return window.Open(opts)
}

func parseModel(s string) (rhi.Kind, error) {
	switch strings.ToLower(s) {
	case "immediate":
		return rhi.Immediate, nil
	case "deferred":
		return rhi.Deferred, nil
	}
	return 0, fmt.Errorf("unknown recording model %q", s)
}

func apiList() string {
	var names []string
	for _, a := range backend.Available() {
		names = append(names, a.String())
	}
	return strings.Join(names, ", ")
}
