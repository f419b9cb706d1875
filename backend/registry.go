package backend

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/samplelib"
)

// registry holds registered context factories keyed by API name.
var registry = gpucontext.NewRegistry[samplelib.APIContext](
	gpucontext.WithPriority(priorityNames()...),
)

// Register registers a context factory for api.
// This is typically called from init() functions in backend packages.
// If a factory for api is already registered, it is replaced.
func Register(api samplelib.GraphicsAPI, factory Factory) {
	registry.Register(api.String(), factory)
}

// Unregister removes the factory for api.
// This is useful for testing.
func Unregister(api samplelib.GraphicsAPI) {
	registry.Unregister(api.String())
}

// IsRegistered reports whether a factory for api is registered.
func IsRegistered(api samplelib.GraphicsAPI) bool {
	return registry.Has(api.String())
}

// Available returns the registered APIs in selection order.
func Available() []samplelib.GraphicsAPI {
	var out []samplelib.GraphicsAPI
	for _, a := range priority {
		if registry.Has(a.String()) {
			out = append(out, a)
		}
	}
	return out
}

// New returns a new uninitialized context for api.
func New(api samplelib.GraphicsAPI) (samplelib.APIContext, error) {
	if !registry.Has(api.String()) {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, api)
	}
	ctx := registry.Get(api.String())
	if ctx == nil {
		return nil, fmt.Errorf("%w: %s factory returned nil", ErrBackendNotAvailable, api)
	}
	return ctx, nil
}

// Default returns a new context for the best registered API.
func Default() (samplelib.APIContext, error) {
	ctx := registry.Best()
	if ctx == nil {
		return nil, ErrBackendNotAvailable
	}
	return ctx, nil
}

// InitDefault creates the default context and initializes it for win.
// The context is destroyed again when Init fails.
func InitDefault(debug bool, win samplelib.Window) (samplelib.APIContext, error) {
	ctx, err := Default()
	if err != nil {
		return nil, err
	}
	if err := ctx.Init(debug, win); err != nil {
		ctx.Destroy()
		return nil, err
	}
	return ctx, nil
}
