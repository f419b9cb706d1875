package backend

import (
	"errors"

	"github.com/gogpu/samplelib"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory creates an uninitialized context.
type Factory func() samplelib.APIContext

// priority is the selection order of Default; first registered wins.
var priority = []samplelib.GraphicsAPI{
	samplelib.APID3D12,
	samplelib.APIVulkan,
	samplelib.APIMetal,
	samplelib.APID3D11,
	samplelib.APIOpenGL,
	samplelib.APIOES,
	samplelib.APINull,
}

func priorityNames() []string {
	names := make([]string, len(priority))
	for i, a := range priority {
		names[i] = a.String()
	}
	return names
}
