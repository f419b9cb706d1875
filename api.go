package samplelib

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// GraphicsAPI identifies the graphics API a sample runs on.
// It is chosen once at program start.
type GraphicsAPI uint8

const (
	APINull   GraphicsAPI = iota // No GPU; headless runs and tests
	APID3D11                     // Direct3D 11
	APID3D12                     // Direct3D 12
	APIVulkan                    // Vulkan
	APIOpenGL                    // Desktop OpenGL
	APIOES                       // OpenGL ES
	APIMetal                     // Metal
)

var apiNames = [...]string{
	APINull:   "null",
	APID3D11:  "d3d11",
	APID3D12:  "d3d12",
	APIVulkan: "vulkan",
	APIOpenGL: "opengl",
	APIOES:    "oes",
	APIMetal:  "metal",
}

// apiAliases are accepted by ParseGraphicsAPI in addition to the canonical names.
var apiAliases = map[string]GraphicsAPI{
	"none":  APINull,
	"dx11":  APID3D11,
	"dx12":  APID3D12,
	"vk":    APIVulkan,
	"gl":    APIOpenGL,
	"gles":  APIOES,
	"mtl":   APIMetal,
	"empty": APINull,
}

// String returns the canonical lower-case name of the API.
func (a GraphicsAPI) String() string {
	if int(a) < len(apiNames) {
		return apiNames[a]
	}
	return fmt.Sprintf("GraphicsAPI(%d)", uint8(a))
}

// HalBackend returns the closest wgpu HAL backend variant.
// D3D11 has no HAL counterpart and maps to BackendEmpty.
func (a GraphicsAPI) HalBackend() gputypes.Backend {
	switch a {
	case APID3D12:
		return gputypes.BackendDX12
	case APIVulkan:
		return gputypes.BackendVulkan
	case APIOpenGL, APIOES:
		return gputypes.BackendGL
	case APIMetal:
		return gputypes.BackendMetal
	default:
		return gputypes.BackendEmpty
	}
}

// ParseGraphicsAPI parses an API name such as "d3d12" or "vk".
// Matching is case-insensitive.
func ParseGraphicsAPI(s string) (GraphicsAPI, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range apiNames {
		if n == name {
			return GraphicsAPI(i), nil
		}
	}
	if a, ok := apiAliases[name]; ok {
		return a, nil
	}
	return APINull, fmt.Errorf("samplelib: unknown graphics API %q", s)
}

// GraphicsAPIs returns every known API in declaration order.
func GraphicsAPIs() []GraphicsAPI {
	out := make([]GraphicsAPI, len(apiNames))
	for i := range apiNames {
		out[i] = GraphicsAPI(i)
	}
	return out
}
