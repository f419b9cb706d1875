// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend"

	_ "github.com/gogpu/wgpu/hal/metal" // registers the Metal HAL
)

func init() {
	backend.Register(samplelib.APIMetal, func() samplelib.APIContext { return New() })
}
