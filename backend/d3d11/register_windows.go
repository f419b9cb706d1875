// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend"
)

func init() {
	backend.Register(samplelib.APID3D11, func() samplelib.APIContext { return New() })
}
