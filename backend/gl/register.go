// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows || linux

package gl

import (
	"github.com/gogpu/samplelib"
	"github.com/gogpu/samplelib/backend"
)

func init() {
	backend.Register(samplelib.APIOpenGL, func() samplelib.APIContext { return New() })
	backend.Register(samplelib.APIOES, func() samplelib.APIContext { return NewES() })
}
