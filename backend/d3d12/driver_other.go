// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !windows

package d3d12

func defaultDriver() Driver { return nil }
