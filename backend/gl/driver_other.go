// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !windows && !linux

package gl

import "errors"

func defaultDriver() Driver { return nil }

func loadFunctions(SubContext) (Functions, error) {
	return nil, errors.New("no GL loader for this platform")
}
