// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gl

import (
	"fmt"
	"strings"
)

// Version is a GL context version as reported by glGetString(GL_VERSION).
type Version struct {
	Major, Minor int
	ES           bool
}

// ParseVersion parses GL_VERSION strings such as "4.6.0 NVIDIA 535.54"
// and "OpenGL ES 3.2 Mesa 23.1".
func ParseVersion(s string) (Version, error) {
	var v Version
	rest := strings.TrimSpace(s)
	for _, prefix := range []string{"OpenGL ES-CM ", "OpenGL ES-CL ", "OpenGL ES "} {
		if after, ok := strings.CutPrefix(rest, prefix); ok {
			rest, v.ES = after, true
			break
		}
	}
	if _, err := fmt.Sscanf(rest, "%d.%d", &v.Major, &v.Minor); err != nil {
		return Version{}, fmt.Errorf("GL_VERSION %q: %w", s, err)
	}
	return v, nil
}

// AtLeast reports whether v is of the same flavor as floor and not older.
func (v Version) AtLeast(floor Version) bool {
	if v.ES != floor.ES {
		return false
	}
	return v.Major > floor.Major || v.Major == floor.Major && v.Minor >= floor.Minor
}

func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("OpenGL ES %d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("OpenGL %d.%d", v.Major, v.Minor)
}
