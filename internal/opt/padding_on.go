//go:build !waitgen_disable_padding

package opt

import (
	"golang.org/x/sys/cpu"
)

// Padding_ reports whether hot atomics are split across cache lines.
// Disable with: go build -tags=waitgen_disable_padding
const Padding_ = true

// Pad_ is inserted between fields that are written by different goroutines
// at high rates, so that they never share a cache line.
type Pad_ = cpu.CacheLinePad
