//go:build !race

package opt

// Race_ is true under the race detector. Tests use it to shrink stress runs.
const Race_ = false
