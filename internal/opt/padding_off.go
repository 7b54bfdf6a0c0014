//go:build waitgen_disable_padding

package opt

// Padding_ is false when padding is force-disabled via the
// waitgen_disable_padding build tag.
const Padding_ = false

// Pad_ occupies no space when padding is disabled.
type Pad_ struct{}
