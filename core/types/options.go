package types

import "strings"

// ProcessingOptions is a set of flags altering how a block's transactions
// are executed. Only the flags declared below are inspected; any other bit
// is carried through untouched.
type ProcessingOptions uint32

const (
	// NoProcessingOptions executes transactions with full validation.
	NoProcessingOptions ProcessingOptions = 0

	// DoNotVerifyNonce rewrites each transaction's nonce to the sender's
	// current nonce instead of validating it.
	DoNotVerifyNonce ProcessingOptions = 1 << 0
)

// Contains reports whether every flag in flags is set in o.
func (o ProcessingOptions) Contains(flags ProcessingOptions) bool {
	return o&flags == flags
}

func (o ProcessingOptions) String() string {
	if o == NoProcessingOptions {
		return "none"
	}
	var names []string
	if o.Contains(DoNotVerifyNonce) {
		names = append(names, "DoNotVerifyNonce")
	}
	if o&^DoNotVerifyNonce != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}
