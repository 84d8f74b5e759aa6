// Package intercept implements the AT client's optional pre-encode/decode
// hooks (spec §4.C): per-direction functions that transform bytes on their
// way to the UART (TX) or on their way to the parser (RX). The primary use
// is layering chip-to-chip (C2C) authenticated encryption transparently
// underneath the AT protocol.
package intercept

// Func transforms one complete unit of bytes for one direction. TX intercept
// is called once per complete AT command (delimited by the command
// terminator); RX intercept is called on arbitrary inbound chunks. A zero-
// length input must return a zero-length output and a nil error: every
// Func in this package is idempotent on empty input.
type Func func(src []byte) ([]byte, error)

// Pipeline bundles the TX and RX hooks installed on an AT client. A nil
// field means "no hook for that direction" and the client passes bytes
// through unmodified; this is different from Identity, which is an explicit
// Func that happens to be a no-op, useful when callers want a uniform
// non-nil Pipeline regardless of which direction is active.
type Pipeline struct {
	TX Func
	RX Func
}

// Apply runs f if non-nil, otherwise passes src through unmodified.
func Apply(f Func, src []byte) ([]byte, error) {
	if f == nil {
		return src, nil
	}
	return f(src)
}
