// Package port defines the uniform byte-stream capability set the AT client
// and the CMUX multiplexer talk to, so the same client code runs unmodified
// over a direct UART or over a CMUX logical channel. Concrete realizations
// live in this package (direct UART, build-tag-gated by platform) and in
// cmux (logical channel, which implements Port without importing it).
package port

import "time"

// Port is the virtual serial device contract of the modem core: open/close,
// write, read, pending-size, and an edge-triggered readiness notification.
// Every AT transaction and every CMUX channel operates through this
// interface alone.
type Port interface {
	// Write blocks until all of p is queued for transmission. A zero-length
	// write returns (0, nil), never an error.
	Write(p []byte) (int, error)

	// Read copies up to len(p) currently-buffered bytes into p without
	// blocking, returning the number copied (may be zero).
	Read(p []byte) (int, error)

	// Readable fires exactly once on each empty -> non-empty transition of
	// the receive buffer. Callers must re-check state after waking, since
	// notifications are edge-coalesced.
	Readable() <-chan struct{}

	// Buffered reports the number of bytes currently queued for Read.
	Buffered() int

	Close() error
}

// CTSController is implemented by realizations (the direct UART) capable of
// suspending hardware flow-control observation. The power controller's
// wake-on-tx hook uses this to avoid a flow-control stall against a sleeping
// module. CMUX channel ports do not implement this; callers must type-assert.
type CTSController interface {
	SuspendCTS() error
	ResumeCTS() error
}

// Config bundles the parameters needed to open a direct UART realization.
type Config struct {
	Device      string
	BaudRate    uint32
	RXBufSize   int // power-of-two byte count for the staging ring
	ReadTimeout time.Duration
	HWFlowCtrl  bool
}
