package port

import (
	"context"

	"github.com/jangala-dev/ubxmodem-go/ringbuf"
)

// blockingReader is the minimal shape a transport driver must expose for
// runReader to pump it into a ring: a Read that may block until at least one
// byte arrives or the deadline/cancellation fires.
type blockingReader interface {
	Read(p []byte) (int, error)
}

// runReader starts the background pump goroutine shared by every direct-UART
// realization: it blocks in Read, stages bytes into rb, and lets rb's own
// Readable() channel carry the edge-triggered notification (so Port.Readable
// just forwards rb.Readable()). Grounded on the teacher's uart_worker.go
// reader-goroutine shape, adapted from line/frame accumulation to a raw byte
// pump feeding the SPSC ring instead.
func runReader(ctx context.Context, src blockingReader, rb *ringbuf.Ring, chunk int) {
	if chunk <= 0 {
		chunk = 256
	}
	buf := make([]byte, chunk)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, err := src.Read(buf)
			if n > 0 {
				rb.WriteFrom(buf[:n]) // overflow is observable via rb.Space(); the pump never blocks on a full ring
			}
			if err != nil {
				return
			}
		}
	}()
}
