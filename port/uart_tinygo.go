//go:build tinygo

package port

import (
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

// UARTPort is the direct-UART Port realization on TinyGo/RP2xxx targets,
// adapting github.com/jangala-dev/tinygo-uartx's interrupt-driven UART.
// Grounded on the teacher's factories_rp2xxx.go rp2UART adapter.
type UARTPort struct {
	u          *uartx.UART
	readable   chan struct{}
	ctsSuspend bool
}

// rxPollInterval bounds how often the background goroutine polls
// Buffered() to synthesize the edge-triggered Readable() notification;
// uartx's own buffer is the source of truth and is never consumed here.
const rxPollInterval = 2 * time.Millisecond

// OpenUARTHardware wraps an already-Configure'd *uartx.UART (pin/baud setup
// is board-specific and happens in the caller, mirroring the teacher's
// DefaultUARTFactory). It starts a goroutine that watches Buffered() for the
// empty -> non-empty transition the rest of the core expects from
// Readable(); actual byte consumption stays in Read, so the watcher never
// steals data from a caller.
func OpenUARTHardware(u *uartx.UART) *UARTPort {
	p := &UARTPort{u: u, readable: make(chan struct{}, 1)}
	go p.pump()
	return p
}

func (p *UARTPort) pump() {
	wasEmpty := true
	for {
		time.Sleep(rxPollInterval)
		n := p.u.Buffered()
		if n > 0 && wasEmpty {
			select {
			case p.readable <- struct{}{}:
			default:
			}
		}
		wasEmpty = n == 0
	}
}

func (p *UARTPort) Write(b []byte) (int, error) { return p.u.Write(b) }

func (p *UARTPort) Read(b []byte) (int, error) { return p.u.Read(b) }

func (p *UARTPort) Readable() <-chan struct{} { return p.readable }

func (p *UARTPort) Buffered() int { return p.u.Buffered() }

func (p *UARTPort) Close() error { return nil }

// SuspendCTS/ResumeCTS are no-ops on this target: tinygo-uartx exposes no CTS
// observation toggle, so the power controller's wake-on-tx hook degrades to
// the AT-poll retry path only.
func (p *UARTPort) SuspendCTS() error { p.ctsSuspend = true; return nil }
func (p *UARTPort) ResumeCTS() error  { p.ctsSuspend = false; return nil }
