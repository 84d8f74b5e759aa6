package port

import (
	"errors"
	"sync"

	"github.com/jangala-dev/ubxmodem-go/ringbuf"
)

// RingPort is a Port realization backed entirely by an in-process ring
// buffer, with TX bytes handed to a caller-supplied sink instead of a real
// wire. It is the host/test double used by atclient, cmux and ppp tests in
// place of a real UART, and also backs TinyGo builds that have no platform
// UART wired in yet.
type RingPort struct {
	rx     *ringbuf.Ring
	sink   func([]byte)
	mu     sync.Mutex
	closed bool
}

// NewRingPort returns a RingPort whose RX side is staged in a ring of the
// given power-of-two size; every Write is handed verbatim to sink (nil is
// treated as "discard").
func NewRingPort(rxSize int, sink func([]byte)) *RingPort {
	if sink == nil {
		sink = func([]byte) {}
	}
	return &RingPort{rx: ringbuf.New(rxSize), sink: sink}
}

// Deliver injects bytes as if received from the wire, for test harnesses
// simulating a modem's responses.
func (p *RingPort) Deliver(b []byte) (n int, overflow bool) {
	return p.rx.WriteFrom(b)
}

func (p *RingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, errors.New("port: write on closed ring port")
	}
	if len(b) == 0 {
		return 0, nil
	}
	cp := append([]byte(nil), b...)
	p.sink(cp)
	return len(b), nil
}

func (p *RingPort) Read(b []byte) (int, error) {
	return p.rx.TryReadInto(b), nil
}

func (p *RingPort) Readable() <-chan struct{} { return p.rx.Readable() }

func (p *RingPort) Buffered() int { return p.rx.Available() }

func (p *RingPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
