package cmux

import (
	"errors"
	"sync"

	"github.com/jangala-dev/ubxmodem-go/ringbuf"
	"github.com/jangala-dev/ubxmodem-go/x/mathx"
)

// Event is a bitmask of Channel lifecycle notifications delivered to an
// optionally-registered callback, filtered by the mask passed to
// SetEventHandler. Mirrors the capability-table event-mask pattern the rest
// of the module uses instead of per-event subscribe methods.
type Event uint8

const (
	EventDataReceived Event = 1 << iota
	EventRemoteBusyChanged
	EventClosed
)

type EventFunc func(Event)

var errChannelClosed = errors.New("cmux: channel closed")

// watermark fractions for local flow-control assertion: once the RX ring
// crosses highNum/highDen full we tell the peer to pause (spec §4.E);
// once it drains below lowNum/lowDen we tell it to resume.
const (
	highNum, highDen = 3, 4
	lowNum, lowDen   = 1, 4
)

// Channel is one DLCI's logical byte stream multiplexed over the physical
// port. It implements the same method set as port.Port structurally (Write,
// Read, Readable, Buffered, Close) so the AT client runs unmodified whether
// it is handed a direct UART or a CMUX Channel.
type Channel struct {
	mux  *Mux
	dlci byte

	rx *ringbuf.Ring

	// highWatermark/lowWatermark are byte thresholds derived from the ring's
	// capacity via mathx.Clamp, which keeps them inside [0, capacity] even
	// for a small rxSize where a bare fraction*capacity division could
	// round a watermark out of range.
	highWatermark int
	lowWatermark  int

	mu         sync.Mutex
	remoteBusy bool // peer's MSC told us to stop sending
	localBusy  bool // we told the peer to stop sending
	closed     bool

	fcCleared chan struct{}

	onEvent   EventFunc
	eventMask Event
}

func newChannel(mux *Mux, dlci byte, rxSize int) *Channel {
	return &Channel{
		mux:           mux,
		dlci:          dlci,
		rx:            ringbuf.New(rxSize),
		highWatermark: mathx.Clamp(rxSize*highNum/highDen, 1, rxSize),
		lowWatermark:  mathx.Clamp(rxSize*lowNum/lowDen, 0, rxSize-1),
		fcCleared:     make(chan struct{}, 1),
	}
}

// DLCI returns the channel's data link connection identifier.
func (c *Channel) DLCI() byte { return c.dlci }

// SetEventHandler installs fn to be called, synchronously on the demux
// goroutine, for any event in mask. A nil fn clears the handler.
func (c *Channel) SetEventHandler(mask Event, fn EventFunc) {
	c.mu.Lock()
	c.eventMask = mask
	c.onEvent = fn
	c.mu.Unlock()
}

func (c *Channel) fireEvent(e Event) {
	c.mu.Lock()
	fn := c.onEvent
	mask := c.eventMask
	c.mu.Unlock()
	if fn != nil && mask&e != 0 {
		fn(e)
	}
}

// Write blocks until the peer has de-asserted remote-busy and then frames p
// as one or more UIH frames on this channel. A zero-length write returns
// (0, nil) without blocking on flow control, matching port.Port.
func (c *Channel) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, errChannelClosed
	}

	for {
		c.mu.Lock()
		busy := c.remoteBusy
		c.mu.Unlock()
		if !busy {
			break
		}
		<-c.fcCleared
	}

	max := c.mux.frameSize()
	sent := 0
	for sent < len(p) {
		end := sent + max
		if end > len(p) {
			end = len(p)
		}
		if err := c.mux.sendUIH(c.dlci, p[sent:end]); err != nil {
			return sent, err
		}
		sent = end
	}
	return sent, nil
}

// Read copies up to len(p) buffered bytes without blocking.
func (c *Channel) Read(p []byte) (int, error) {
	return c.rx.TryReadInto(p), nil
}

// Readable fires on each empty -> non-empty transition of the channel's RX
// buffer.
func (c *Channel) Readable() <-chan struct{} { return c.rx.Readable() }

// Buffered reports bytes currently queued for Read.
func (c *Channel) Buffered() int { return c.rx.Available() }

// Close issues DISC for this DLCI and waits for UA (or T1 expiry).
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.fireEvent(EventClosed)
	return c.mux.closeChannel(c.dlci)
}

// deliver appends payload received on this DLCI to the RX ring, raising
// local-busy flow control once the high watermark is crossed. overflow is
// true when the ring could not hold all of payload (a slow or absent
// reader); the frame is still counted as delivered for what fit.
func (c *Channel) deliver(payload []byte) (overflow bool) {
	_, overflow = c.rx.WriteFrom(payload)
	c.fireEvent(EventDataReceived)

	avail := c.rx.Available()
	c.mu.Lock()
	wasBusy := c.localBusy
	nowBusy := wasBusy
	if !wasBusy && avail >= c.highWatermark {
		nowBusy = true
	} else if wasBusy && avail <= c.lowWatermark {
		nowBusy = false
	}
	c.localBusy = nowBusy
	c.mu.Unlock()

	if nowBusy != wasBusy {
		c.mux.sendMSC(c.dlci, nowBusy)
	}
	return overflow
}

// setRemoteBusy records the peer's MSC flow-control bit and wakes any
// Write blocked on it when it clears.
func (c *Channel) setRemoteBusy(busy bool) {
	c.mu.Lock()
	changed := c.remoteBusy != busy
	c.remoteBusy = busy
	c.mu.Unlock()
	if changed {
		c.fireEvent(EventRemoteBusyChanged)
	}
	if !busy {
		select {
		case c.fcCleared <- struct{}{}:
		default:
		}
	}
}
