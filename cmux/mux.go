package cmux

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/jangala-dev/ubxmodem-go/errcode"
)

const (
	maxDLCI     = 16 // DLCI 0 (control) plus up to 16 logical channels
	chanRXSize  = 4096
	defaultN1   = 127 // basic-mode default max frame payload
	defaultT1   = 300 * time.Millisecond
	defaultTries = 3
)

// Port is the physical-transport method set Mux drives. It matches
// port.Port's shape structurally rather than importing port, since Channel
// must satisfy that same shape for callers outside this package and a
// direct import would cycle.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Readable() <-chan struct{}
	Buffered() int
}

// Config bundles the parameters needed to bring a multiplexer up over an
// already-open physical port.
type Config struct {
	Port      Port
	FrameSize int           // N1: max UIH payload length advertised to the peer
	T1        time.Duration // control-frame ack timeout
	Retries   int           // control-frame retransmit attempts before giving up
}

// Mux is one 3GPP TS 27.010 basic-mode multiplexer session over a physical
// port. Enable brings the control channel (DLCI 0) up; OpenChannel then
// brings up logical channels, each exposed as a Channel.
type Mux struct {
	cfg  Config
	port Port

	mu       sync.Mutex
	channels map[byte]*Channel
	acks     map[byte]chan frame

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Mux and starts its demultiplexing goroutine. The
// multiplexer does not begin framing on the wire until Enable is called.
func New(cfg Config) *Mux {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mux{
		cfg:      cfg,
		port:     cfg.Port,
		channels: make(map[byte]*Channel),
		acks:     make(map[byte]chan frame),
		ctx:      ctx,
		cancel:   cancel,
	}
	go m.demuxLoop()
	return m
}

// Close stops the demultiplexing goroutine without sending DISC; call
// Disable first for a clean shutdown of a live session.
func (m *Mux) Close() error {
	m.cancel()
	return nil
}

func (m *Mux) frameSize() int {
	if m.cfg.FrameSize > 0 {
		return m.cfg.FrameSize
	}
	return defaultN1
}

// Enable brings the control channel up (SABM/UA on DLCI 0).
func (m *Mux) Enable() error {
	_, err := m.sendControlAndWait(0, typeSABM)
	return err
}

// Disable tears the control channel down (DISC/UA on DLCI 0) and drops all
// open logical channels.
func (m *Mux) Disable() error {
	_, err := m.sendControlAndWait(0, typeDISC)
	m.mu.Lock()
	for dlci := range m.channels {
		delete(m.channels, dlci)
	}
	m.mu.Unlock()
	return err
}

// OpenChannel brings up logical channel dlci (SABM/UA) and returns it.
func (m *Mux) OpenChannel(dlci byte) (*Channel, error) {
	if dlci == 0 || dlci > maxDLCI {
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "cmux", Msg: "dlci out of range"}
	}
	m.mu.Lock()
	if _, exists := m.channels[dlci]; exists {
		m.mu.Unlock()
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "cmux", Msg: "channel already open"}
	}
	ch := newChannel(m, dlci, chanRXSize)
	m.channels[dlci] = ch
	m.mu.Unlock()

	if _, err := m.sendControlAndWait(dlci, typeSABM); err != nil {
		m.mu.Lock()
		delete(m.channels, dlci)
		m.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

// closeChannel issues DISC for dlci and removes it from the channel table
// regardless of whether the peer acknowledges in time.
func (m *Mux) closeChannel(dlci byte) error {
	_, err := m.sendControlAndWait(dlci, typeDISC)
	m.mu.Lock()
	delete(m.channels, dlci)
	m.mu.Unlock()
	return err
}

// sendControlAndWait sends a command frame (SABM or DISC, P/F=1) on dlci and
// waits for the peer's UA/DM reply, retrying on T1 expiry.
func (m *Mux) sendControlAndWait(dlci byte, typ frameType) (frame, error) {
	waiter := make(chan frame, 1)
	m.mu.Lock()
	m.acks[dlci] = waiter
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.acks, dlci)
		m.mu.Unlock()
	}()

	retries := m.cfg.Retries
	if retries <= 0 {
		retries = defaultTries
	}
	t1 := m.cfg.T1
	if t1 <= 0 {
		t1 = defaultT1
	}

	f := frame{addr: dlci, cr: true, typ: typ, pf: true}
	wire := f.encode()
	for attempt := 0; attempt <= retries; attempt++ {
		if _, err := m.port.Write(wire); err != nil {
			return frame{}, err
		}
		select {
		case resp := <-waiter:
			if resp.typ == typeDM {
				return resp, &errcode.E{C: errcode.DeviceError, Op: "cmux", Msg: "peer refused (DM)"}
			}
			return resp, nil
		case <-time.After(t1):
		case <-m.ctx.Done():
			return frame{}, m.ctx.Err()
		}
	}
	return frame{}, &errcode.E{C: errcode.Timeout, Op: "cmux"}
}

// sendUIH frames payload as one UIH frame addressed to dlci.
func (m *Mux) sendUIH(dlci byte, payload []byte) error {
	f := frame{addr: dlci, cr: true, typ: typeUIH, payload: payload}
	_, err := m.port.Write(f.encode())
	return err
}

// mscCmdCode is the multiplexer control channel command code used for
// Modem Status Command (flow control per DLCI). No corpus repo implements
// 27.010's control-channel command set; this encoding is internally
// consistent but has not been checked against a real module's traces.
const mscCmdCode byte = 0x08

func (m *Mux) sendMSC(dlci byte, busy bool) {
	typeOctet := (mscCmdCode << 2) | 0x02 | 0x01 // CR=1 (command), EA=1
	dlciOctet := encodeAddr(dlci, true)
	status := byte(0x01) // EA=1
	if busy {
		status |= 0x02 // FC bit
	}
	payload := []byte{typeOctet, (2 << 1) | 1, dlciOctet, status}
	m.sendUIH(0, payload)
}

func (m *Mux) handleControlUIH(payload []byte) {
	if len(payload) < 4 {
		return
	}
	typeOctet := payload[0]
	if typeOctet>>2 != mscCmdCode {
		return
	}
	cr := typeOctet&0x02 != 0
	dlciOctet := payload[2]
	status := payload[3]
	dlci, _ := decodeAddr(dlciOctet)
	busy := status&0x02 != 0

	m.mu.Lock()
	ch := m.channels[dlci]
	m.mu.Unlock()
	if ch != nil {
		ch.setRemoteBusy(busy)
	}

	if cr {
		respType := (mscCmdCode << 2) | 0x01 // CR=0 (response), EA=1
		resp := []byte{respType, payload[1], dlciOctet, status}
		m.sendUIH(0, resp)
	}
}

// demuxLoop is the single thread that ever touches inbound bytes on the
// physical port: it accumulates raw bytes, splits on flag bytes, validates
// each frame's FCS, and dispatches it. A bad FCS is dropped silently; it
// never perturbs parsing of the frames that follow.
func (m *Mux) demuxLoop() {
	readBuf := make([]byte, 1024)
	var acc []byte

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.port.Readable():
		}

		for {
			n, _ := m.port.Read(readBuf)
			if n == 0 {
				break
			}
			acc = append(acc, readBuf[:n]...)
		}
		acc = m.consumeFrames(acc)
	}
}

// consumeFrames extracts and dispatches every complete flag-delimited frame
// in buf, returning the unconsumed remainder (an incomplete trailing frame
// waiting for more bytes).
func (m *Mux) consumeFrames(buf []byte) []byte {
	for {
		start := bytes.IndexByte(buf, flag)
		if start < 0 {
			return nil
		}
		end := -1
		for i := start + 1; i < len(buf); i++ {
			if buf[i] == flag {
				end = i
				break
			}
		}
		if end < 0 {
			return buf[start:]
		}
		if end == start+1 {
			buf = buf[end:]
			continue
		}

		f, fcsValid, ok := decodeFrame(buf[start+1 : end])
		if ok && fcsValid {
			m.dispatch(f)
		}
		buf = buf[end:]
	}
}

func (m *Mux) dispatch(f frame) {
	switch f.typ {
	case typeUA, typeDM:
		m.mu.Lock()
		waiter := m.acks[f.addr]
		m.mu.Unlock()
		if waiter != nil {
			select {
			case waiter <- f:
			default:
			}
		}

	case typeUIH:
		if f.addr == 0 {
			m.handleControlUIH(f.payload)
			return
		}
		m.mu.Lock()
		ch := m.channels[f.addr]
		m.mu.Unlock()
		if ch != nil {
			ch.deliver(f.payload)
		}

	case typeDISC:
		ua := frame{addr: f.addr, cr: false, typ: typeUA, pf: f.pf}
		m.port.Write(ua.encode())
		m.mu.Lock()
		ch := m.channels[f.addr]
		delete(m.channels, f.addr)
		m.mu.Unlock()
		if ch != nil {
			ch.mu.Lock()
			ch.closed = true
			ch.mu.Unlock()
			ch.fireEvent(EventClosed)
		}
	}
}
