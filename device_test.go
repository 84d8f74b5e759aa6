package ubxmodem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jangala-dev/ubxmodem-go/bus"
	"github.com/jangala-dev/ubxmodem-go/config"
	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/moduletype"
	"github.com/jangala-dev/ubxmodem-go/platform"
	"github.com/jangala-dev/ubxmodem-go/port"
	"github.com/jangala-dev/ubxmodem-go/power"
)

// fakePin is a no-op GPIOPin/EdgeWatchPin, standing in for every pin role a
// test config leaves wired but never actually drives.
type fakePin struct{}

func (fakePin) ConfigureInput(power.Pull) error       { return nil }
func (fakePin) ConfigureOutput(bool) error            { return nil }
func (fakePin) Set(bool)                              {}
func (fakePin) Get() bool                              { return true }
func (fakePin) SetEdgeWatch(power.Edge, func()) error { return nil }
func (fakePin) ClearEdgeWatch() error                 { return nil }

type fakePinFactory struct{}

func (fakePinFactory) ByNumber(int) (power.EdgeWatchPin, error) { return fakePin{}, nil }

// fcsTable/computeFCS duplicate cmux's unexported CRC-8 so this package's
// tests can hand-craft well-formed 27.010 control frames without reaching
// into cmux's internals.
var fcsTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xE0
			} else {
				crc >>= 1
			}
		}
		fcsTable[i] = crc
	}
}

func computeFCS(data []byte) byte {
	fcs := byte(0xFF)
	for _, b := range data {
		fcs = fcsTable[fcs^b]
	}
	return 0xFF - fcs
}

func encodeAddr(dlci byte, cr bool) byte {
	b := byte(1)
	if cr {
		b |= 0x02
	}
	b |= dlci << 2
	return b
}

// encodeUA returns a wire-ready UA response frame acknowledging a SABM/DISC
// sent to dlci.
func encodeUA(dlci byte) []byte {
	addr := encodeAddr(dlci, false)
	const ctrl = byte(0x63) | 0x10 // typeUA with P/F set
	fcs := computeFCS([]byte{addr, ctrl, 0x01})
	return []byte{0xF9, addr, ctrl, 0x01, fcs, 0xF9}
}

// fakeModemPort is a RingPort whose TX sink plays modem: it answers
// AT+CMUX with OK and, once in mux mode, ACKs every SABM it sees with a UA
// on the same DLCI, closely enough modeling a compliant module for
// EnableCMUX/DisableCMUX round-trip tests.
type fakeModemPort struct {
	*port.RingPort
	mu     sync.Mutex
	muxing bool
}

func newFakeModemPort() *fakeModemPort {
	p := &fakeModemPort{}
	p.RingPort = port.NewRingPort(8192, p.onTX)
	return p
}

func (p *fakeModemPort) onTX(b []byte) {
	p.mu.Lock()
	muxing := p.muxing
	p.mu.Unlock()

	if !muxing {
		if string(b[:len(b)-1]) != "" {
			// AT+CMUX=0,0,5,<frame> issued as plain AT text ending in \r.
			p.Deliver([]byte("\r\nOK\r\n"))
			p.mu.Lock()
			p.muxing = true
			p.mu.Unlock()
		}
		return
	}
	if len(b) < 4 || b[0] != 0xF9 {
		return
	}
	dlci := b[1] >> 2
	ctrl := b[2] &^ 0x10
	if ctrl == 0x2F || ctrl == 0x43 { // SABM or DISC
		p.Deliver(encodeUA(dlci))
	}
}

func testConfig(mt moduletype.Type) config.Config {
	return config.Config{
		ModuleType:      mt,
		LeavePowerAlone: true,
		ATBufferSize:    4096,
	}
}

func testPlatform(p port.Port) platform.Platform {
	return platform.Platform{
		Pins: fakePinFactory{},
		UART: stubUARTFactory{p: p},
	}
}

type stubUARTFactory struct{ p port.Port }

func (f stubUARTFactory) Open(port.Config) (port.Port, error) { return f.p, nil }

func TestOpenCloseRoundTrip(t *testing.T) {
	p := newFakeModemPort()
	h, err := Open(testConfig(moduletype.SARA_U201), testPlatform(p))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	dev, ref, ok := Lookup(h)
	if !ok {
		t.Fatal("Lookup: handle not found")
	}
	if dev.Client() == nil {
		t.Fatal("Client is nil after Open")
	}
	ref.Release()

	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	CloseDevice(h)
}

func TestOpenPPPRequiresRegistration(t *testing.T) {
	p := newFakeModemPort()
	h, err := Open(testConfig(moduletype.SARA_U201), testPlatform(p))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		dev, ref, _ := Lookup(h)
		ref.Release()
		dev.Close()
		CloseDevice(h)
	}()

	dev, ref, _ := Lookup(h)
	defer ref.Release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = dev.OpenPPP(ctx, "internet", nil)
	if errcode.Of(err) != errcode.NotRegistered {
		t.Fatalf("OpenPPP err = %v, want NotRegistered", err)
	}
	if dev.cmuxUp {
		t.Fatal("OpenPPP touched CMUX state despite failing registration check")
	}
}

func TestOpenPPPNotSupported(t *testing.T) {
	// Every module in the real capability table sets Features.PPP, so this
	// exercises the guard directly against a bare Device rather than
	// round-tripping through Open with a hypothetical capability row.
	dev := &Device{caps: moduletype.Capabilities{}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := dev.OpenPPP(ctx, "internet", nil)
	if errcode.Of(err) != errcode.NotSupported {
		t.Fatalf("OpenPPP err = %v, want NotSupported", err)
	}
}

func TestEnableDisableCMUXRoundTrip(t *testing.T) {
	p := newFakeModemPort()
	h, err := Open(testConfig(moduletype.SARA_U201), testPlatform(p))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dev, ref, _ := Lookup(h)
	defer func() {
		ref.Release()
		dev.Close()
		CloseDevice(h)
	}()

	if err := dev.EnableCMUX(); err != nil {
		t.Fatalf("EnableCMUX: %v", err)
	}
	if !dev.cmuxUp {
		t.Fatal("cmuxUp not set after EnableCMUX")
	}
	// Idempotent: a second call while already up is a no-op success.
	if err := dev.EnableCMUX(); err != nil {
		t.Fatalf("EnableCMUX (idempotent): %v", err)
	}

	if err := dev.DisableCMUX(); err != nil {
		t.Fatalf("DisableCMUX: %v", err)
	}
	if dev.cmuxUp {
		t.Fatal("cmuxUp still set after DisableCMUX")
	}
}

func TestRebootRequiredPublishesOnce(t *testing.T) {
	p := newFakeModemPort()
	h, err := Open(testConfig(moduletype.SARA_U201), testPlatform(p))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dev, ref, _ := Lookup(h)
	defer func() {
		ref.Release()
		dev.Close()
		CloseDevice(h)
	}()

	sub := Bus.NewConnection("test").Subscribe(bus.T("device", h, topicReboot))
	defer sub.Unsubscribe()

	if dev.RebootRequired() {
		t.Fatal("RebootRequired true before any failure")
	}
	dev.setRebootRequired()
	dev.setRebootRequired()
	if !dev.RebootRequired() {
		t.Fatal("RebootRequired false after setRebootRequired")
	}
	if n := len(sub.Channel()); n != 1 {
		t.Fatalf("reboot_required published %d times, want 1", n)
	}
}
