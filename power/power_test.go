package power

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jangala-dev/ubxmodem-go/atclient"
	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/moduletype"
	"github.com/jangala-dev/ubxmodem-go/port"
)

type fakePin struct {
	mu    sync.Mutex
	level bool
}

func (p *fakePin) ConfigureInput(Pull) error  { return nil }
func (p *fakePin) ConfigureOutput(bool) error { return nil }
func (p *fakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}
func (p *fakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}
func (p *fakePin) SetEdgeWatch(Edge, func()) error { return nil }
func (p *fakePin) ClearEdgeWatch() error           { return nil }

func testCaps() moduletype.Capabilities {
	c, _ := moduletype.Lookup(moduletype.SARA_R410M_02B)
	c.BootWait = 2 * time.Millisecond
	c.PowerOnPulse = 1 * time.Millisecond
	c.PowerOffPulse = 1 * time.Millisecond
	c.VIntDeassertWait = 30 * time.Millisecond
	c.PowerOffTimeout = 50 * time.Millisecond
	return c
}

func TestPowerOnSequenceProbesAT(t *testing.T) {
	caps := testCaps()
	vint := &fakePin{}
	ctrl := New(caps, Pins{Enable: &fakePin{}, PowerOn: &fakePin{}, VInt: vint})

	probed := false
	err := ctrl.PowerOn(context.Background(), func(ctx context.Context) error {
		probed = true
		return nil
	})
	if err != nil {
		t.Fatalf("PowerOn: %v", err)
	}
	if !probed {
		t.Fatal("probe callback never ran")
	}
}

func TestPowerOffFallsBackToVIntWatch(t *testing.T) {
	caps := testCaps()
	vint := &fakePin{level: true}
	ctrl := New(caps, Pins{Enable: &fakePin{}, PowerOn: &fakePin{}, VInt: vint})

	go func() {
		time.Sleep(10 * time.Millisecond)
		vint.Set(false)
	}()

	if err := ctrl.PowerOff(context.Background(), nil); err != nil {
		t.Fatalf("PowerOff: %v", err)
	}
}

func TestPowerOffTimesOutWhenVIntNeverDeasserts(t *testing.T) {
	caps := testCaps()
	vint := &fakePin{level: true}
	ctrl := New(caps, Pins{Enable: &fakePin{}, PowerOn: &fakePin{}, VInt: vint})

	err := ctrl.PowerOff(context.Background(), nil)
	if errcode.Of(err) != errcode.TemporaryFailure {
		t.Fatalf("PowerOff err = %v, want TemporaryFailure", err)
	}
}

// autoOKPort replies OK to every command, to exercise the AT-backed
// CPWROFF path.
type autoOKPort struct{ *port.RingPort }

func newAutoOKPort() *autoOKPort {
	p := &autoOKPort{}
	p.RingPort = port.NewRingPort(4096, func(b []byte) {
		p.Deliver([]byte("\r\nOK\r\n"))
	})
	return p
}

func TestPowerOffSucceedsOverAT(t *testing.T) {
	caps := testCaps()
	vint := &fakePin{level: true}
	ctrl := New(caps, Pins{Enable: &fakePin{}, PowerOn: &fakePin{}, VInt: vint})

	p := newAutoOKPort()
	client := atclient.New(atclient.Config{Port: p, DefaultTimeout: 200 * time.Millisecond})
	t.Cleanup(client.Close)

	if err := ctrl.PowerOff(context.Background(), client); err != nil {
		t.Fatalf("PowerOff: %v", err)
	}
}
