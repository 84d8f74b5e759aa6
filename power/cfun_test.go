package power

import (
	"testing"
	"time"

	"github.com/jangala-dev/ubxmodem-go/atclient"
	"github.com/jangala-dev/ubxmodem-go/port"
)

func TestCFUNGateEnforcesMinimumGap(t *testing.T) {
	p := newAutoOKPort()
	client := atclient.New(atclient.Config{Port: p, DefaultTimeout: 200 * time.Millisecond})
	t.Cleanup(client.Close)

	gate := NewCFUNGate(40*time.Millisecond, time.Second)

	if err := gate.Set(client, 1); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	start := time.Now()
	if err := gate.Set(client, 4); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("second Set only waited %s, want >= 40ms gap", elapsed)
	}
}

func TestCFUNGateNoWaitOnFirstCall(t *testing.T) {
	p := newAutoOKPort()
	client := atclient.New(atclient.Config{Port: p, DefaultTimeout: 200 * time.Millisecond})
	t.Cleanup(client.Close)

	gate := NewCFUNGate(500*time.Millisecond, time.Second)
	start := time.Now()
	if err := gate.Set(client, 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first Set waited %s, want near-immediate", elapsed)
	}
}

var _ port.Port = (*autoOKPort)(nil)
