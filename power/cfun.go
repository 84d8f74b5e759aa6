package power

import (
	"sync"
	"time"

	"github.com/jangala-dev/ubxmodem-go/atclient"
	"github.com/jangala-dev/ubxmodem-go/x/mathx"
)

// CFUNGate enforces the module's minimum inter-flip gap between successive
// AT+CFUN= transitions: issuing them back to back can wedge some modules'
// radio stacks. One gate instance lives per device (held by the root
// Device beside its power.Controller), since the gap is stateful across the whole device's lifetime,
// not per caller.
type CFUNGate struct {
	minGap  time.Duration
	extWait time.Duration

	mu       sync.Mutex
	lastFlip time.Time
}

// NewCFUNGate builds a gate from a module's capability row.
func NewCFUNGate(minGap, extTimeout time.Duration) *CFUNGate {
	return &CFUNGate{minGap: minGap, extWait: mathx.Clamp(extTimeout, time.Second, 2*time.Minute)}
}

// Set issues AT+CFUN=<target>, blocking first for whatever remains of the
// minimum gap since the last flip. target==1 uses the client's default
// response timeout; any other target temporarily extends it to extWait,
// since leaving/entering airplane mode and full resets can take much
// longer than a plain AT command.
func (g *CFUNGate) Set(client *atclient.Client, target int) error {
	g.waitGap()

	if err := client.Lock(); err != nil {
		return err
	}
	defer client.Unlock()

	if target != 1 {
		client.SetTimeout(g.extWait)
	}
	client.CommandStart("AT+CFUN")
	client.WriteInt(target)
	if err := client.CommandStop(); err != nil {
		return err
	}
	if err := client.ResponseStart(""); err != nil {
		return err
	}
	err := client.ResponseStop()

	g.mu.Lock()
	g.lastFlip = time.Now()
	g.mu.Unlock()
	return err
}

func (g *CFUNGate) waitGap() {
	g.mu.Lock()
	last := g.lastFlip
	g.mu.Unlock()
	if last.IsZero() {
		return
	}
	if elapsed := time.Since(last); elapsed < g.minGap {
		time.Sleep(g.minGap - elapsed)
	}
}
