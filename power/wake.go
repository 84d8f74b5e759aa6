package power

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jangala-dev/ubxmodem-go/atclient"
	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/port"
)

// sleepState is the deep-sleep state machine of spec §4.G.
type sleepState int

const (
	stateUnavailable sleepState = iota
	stateAvailable
	stateProtocolStackAsleep
	stateAsleep
)

// wakeRetries bounds how many bare "AT" pokes the wake hook issues before
// giving up on a module that asserted vint but never answers.
const wakeRetries = 3

// wakePokeTimeout bounds each individual poke's wait, distinct from the
// client's normal command timeout which may be tuned for steady-state
// traffic rather than a cold wake.
const wakePokeTimeout = 2 * time.Second

// WakeController owns the deep-sleep state machine and the wake-on-tx hook
// installed on an atclient.Client. It registers a +UUPSMR URC handler on
// construction, so it must be built after the Client exists but before any
// traffic that could race PSM entry.
type WakeController struct {
	ctrl   *Controller
	client *atclient.Client

	mu    sync.Mutex
	state sleepState
}

// Attach builds a WakeController bound to client, registers the PSM-entry
// URC handler, and returns the atclient.WakeFunc to install on the same
// client via Client.SetWake.
func Attach(ctrl *Controller, client *atclient.Client) (*WakeController, atclient.WakeFunc) {
	w := &WakeController{ctrl: ctrl, client: client, state: stateAvailable}
	client.URCHandlerSet("+UUPSMR:", w.handlePSMR)
	ctrl.pins.VInt.SetEdgeWatch(EdgeFalling, w.noteVIntDeasserted)
	return w, w.wake
}

// handlePSMR runs on the AT client's rxLoop goroutine (it must not call
// Lock): it only records the module's self-reported entry into the
// protocol-stack-asleep state ahead of vint actually deasserting.
func (w *WakeController) handlePSMR(f *atclient.URCFields) {
	mode := f.ReadInt()
	w.mu.Lock()
	if mode == 1 {
		w.state = stateProtocolStackAsleep
	} else {
		w.state = stateAvailable
	}
	w.mu.Unlock()
}

// noteVIntDeasserted transitions the state machine to ASLEEP when vint
// drops while 3GPP power saving is network-agreed; Attach wires this to
// power.Pins.VInt.SetEdgeWatch(EdgeFalling, ...).
func (w *WakeController) noteVIntDeasserted() {
	w.mu.Lock()
	if w.state == stateProtocolStackAsleep {
		w.state = stateAsleep
	}
	w.mu.Unlock()
}

// wake is the atclient.WakeFunc: invoked exactly once per Lock, before any
// TX byte, never re-entrant. It suspends CTS observation (so a flow-control
// stall against a still-sleeping module doesn't wedge TX), runs whatever
// wake sequence the current state needs, then resumes CTS.
func (w *WakeController) wake() error {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()

	cts, _ := w.client.Port().(port.CTSController)
	if cts != nil {
		cts.SuspendCTS()
		defer cts.ResumeCTS()
	}

	if state == stateAsleep {
		if err := w.ctrl.PowerOn(context.Background(), nil); err != nil {
			return err
		}
	}

	for attempt := 0; attempt < wakeRetries; attempt++ {
		if w.poke() {
			w.mu.Lock()
			w.state = stateAvailable
			w.mu.Unlock()
			return nil
		}
	}
	return &errcode.E{C: errcode.Timeout, Op: "power.wake", Msg: "module did not respond to " + strconv.Itoa(wakeRetries) + " wake pokes"}
}

// poke issues a bare "AT" and reports whether it got an OK within
// wakePokeTimeout. It runs inline within wake, which already holds the
// client's transaction lock via the caller's Lock() that triggered this
// WakeFunc, so it talks to the client's command-assembly API directly
// rather than calling Lock again.
func (w *WakeController) poke() bool {
	w.client.SetTimeout(wakePokeTimeout)
	w.client.CommandStart("AT")
	if err := w.client.CommandStop(); err != nil {
		return false
	}
	if err := w.client.ResponseStart(""); err != nil {
		return false
	}
	return w.client.ResponseStop() == nil
}
