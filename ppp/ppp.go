// Package ppp is the PPP dial sequencer of spec §4.H: it brings up a CMUX
// data channel, issues the ATD dial string, watches for CONNECT/ERROR
// without going through the full AT client transaction protocol, and on
// teardown sends (or waits out) a fixed LCP terminate exchange.
//
// Structurally grounded on `services/bridge/bridge.go`'s Service: a
// cancelable inner goroutine guarded by a mutex, restartable/closable
// idempotently. Open/Close here replace bridge's config-driven restart
// loop, but the same shape applies.
package ppp

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jangala-dev/ubxmodem-go/cmux"
	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/moduletype"
)

// RXFunc receives raw bytes as they arrive on the PPP channel.
type RXFunc func([]byte)

// Hooks decouples the sequencer from the root device package, which in
// turn depends on ppp: network-registration state and the reboot-required
// flag live one layer up and are injected rather than imported, the same
// way bridge.go injects UARTDial instead of importing a platform package.
type Hooks struct {
	IsRegistered        func() bool
	SetRebootRequired   func()
	SuspendDataLineWake func() error
	ResumeDataLineWake  func() error

	// EnableCMUX/DisableCMUX let a caller that also uses the Mux for AT
	// traffic share ownership of its lifecycle: EnableCMUX reports whether
	// this call was the one that actually brought CMUX up (enabledByUs),
	// and DisableCMUX is only invoked on Close if it was. Nil means this
	// Sequencer owns the Mux outright and drives Enable/Disable itself.
	EnableCMUX  func() (enabledByUs bool, err error)
	DisableCMUX func()
}

// Sequencer drives one PPP session over a Mux's reserved PPP channel.
type Sequencer struct {
	mux   *cmux.Mux
	caps  moduletype.Capabilities
	hooks Hooks

	mu         sync.Mutex
	ch         *cmux.Channel
	open       bool
	enabledMux bool
	pumpCancel context.CancelFunc

	onRX atomic.Value // RXFunc
}

// New returns a Sequencer bound to mux and a module's capability row.
func New(mux *cmux.Mux, caps moduletype.Capabilities, hooks Hooks) *Sequencer {
	return &Sequencer{mux: mux, caps: caps, hooks: hooks}
}

// SetReceiver installs the callback Transmit'd bytes' replies are
// delivered to, replacing any previously installed receiver. Safe to call
// whether or not a session is open.
func (s *Sequencer) SetReceiver(fn RXFunc) {
	s.onRX.Store(fn)
}

// Open dials apn and blocks until CONNECT, ERROR, or ctx/dial-timeout
// expiry.
func (s *Sequencer) Open(ctx context.Context, apn string) error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return &errcode.E{C: errcode.InvalidParam, Op: "ppp.open", Msg: "already open"}
	}
	s.mu.Unlock()

	if s.hooks.IsRegistered != nil && !s.hooks.IsRegistered() {
		return &errcode.E{C: errcode.NotRegistered, Op: "ppp.open"}
	}

	enabledByUs, err := s.enableMux()
	if err != nil {
		return err
	}

	ch, err := s.mux.OpenChannel(byte(s.caps.CMUXPPPChannel))
	if err != nil {
		return err
	}

	if s.hooks.SuspendDataLineWake != nil {
		s.hooks.SuspendDataLineWake()
	}

	if !sleepCtx(ctx, s.caps.PPPSettleTime) {
		ch.Close()
		return ctx.Err()
	}

	if _, err := ch.Write([]byte("ATD*99***" + apn + "#\r")); err != nil {
		ch.Close()
		return err
	}

	if err := s.waitConnect(ctx, ch); err != nil {
		ch.Close()
		return err
	}

	s.mu.Lock()
	s.ch = ch
	s.open = true
	s.enabledMux = enabledByUs
	s.mu.Unlock()

	s.startPump(ch)
	return nil
}

// enableMux brings the Mux's control channel up, deferring to
// Hooks.EnableCMUX when set so a caller sharing the Mux for AT traffic can
// report whether this call was the one that actually enabled it.
func (s *Sequencer) enableMux() (enabledByUs bool, err error) {
	if s.hooks.EnableCMUX != nil {
		return s.hooks.EnableCMUX()
	}
	if err := s.mux.Enable(); err != nil {
		return false, err
	}
	return true, nil
}

// waitConnect scans the channel for a leading "\r\nCONNECT" (the trailing
// speed field is ignored, a deliberately liberal match) or "\r\nERROR\r\n".
func (s *Sequencer) waitConnect(ctx context.Context, ch *cmux.Channel) error {
	deadline := time.After(s.caps.PPPDialTimeout)
	var buf []byte
	scratch := make([]byte, 256)
	for {
		select {
		case <-ch.Readable():
		case <-deadline:
			return &errcode.E{C: errcode.Timeout, Op: "ppp.dial"}
		case <-ctx.Done():
			return ctx.Err()
		}
		for {
			n, _ := ch.Read(scratch)
			if n == 0 {
				break
			}
			buf = append(buf, scratch[:n]...)
		}
		if bytes.Contains(buf, []byte("\r\nCONNECT")) {
			return nil
		}
		if bytes.Contains(buf, []byte("\r\nERROR\r\n")) {
			return &errcode.E{C: errcode.DeviceError, Op: "ppp.dial", Msg: "modem returned ERROR"}
		}
	}
}

func (s *Sequencer) startPump(ch *cmux.Channel) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.pumpCancel = cancel
	s.mu.Unlock()
	go func() {
		buf := make([]byte, 512)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch.Readable():
			}
			for {
				n, _ := ch.Read(buf)
				if n == 0 {
					break
				}
				if fn, _ := s.onRX.Load().(RXFunc); fn != nil {
					fn(append([]byte(nil), buf[:n]...))
				}
			}
		}
	}()
}

// Transmit writes p verbatim to the open PPP channel.
func (s *Sequencer) Transmit(p []byte) (int, error) {
	s.mu.Lock()
	ch := s.ch
	open := s.open
	s.mu.Unlock()
	if !open {
		return 0, &errcode.E{C: errcode.NotConnected, Op: "ppp.transmit"}
	}
	return ch.Write(p)
}

// Close tears the session down. If terminate is true, it sends the fixed
// LCP terminate-request and waits for the ack (setting reboot-required via
// Hooks on timeout, per §8 scenario 6) before releasing the channel.
func (s *Sequencer) Close(terminate bool) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	ch := s.ch
	enabledMux := s.enabledMux
	cancel := s.pumpCancel
	s.open = false
	s.ch = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if terminate {
		ch.Write(lcpTerminateRequest)
		if !s.waitTerminateAck(ch) && s.hooks.SetRebootRequired != nil {
			s.hooks.SetRebootRequired()
		}
	}

	ch.Close()

	if enabledMux {
		if s.hooks.DisableCMUX != nil {
			s.hooks.DisableCMUX()
		} else {
			s.mux.Disable()
		}
	}
	if s.hooks.ResumeDataLineWake != nil {
		s.hooks.ResumeDataLineWake()
	}
	return nil
}

func (s *Sequencer) waitTerminateAck(ch *cmux.Channel) bool {
	deadline := time.After(s.caps.PPPHangupWait)
	var buf []byte
	scratch := make([]byte, 64)
	for {
		select {
		case <-ch.Readable():
		case <-deadline:
			return false
		}
		for {
			n, _ := ch.Read(scratch)
			if n == 0 {
				break
			}
			buf = append(buf, scratch[:n]...)
		}
		if bytes.HasPrefix(buf, lcpTerminateAck) {
			return true
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
