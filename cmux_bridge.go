package ubxmodem

import (
	"time"

	"github.com/jangala-dev/ubxmodem-go/cmux"
	"github.com/jangala-dev/ubxmodem-go/errcode"
)

// cmuxT1 is the 27.010 control-frame acknowledgment timeout used for the
// SABM/DISC handshakes this device drives directly, distinct from the AT
// client's own per-transaction timeout.
const cmuxT1 = 300 * time.Millisecond

// EnableCMUX brings up the 3GPP TS 27.010 basic-mode multiplexer over this
// device's UART (spec §4.E "Enable") and re-homes the AT client onto the
// module's reserved AT channel, so upper-layer code sees no interruption
// beyond the round-trip itself. Idempotent: a device that already has CMUX
// up returns nil immediately (spec §8 round-trip property).
func (d *Device) EnableCMUX() error {
	d.mu.Lock()
	already := d.cmuxUp
	d.mu.Unlock()
	if already {
		return nil
	}
	if !d.caps.Features.CMUX {
		return &errcode.E{C: errcode.NotSupported, Op: "device.cmux_enable"}
	}

	client := d.Client()
	if err := client.Lock(); err != nil {
		return err
	}
	client.CommandStart("AT+CMUX")
	client.WriteInt(0) // mode: basic
	client.WriteInt(0) // subset: UIH frames only
	client.WriteInt(5) // T1, hundreds of ms
	client.WriteInt(d.caps.CMUXMaxFrame)
	if err := client.CommandStop(); err != nil {
		client.Unlock()
		return err
	}
	if err := client.ResponseStart(""); err != nil {
		client.Unlock()
		return err
	}
	err := client.ResponseStop()
	client.Unlock()
	if err != nil {
		return err
	}

	// From here the physical link carries HDLC framing; the AT client's
	// rxLoop must stop consuming raw bytes before the multiplexer's own
	// demux goroutine starts doing so on the same port.
	client.Close()

	m := cmux.New(cmux.Config{
		Port:      d.uart,
		FrameSize: d.caps.CMUXMaxFrame,
		T1:        cmuxT1,
		Retries:   3,
	})
	if err := m.Enable(); err != nil {
		m.Close()
		d.revertToDirectUART()
		return err
	}
	atCh, err := m.OpenChannel(byte(d.caps.CMUXATChannel))
	if err != nil {
		m.Disable()
		m.Close()
		d.revertToDirectUART()
		return err
	}

	d.mu.Lock()
	d.mux = m
	d.atCh = atCh
	d.client = d.newClient(atCh)
	d.cmuxUp = true
	d.mu.Unlock()
	d.wireWakeAndURCs()
	return nil
}

// DisableCMUX closes the control channel (dropping every open logical
// channel per cmux.Mux.Disable) and re-homes the AT client back onto the
// direct UART (spec §4.E "Disable"). A no-op if CMUX is not currently up.
func (d *Device) DisableCMUX() error {
	d.mu.Lock()
	if !d.cmuxUp {
		d.mu.Unlock()
		return nil
	}
	m := d.mux
	atCh := d.atCh
	client := d.client
	d.mu.Unlock()

	client.Close()
	if atCh != nil {
		atCh.Close()
	}
	err := m.Disable()
	m.Close()

	d.revertToDirectUART()
	return err
}

// revertToDirectUART rebuilds the AT client over the raw UART port and
// re-wires its wake hook and network URC handlers, used both by a clean
// DisableCMUX and by EnableCMUX's own failure paths.
func (d *Device) revertToDirectUART() {
	d.mu.Lock()
	d.mux = nil
	d.atCh = nil
	d.cmuxUp = false
	d.client = d.newClient(d.uart)
	d.mu.Unlock()
	d.wireWakeAndURCs()
}

// enableCMUXForPPP is installed as ppp.Hooks.EnableCMUX: it reports whether
// this call is the one that actually brought CMUX up, so Sequencer.Close
// only tears it down again when it wasn't already up for AT's sake.
func (d *Device) enableCMUXForPPP() (enabledByUs bool, err error) {
	d.mu.Lock()
	already := d.cmuxUp
	d.mu.Unlock()
	if already {
		return false, nil
	}
	if err := d.EnableCMUX(); err != nil {
		return false, err
	}
	return true, nil
}
