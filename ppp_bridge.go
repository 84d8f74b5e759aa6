package ubxmodem

import (
	"context"

	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/ppp"
)

// OpenPPP brings up a PPP session on this device's reserved PPP CMUX
// channel (spec §4.H): it checks packet-switched registration, brings CMUX
// up if needed, dials apn, and blocks for CONNECT/ERROR. rx receives PPP
// bytes as they arrive; it may be nil if the caller only wants Close
// semantics (unlikely in practice, but spec places no requirement on it).
func (d *Device) OpenPPP(ctx context.Context, apn string, rx ppp.RXFunc) error {
	if !d.caps.Features.PPP {
		return &errcode.E{C: errcode.NotSupported, Op: "device.ppp_open"}
	}
	// Checked here, ahead of any CMUX bring-up: a caller that dials while
	// not registered must see CMUX state untouched, not just get an error
	// after the mux has already come up as a side effect.
	psRegistered := func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.network.psReg.registered()
	}
	if !psRegistered() {
		return &errcode.E{C: errcode.NotRegistered, Op: "device.ppp_open"}
	}

	d.mu.Lock()
	seq := d.pppSeq
	muxMissing := d.mux == nil
	d.mu.Unlock()

	if muxMissing {
		// ppp.Sequencer binds to a live *cmux.Mux at construction; the Mux
		// itself must not exist before AT+CMUX is acknowledged (its demux
		// goroutine would start reading HDLC frames off a link still in
		// plain AT mode), so bring CMUX fully up first.
		if err := d.EnableCMUX(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	if seq == nil {
		seq = ppp.New(d.mux, d.caps, ppp.Hooks{
			IsRegistered:        psRegistered,
			SetRebootRequired:   d.setRebootRequired,
			SuspendDataLineWake: d.suspendDataLineWake,
			ResumeDataLineWake:  d.resumeDataLineWake,
			EnableCMUX:          d.enableCMUXForPPP,
			DisableCMUX:         func() { d.DisableCMUX() },
		})
		d.pppSeq = seq
	}
	d.mu.Unlock()

	seq.SetReceiver(rx)
	return seq.Open(ctx, apn)
}

// TransmitPPP writes p verbatim to the open PPP channel.
func (d *Device) TransmitPPP(p []byte) (int, error) {
	d.mu.Lock()
	seq := d.pppSeq
	d.mu.Unlock()
	if seq == nil {
		return 0, &errcode.E{C: errcode.NotConnected, Op: "device.ppp_transmit"}
	}
	return seq.Transmit(p)
}

// ClosePPP tears the PPP session down (spec §4.H step 10). terminate sends
// the fixed LCP terminate-request and waits for its ack, per spec §8
// scenario 6, setting RebootRequired on timeout.
func (d *Device) ClosePPP(terminate bool) error {
	d.mu.Lock()
	seq := d.pppSeq
	d.mu.Unlock()
	if seq == nil {
		return nil
	}
	return seq.Close(terminate)
}

// suspendDataLineWake disables the module's DTR/data-line wake-up power
// saving for the duration of a PPP session (spec §4.H step 4: "it
// interferes with PPP framing"). +UPSV mode 0 disables UART power saving
// entirely. Modules without Features.PowerProfile are skipped without
// sending anything; the sequencer discards the returned error without
// logging it.
func (d *Device) suspendDataLineWake() error {
	if !d.caps.Features.PowerProfile {
		return nil
	}
	return d.setUPSV(0)
}

// resumeDataLineWake restores the module's normal UART power-saving mode
// (+UPSV=1, the default DTR-gated mode) once a PPP session ends.
func (d *Device) resumeDataLineWake() error {
	if !d.caps.Features.PowerProfile {
		return nil
	}
	return d.setUPSV(1)
}

func (d *Device) setUPSV(mode int) error {
	client := d.Client()
	if err := client.Lock(); err != nil {
		return err
	}
	defer client.Unlock()
	client.CommandStart("AT+UPSV")
	client.WriteInt(mode)
	if err := client.CommandStop(); err != nil {
		return err
	}
	if err := client.ResponseStart(""); err != nil {
		return err
	}
	return client.ResponseStop()
}
