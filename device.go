// Package ubxmodem is the public façade of the modem core: Open/Close wires
// a device's AT client, power controller, CMUX multiplexer and PPP
// sequencer together per spec §3's device instance, keyed into the
// process-wide registry by an opaque Handle. Grounded on main.go's
// top-level orchestration shape (construct sub-objects, wire them, run),
// generalized away from the teacher's board-specific thermal/power-rail
// logic toward the device lifecycle spec §3 describes.
package ubxmodem

import (
	"context"
	"log"
	"sync"

	"github.com/jangala-dev/ubxmodem-go/atclient"
	"github.com/jangala-dev/ubxmodem-go/bus"
	"github.com/jangala-dev/ubxmodem-go/cmux"
	"github.com/jangala-dev/ubxmodem-go/config"
	"github.com/jangala-dev/ubxmodem-go/errcode"
	"github.com/jangala-dev/ubxmodem-go/intercept"
	"github.com/jangala-dev/ubxmodem-go/moduletype"
	"github.com/jangala-dev/ubxmodem-go/platform"
	"github.com/jangala-dev/ubxmodem-go/port"
	"github.com/jangala-dev/ubxmodem-go/power"
	"github.com/jangala-dev/ubxmodem-go/ppp"
	"github.com/jangala-dev/ubxmodem-go/registry"
	"github.com/jangala-dev/ubxmodem-go/x/strx"
)

// defaultDevice is the serial device path assumed when cfg.Device is empty,
// matching the AT/NMEA port most u-blox modules expose by default.
const defaultDevice = "/dev/ttyUSB2"

// Bus is the process-wide retained-message bus devices publish lifecycle,
// network-state and deep-sleep transitions onto (spec §3's upper-layer
// feature modules are the expected subscribers; they sit outside this
// module's scope but need somewhere to listen without polling).
var Bus = bus.NewBus(8)

var reg = registry.New()

// Topic prefixes under Bus. A device publishes under T("device", handle, ...).
const (
	topicState    = "state"
	topicNetwork  = "network"
	topicSleep    = "sleep"
	topicReboot   = "reboot_required"
)

// Handle re-exports registry.Handle as the public device identifier.
type Handle = registry.Handle

// Device is one physical modem instance: the AT client, optional CMUX
// multiplexer and PPP sequencer, power controller, capability row and pin
// set, plus the dynamic network/deep-sleep state spec §3 describes. Owned
// by the package-level registry; obtained via Open, released via Close.
type Device struct {
	handle Handle
	cfg    config.Config
	caps   moduletype.Capabilities

	plat platform.Platform
	uart port.Port
	pins power.Pins

	mu        sync.Mutex
	client    *atclient.Client
	powerCtrl *power.Controller
	wakeCtrl  *power.WakeController
	cfunGate  *power.CFUNGate
	mux       *cmux.Mux
	atCh      *cmux.Channel
	cmuxUp    bool

	pppSeq *ppp.Sequencer

	network networkState
	reboot  bool
}

// networkState is the §3 "dynamic network state": registration status per
// domain, active RAT, and the handful of radio measurements upper-layer
// code polls for. Updated exclusively from URC handlers, which is why it is
// guarded by Device.mu rather than the AT client's own lock.
type networkState struct {
	csReg  RegStatus
	psReg  RegStatus
	rssi   int
	haveRF bool
}

// RegStatus mirrors 3GPP registration status codes (+CREG/+CEREG) closely
// enough for IsRegistered to answer correctly without reproducing the full
// enumeration upper-layer network modules would need.
type RegStatus int

const (
	RegUnknown RegStatus = iota
	RegNotRegistered
	RegSearching
	RegDenied
	RegHome
	RegUnknownStatus
	RegRoaming
)

func regStatusFromCode(n int) RegStatus {
	switch n {
	case 0:
		return RegNotRegistered
	case 1:
		return RegHome
	case 2:
		return RegSearching
	case 3:
		return RegDenied
	case 4:
		return RegUnknownStatus
	case 5:
		return RegRoaming
	default:
		return RegUnknown
	}
}

func (s RegStatus) registered() bool { return s == RegHome || s == RegRoaming }

// Open brings a device instance up per spec §3 "Lifecycle": binds the
// capability row, opens the UART and pins via the given Platform (zero
// value resolves to platform.Default()), constructs the AT client and power
// controller, and (unless cfg.LeavePowerAlone) runs the power-on sequence.
func Open(cfg config.Config, plat platform.Platform) (Handle, error) {
	caps, ok := moduletype.Lookup(cfg.ModuleType)
	if !ok {
		return 0, &errcode.E{C: errcode.InvalidParam, Op: "device.open", Msg: "unknown module type"}
	}
	if cfg.CMUXMaxFrame > 0 {
		caps.CMUXMaxFrame = cfg.CMUXMaxFrame
	}
	if plat.Pins == nil || plat.UART == nil {
		plat = platform.Default()
	}

	d := &Device{cfg: cfg, caps: caps, plat: plat}

	uartPort, err := plat.UART.Open(port.Config{
		Device:     strx.Coalesce(cfg.Device, defaultDevice),
		BaudRate:   pick(cfg.BaudRate, 115200),
		RXBufSize:  pick32(cfg.ATBufferSize, 4096),
		HWFlowCtrl: cfg.HardwareFlowControl,
	})
	if err != nil {
		return 0, err
	}
	d.uart = uartPort

	pins, err := openPins(plat, cfg)
	if err != nil {
		uartPort.Close()
		return 0, err
	}
	d.pins = pins

	d.powerCtrl = power.New(caps, pins)
	d.cfunGate = power.NewCFUNGate(caps.MinCFUNGap, caps.CFUNExtTimeout)

	d.client = d.newClient(uartPort)
	d.wireWakeAndURCs()

	if !cfg.LeavePowerAlone {
		if err := d.powerCtrl.PowerOn(context.Background(), d.probeAT); err != nil {
			d.client.Close()
			uartPort.Close()
			return 0, err
		}
	}

	d.handle = reg.Add(d)
	Bus.Publish(Bus.NewMessage(bus.T("device", d.handle, topicState), "open", true))
	return d.handle, nil
}

func pick(v, def uint32) uint32 {
	if v == 0 {
		return def
	}
	return v
}

func pick32(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func openPins(plat platform.Platform, cfg config.Config) (power.Pins, error) {
	enable, err := optionalPin(plat, cfg.PowerEnablePin)
	if err != nil {
		return power.Pins{}, err
	}
	powerOn, err := optionalPin(plat, cfg.PowerOnPin)
	if err != nil {
		return power.Pins{}, err
	}
	vint, err := optionalPin(plat, cfg.VIntPin)
	if err != nil {
		return power.Pins{}, err
	}
	return power.Pins{Enable: enable, PowerOn: powerOn, VInt: vint}, nil
}

// optionalPin resolves n via plat.Pins, treating the sentinel 0 (no config
// field may legitimately name GPIO 0 as one of these three roles on the
// modules this core targets) as power.NoPin, per spec §6 "any pin may be
// absent".
func optionalPin(plat platform.Platform, n int) (power.EdgeWatchPin, error) {
	if n == 0 {
		return power.NoPin, nil
	}
	return plat.Pins.ByNumber(n)
}

// newClient constructs an atclient.Client over p with this device's
// configured pipeline and timeouts, but no wake hook yet (wireWakeAndURCs
// installs it once the client exists, since WakeController.Attach needs a
// live Client to register its URC handler on).
func (d *Device) newClient(p port.Port) *atclient.Client {
	return atclient.New(atclient.Config{
		Port:           p,
		Pipeline:       intercept.Identity(),
		DefaultTimeout: d.caps.ATResponseTimeout,
	})
}

// wireWakeAndURCs attaches the power package's wake-on-tx hook and registers
// the device's own network-registration URC handlers. Called once after any
// (re)construction of d.client — plain Open, CMUX enable, and CMUX disable
// each build a fresh Client bound to a different port.Port.
func (d *Device) wireWakeAndURCs() {
	wc, wakeFn := power.Attach(d.powerCtrl, d.client)
	d.wakeCtrl = wc
	d.client.SetWake(wakeFn)
	d.client.URCHandlerSet("+CREG:", d.handleCREG)
	d.client.URCHandlerSet("+CEREG:", d.handleCEREG)
}

// probeAT is the power controller's post-power-on responsiveness check: a
// bare "AT" with the module's configured response timeout.
func (d *Device) probeAT(ctx context.Context) error {
	if err := d.client.Lock(); err != nil {
		return err
	}
	defer d.client.Unlock()
	d.client.CommandStart("AT")
	if err := d.client.CommandStop(); err != nil {
		return err
	}
	if err := d.client.ResponseStart(""); err != nil {
		return err
	}
	return d.client.ResponseStop()
}

func (d *Device) handleCREG(f *atclient.URCFields) {
	stat := f.ReadInt()
	d.mu.Lock()
	d.network.csReg = regStatusFromCode(stat)
	d.mu.Unlock()
	d.client.Callback(func(any) {
		Bus.Publish(Bus.NewMessage(bus.T("device", d.handle, topicNetwork, "cs"), stat, true))
	}, nil)
}

func (d *Device) handleCEREG(f *atclient.URCFields) {
	stat := f.ReadInt()
	d.mu.Lock()
	d.network.psReg = regStatusFromCode(stat)
	d.mu.Unlock()
	d.client.Callback(func(any) {
		Bus.Publish(Bus.NewMessage(bus.T("device", d.handle, topicNetwork, "ps"), stat, true))
	}, nil)
}

// IsRegistered reports whether either the CS or PS domain last reported a
// home or roaming registration (spec §8 property #7). OpenPPP checks the PS
// domain alone.
func (d *Device) IsRegistered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.network.csReg.registered() || d.network.psReg.registered()
}

// RebootRequired reports whether a prior shutdown sequence (power-off or
// PPP teardown) failed to confirm the module actually went down, per spec
// §7's "set reboot_required so the next power-on can force a hard reset."
func (d *Device) RebootRequired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reboot
}

func (d *Device) setRebootRequired() {
	d.mu.Lock()
	already := d.reboot
	d.reboot = true
	d.mu.Unlock()
	if !already {
		log.Printf("device: reboot required for handle %d", d.handle)
		Bus.Publish(Bus.NewMessage(bus.T("device", d.handle, topicReboot), true, true))
	}
}

// SetCFUN issues AT+CFUN=<target>, honoring the module's minimum inter-flip
// gap (spec §4.G, §8 property #6).
func (d *Device) SetCFUN(target int) error {
	return d.cfunGate.Set(d.client, target)
}

// PowerOn runs the module's power-on sequence if it is not already
// considered on; per spec §8 it is a no-op returning success when the
// module is already powered.
func (d *Device) PowerOn(ctx context.Context) error {
	err := d.powerCtrl.PowerOn(ctx, d.probeAT)
	if err == nil {
		Bus.Publish(Bus.NewMessage(bus.T("device", d.handle, topicState), "on", true))
	}
	return err
}

// PowerOff runs AT+CPWROFF, falling back to the pin-pulse sequence. On
// failure to confirm power-down it sets RebootRequired rather than
// returning silently (spec §7).
func (d *Device) PowerOff(ctx context.Context) error {
	err := d.powerCtrl.PowerOff(ctx, d.client)
	if err != nil && errcode.Of(err) == errcode.TemporaryFailure {
		d.setRebootRequired()
	}
	if err == nil {
		Bus.Publish(Bus.NewMessage(bus.T("device", d.handle, topicState), "off", true))
	}
	return err
}

// Client exposes the current AT client, valid until the next CMUX
// enable/disable transition (each of which rebuilds it over a different
// port.Port). Upper-layer feature modules hold this only transiently,
// around a single locked transaction.
func (d *Device) Client() *atclient.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client
}

// Close tears the device down in reverse lifecycle order: PPP first (if
// open), then CMUX, then the AT client and UART. It does not touch the
// registry: CloseDevice removes the handle, and the registry calls Close
// once the last outstanding Ref is released (spec §3 "freeing contexts only
// after their callbacks have been removed").
func (d *Device) Close() error {
	d.mu.Lock()
	pppSeq := d.pppSeq
	cmuxUp := d.cmuxUp
	client := d.client
	uartPort := d.uart
	d.mu.Unlock()

	if pppSeq != nil {
		pppSeq.Close(true)
	}
	if cmuxUp {
		d.DisableCMUX()
	}
	client.Close()
	return uartPort.Close()
}

// CloseDevice removes h from the registry and releases its resources once
// any in-flight reference has drained (registry.Remove semantics).
func CloseDevice(h Handle) bool {
	return reg.Remove(h)
}

// Lookup resolves h to its Device, incrementing its reference count. The
// caller must call Ref.Release when done (registry semantics, spec §3's
// "lookups under the registry mutex never race with destruction").
func Lookup(h Handle) (*Device, *registry.Ref, bool) {
	ref, ok := reg.Acquire(h)
	if !ok {
		return nil, nil, false
	}
	return ref.Value().(*Device), ref, true
}
