//go:build tinygo

package platform

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"github.com/jangala-dev/ubxmodem-go/port"
	"github.com/jangala-dev/ubxmodem-go/power"
)

// rp2Pin adapts machine.Pin to power.EdgeWatchPin, grounded on the teacher's
// factories_rp2xxx.go rp2Pin/SetIRQ shape.
type rp2Pin struct{ p machine.Pin }

func (p rp2Pin) ConfigureInput(pull power.Pull) error {
	p.p.Configure(machine.PinConfig{Mode: toPinMode(pull)})
	return nil
}

func (p rp2Pin) ConfigureOutput(initial bool) error {
	p.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.p.Set(initial)
	return nil
}

func (p rp2Pin) Set(level bool) { p.p.Set(level) }
func (p rp2Pin) Get() bool      { return p.p.Get() }

func (p rp2Pin) SetEdgeWatch(edge power.Edge, handler func()) error {
	return p.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (p rp2Pin) ClearEdgeWatch() error {
	return p.p.SetInterrupt(0, nil)
}

func toPinMode(pull power.Pull) machine.PinMode {
	switch pull {
	case power.PullUp:
		return machine.PinInputPullup
	case power.PullDown:
		return machine.PinInputPulldown
	default:
		return machine.PinInput
	}
}

func toPinChange(e power.Edge) machine.PinChange {
	switch e {
	case power.EdgeRising:
		return machine.PinRising
	case power.EdgeFalling:
		return machine.PinFalling
	case power.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (power.EdgeWatchPin, error) {
	return rp2Pin{p: machine.Pin(n)}, nil
}

type rp2UARTFactory struct{}

// Open resolves cfg.Device ("uart0"/"uart1") to a pre-configured uartx.UART,
// applying cfg.BaudRate, and wraps it with port.OpenUARTHardware. Pin muxing
// for the chosen UART is board-default, matching the teacher's
// DefaultUARTFactory ("pins/baud configured by device adaptors").
func (rp2UARTFactory) Open(cfg port.Config) (port.Port, error) {
	var hw *uartx.UART
	switch cfg.Device {
	case "uart1":
		hw = uartx.UART1
	default:
		hw = uartx.UART0
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 115200
	}
	if err := hw.Configure(uartx.UARTConfig{BaudRate: baud}); err != nil {
		return nil, err
	}
	return port.OpenUARTHardware(hw), nil
}

// Default returns the RP2xxx GPIO and UART realizations.
func Default() Platform {
	return Platform{Pins: rp2PinFactory{}, UART: rp2UARTFactory{}}
}
