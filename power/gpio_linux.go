//go:build linux

package power

import (
	"errors"

	"github.com/jangala-dev/ubxmodem-go/x/fmtx"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// hostInit runs periph.io's host.Init exactly once per process, grounded on
// seedhammer's wshat.go driver doing the same before touching any pin.
var hostInitErr error
var hostInitDone bool

func ensureHostInit() error {
	if hostInitDone {
		return hostInitErr
	}
	_, hostInitErr = host.Init()
	hostInitDone = true
	return hostInitErr
}

// LinuxPin is a GPIOPin/EdgeWatchPin realization over a periph.io gpio.PinIO,
// looked up by Linux GPIO number via gpioreg (the same registry wshat.go's
// bcm283x pin constants resolve through).
type LinuxPin struct {
	pin gpio.PinIO
}

// OpenLinuxPin resolves a GPIO line by number to a driveable/readable pin.
func OpenLinuxPin(number int) (*LinuxPin, error) {
	if err := ensureHostInit(); err != nil {
		return nil, fmtx.Errorf("power: gpio host init: %w", err)
	}
	p := gpioreg.ByName(fmtx.Sprintf("GPIO%d", number))
	if p == nil {
		return nil, fmtx.Errorf("power: no such gpio line %d", number)
	}
	return &LinuxPin{pin: p}, nil
}

func (p *LinuxPin) ConfigureInput(pull Pull) error {
	return p.pin.In(toPeriphPull(pull), gpio.NoEdge)
}

func (p *LinuxPin) ConfigureOutput(initial bool) error {
	return p.pin.Out(gpio.Level(initial))
}

func (p *LinuxPin) Set(level bool) { p.pin.Out(gpio.Level(level)) }

func (p *LinuxPin) Get() bool { return p.pin.Read() == gpio.High }

// SetEdgeWatch configures the pin as an interrupt input and runs a watcher
// goroutine that calls handler on each matching edge, grounded on wshat.go's
// WaitForEdge polling loop.
func (p *LinuxPin) SetEdgeWatch(edge Edge, handler func()) error {
	if handler == nil {
		return errors.New("power: nil edge handler")
	}
	if err := p.pin.In(gpio.PullUp, toPeriphEdge(edge)); err != nil {
		return err
	}
	go func() {
		for p.pin.WaitForEdge(-1) {
			handler()
		}
	}()
	return nil
}

func (p *LinuxPin) ClearEdgeWatch() error {
	return p.pin.In(gpio.PullNoChange, gpio.NoEdge)
}

func toPeriphPull(p Pull) gpio.Pull {
	switch p {
	case PullUp:
		return gpio.PullUp
	case PullDown:
		return gpio.PullDown
	default:
		return gpio.PullNoChange
	}
}

func toPeriphEdge(e Edge) gpio.Edge {
	switch e {
	case EdgeRising:
		return gpio.RisingEdge
	case EdgeFalling:
		return gpio.FallingEdge
	case EdgeBoth:
		return gpio.BothEdges
	default:
		return gpio.NoEdge
	}
}
