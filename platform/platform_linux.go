//go:build linux

package platform

import (
	"github.com/jangala-dev/ubxmodem-go/port"
	"github.com/jangala-dev/ubxmodem-go/power"
)

type linuxPinFactory struct{}

func (linuxPinFactory) ByNumber(n int) (power.EdgeWatchPin, error) {
	return power.OpenLinuxPin(n)
}

type linuxUARTFactory struct{}

func (linuxUARTFactory) Open(cfg port.Config) (port.Port, error) {
	return port.OpenUART(cfg)
}

// Default returns the real Linux GPIO (periph.io) and UART (goserial)
// realizations, grounded on the same split the teacher uses for its
// factories_linux.go.
func Default() Platform {
	return Platform{Pins: linuxPinFactory{}, UART: linuxUARTFactory{}}
}
