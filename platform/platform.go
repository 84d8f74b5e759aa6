// Package platform resolves the device package's configuration surface
// (a UART device string, a baud rate, three GPIO pin numbers) to live
// port.Port and power.EdgeWatchPin objects. Generalized from the teacher's
// services/hal/internal/platform factories_*.go split: one file per build
// target providing DefaultPinFactory/DefaultUARTFactory, selected at
// compile time rather than by runtime probing.
package platform

import (
	"github.com/jangala-dev/ubxmodem-go/port"
	"github.com/jangala-dev/ubxmodem-go/power"
)

// PinFactory resolves a GPIO line number to a pin the power controller can
// drive (enable/power-on) or watch (vint). Implementations must return the
// same pin instance for the same number across calls.
type PinFactory interface {
	ByNumber(n int) (power.EdgeWatchPin, error)
}

// UARTFactory opens the physical transport to the module.
type UARTFactory interface {
	Open(cfg port.Config) (port.Port, error)
}

// Platform bundles the two factories Device.Open needs. A nil field in the
// config.Config-driven Open call resolves to Default().
type Platform struct {
	Pins PinFactory
	UART UARTFactory
}
