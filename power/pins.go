// Package power implements the pin-sequenced power/sleep controller of
// spec §4.G: power-on/off sequencing, minimum-gap-enforced CFUN
// transitions, the wake-on-tx hook, and the deep-sleep state machine.
// Pin and GPIO abstractions are generalized from the teacher's
// `services/hal/internal/halcore` types (GPIOPin/IRQPin/Edge), kept as
// the same narrow interfaces: a platform realization implements
// Set/Get/ConfigureInput/ConfigureOutput, plus SetEdgeWatch/ClearEdgeWatch
// since platform.PinFactory hands out an EdgeWatchPin for every role.
package power

// Pull selects the input pull resistor for ConfigureInput.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selects which transitions SetEdgeWatch reports.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIOPin is the minimal pin contract the power sequencer needs: configure
// as input or output, drive or read a level.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
}

// EdgeWatchPin extends GPIOPin with edge-triggered notification, used for
// vint's "module went off" detection in the deep-sleep state machine.
type EdgeWatchPin interface {
	GPIOPin
	SetEdgeWatch(edge Edge, handler func()) error
	ClearEdgeWatch() error
}

// noPin is the sentinel "not wired" pin: every operation is a silent
// no-op, for a module config that omits an optional pin (e.g. no separate
// power-on pin, only enable + vint).
type noPin struct{}

func (noPin) ConfigureInput(Pull) error   { return nil }
func (noPin) ConfigureOutput(bool) error  { return nil }
func (noPin) Set(bool)                   {}
func (noPin) Get() bool                  { return false }
func (noPin) SetEdgeWatch(Edge, func()) error { return nil }
func (noPin) ClearEdgeWatch() error      { return nil }

// NoPin is the shared sentinel "pin not present" value.
var NoPin EdgeWatchPin = noPin{}
