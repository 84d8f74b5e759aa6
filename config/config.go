// Package config decodes the device-open configuration surface (spec §6):
// module type, UART device/baud, GPIO pin assignments, and the handful of
// behavioral overrides a caller may set before Open. Grounded on
// `services/config/config.go`'s use of `github.com/andreyvit/tinyjson`,
// the teacher's flash-constrained micro-decoder, chosen there (and kept
// here) to avoid pulling in `encoding/json`'s reflection-heavy runtime.
package config

import (
	"errors"

	"github.com/andreyvit/tinyjson"

	"github.com/jangala-dev/ubxmodem-go/moduletype"
)

// Config is the full set of parameters needed to bring a modem instance up.
type Config struct {
	ModuleType moduletype.Type

	Device   string // UART device path (Linux) or platform UART selector
	BaudRate uint32

	PowerEnablePin int // drives the module's power-enable rail
	PowerOnPin     int // momentary power-on/off pulse pin
	VIntPin        int // module "alive" sense input

	// LeavePowerAlone skips the power-on sequence entirely, for a module
	// that is already running (e.g. warm-attached during development).
	LeavePowerAlone bool

	ATBufferSize int // RX ring size for the AT client's staging buffer
	CMUXMaxFrame int // 0 uses the module's capability-table default

	HardwareFlowControl bool
}

// defaults fills zero-valued fields not meaningfully defaultable from the
// module's capability row alone (buffer sizing, which is a host resource
// choice, not a module behavior).
func (c *Config) defaults() {
	if c.ATBufferSize == 0 {
		c.ATBufferSize = 4096
	}
}

// Decode parses a JSON document (as emitted onto the teacher's config bus
// topic, or read from a file) into a Config.
func Decode(raw []byte) (Config, error) {
	if len(raw) == 0 {
		return Config{}, errors.New("config: empty document")
	}
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()
	m, ok := val.(map[string]any)
	if !ok {
		return Config{}, errors.New("config: document is not a JSON object")
	}

	var c Config
	c.ModuleType = moduletype.Type(stringField(m, "module_type"))
	c.Device = stringField(m, "device")
	c.BaudRate = uint32(intField(m, "baud_rate"))
	c.PowerEnablePin = intField(m, "power_enable_pin")
	c.PowerOnPin = intField(m, "power_on_pin")
	c.VIntPin = intField(m, "vint_pin")
	c.LeavePowerAlone = boolField(m, "leave_power_alone")
	c.ATBufferSize = intField(m, "at_buffer_size")
	c.CMUXMaxFrame = intField(m, "cmux_max_frame")
	c.HardwareFlowControl = boolField(m, "hardware_flow_control")
	c.defaults()

	if _, ok := moduletype.Lookup(c.ModuleType); !ok {
		return Config{}, errors.New("config: unknown module_type " + string(c.ModuleType))
	}
	return c, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
