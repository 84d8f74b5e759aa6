package config

import "testing"

func TestDecodeValidDocument(t *testing.T) {
	raw := []byte(`{
		"module_type": "SARA-R410M-02B",
		"device": "/dev/ttyUSB0",
		"baud_rate": 115200,
		"power_enable_pin": 4,
		"power_on_pin": 5,
		"vint_pin": 6,
		"hardware_flow_control": true
	}`)
	c, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Device != "/dev/ttyUSB0" || c.BaudRate != 115200 {
		t.Fatalf("got %+v", c)
	}
	if c.ATBufferSize != 4096 {
		t.Fatalf("ATBufferSize default = %d, want 4096", c.ATBufferSize)
	}
	if !c.HardwareFlowControl {
		t.Fatal("hardware_flow_control not decoded")
	}
}

func TestDecodeUnknownModuleType(t *testing.T) {
	raw := []byte(`{"module_type": "NOT-A-MODULE", "device": "/dev/ttyUSB0"}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("Decode succeeded for unknown module_type")
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("Decode succeeded for empty document")
	}
}
