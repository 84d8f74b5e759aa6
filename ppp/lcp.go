package ppp

// lcpTerminateRequest is the fixed 29-byte LCP Terminate-Request frame sent
// over the PPP channel on a non-graceful Close. It is a canned byte string
// rather than assembled field-by-field because the sequencer talks PPP at
// the single-frame level only (spec §4.H: "lightweight lock-free send/
// expect, NOT through a full LCP state machine").
var lcpTerminateRequest = []byte{
	0x7E, 0xFF, 0x7D, 0x23, 0xC0, 0x21, 0x7D, 0x25,
	0x7D, 0x22, 0x7D, 0x20, 0x7D, 0x30, 0x00, 0x04,
	0x7D, 0x70, 0x7D, 0x71, 0x7D, 0x20, 0x7D, 0x20,
	0x7D, 0x20, 0x7D, 0x27, 0x7E,
}

// lcpTerminateAck is the 8-byte prefix the sequencer waits for in reply;
// the full ack frame carries an identifier echo the sequencer doesn't
// validate (any ack is treated as a clean hangup).
var lcpTerminateAck = []byte{
	0x7E, 0xFF, 0x7D, 0x23, 0xC0, 0x21, 0x7D, 0x26,
}
