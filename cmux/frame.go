// Package cmux implements the 3GPP TS 27.010 basic-mode multiplexer (spec
// §4.E): HDLC-style framing with CRC-8 FCS over one physical UART, per-
// channel flow control, and dynamic channel open/close. A Channel
// implements port.Port directly (structurally, without importing port) so
// the AT client runs unmodified whether it talks to a direct UART or a
// CMUX logical channel.
package cmux

const flag byte = 0xF9

// Frame types: the control octet with the P/F bit (0x10) cleared.
type frameType byte

const (
	typeSABM frameType = 0x2F
	typeUA   frameType = 0x63
	typeDM   frameType = 0x0F
	typeDISC frameType = 0x43
	typeUIH  frameType = 0xEF
)

const pfBit = 0x10

type frame struct {
	addr    byte // DLCI, 0 = control channel
	cr      bool // command/response bit
	typ     frameType
	pf      bool
	payload []byte
}

// ctrlByte returns a wire control octet combining the frame type and the
// P/F bit.
func (f frame) ctrlByte() byte {
	b := byte(f.typ)
	if f.pf {
		b |= pfBit
	}
	return b
}

func typeOf(ctrl byte) (frameType, bool) {
	switch frameType(ctrl &^ pfBit) {
	case typeSABM:
		return typeSABM, true
	case typeUA:
		return typeUA, true
	case typeDM:
		return typeDM, true
	case typeDISC:
		return typeDISC, true
	case typeUIH:
		return typeUIH, true
	default:
		return 0, false
	}
}

// encodeAddr packs DLCI and C/R into the single-octet address field (basic
// mode never needs a multi-channel extended address: DLCI fits in 6 bits).
func encodeAddr(dlci byte, cr bool) byte {
	b := byte(1) // EA=1, single octet
	if cr {
		b |= 0x02
	}
	b |= dlci << 2
	return b
}

func decodeAddr(b byte) (dlci byte, cr bool) {
	return b >> 2, b&0x02 != 0
}

// encodeLength returns the EA-extended length field for n bytes of payload.
func encodeLength(n int) []byte {
	if n < 128 {
		return []byte{byte(n<<1) | 1}
	}
	return []byte{byte((n & 0x7F) << 1), byte(((n >> 7) << 1) | 1)}
}

// decodeLength parses an EA-extended length field starting at b[0],
// returning the length, the number of octets consumed, and ok=false if b
// is too short to contain a complete length field.
func decodeLength(b []byte) (n int, consumed int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	if b[0]&1 == 1 {
		return int(b[0] >> 1), 1, true
	}
	if len(b) < 2 {
		return 0, 0, false
	}
	lo := int(b[0] >> 1)
	hi := int(b[1] >> 1)
	return lo | (hi << 7), 2, true
}

// encode serializes f into a complete wire frame including flag bytes.
// FCS covers ADDR+CTRL+LEN for all frame types except UIH, which covers
// only ADDR+CTRL (spec §4.E).
func (f frame) encode() []byte {
	addr := encodeAddr(f.addr, f.cr)
	ctrl := f.ctrlByte()
	length := encodeLength(len(f.payload))

	fcsInput := make([]byte, 0, 2+len(length))
	fcsInput = append(fcsInput, addr, ctrl)
	if f.typ != typeUIH {
		fcsInput = append(fcsInput, length...)
	}
	fcs := computeFCS(fcsInput)

	out := make([]byte, 0, 4+len(length)+len(f.payload)+2)
	out = append(out, flag, addr, ctrl)
	out = append(out, length...)
	out = append(out, f.payload...)
	out = append(out, fcs, flag)
	return out
}

// decodeFrame parses one complete frame (flag-delimited, flags excluded)
// from b. ok is false on a structurally short buffer; fcsValid is false
// when the frame is well-formed but the FCS does not check out (the caller
// drops such a frame without perturbing subsequent parsing; no count of
// dropped frames is kept).
func decodeFrame(b []byte) (f frame, fcsValid bool, ok bool) {
	if len(b) < 3 {
		return frame{}, false, false
	}
	addr, cr := decodeAddr(b[0])
	ctrl := b[1]
	typ, known := typeOf(ctrl)
	if !known {
		return frame{}, false, false
	}
	pf := ctrl&pfBit != 0

	rest := b[2:]
	length, consumed, lok := decodeLength(rest)
	if !lok {
		return frame{}, false, false
	}
	rest = rest[consumed:]
	if len(rest) < length+1 { // +1 for the trailing FCS octet
		return frame{}, false, false
	}
	payload := rest[:length]
	gotFCS := rest[length]

	fcsInput := make([]byte, 0, 2+consumed)
	fcsInput = append(fcsInput, b[0], ctrl)
	if typ != typeUIH {
		fcsInput = append(fcsInput, b[2:2+consumed]...)
	}
	wantFCS := computeFCS(fcsInput)

	f = frame{addr: addr, cr: cr, typ: typ, pf: pf, payload: append([]byte(nil), payload...)}
	return f, gotFCS == wantFCS, true
}
