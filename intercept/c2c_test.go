package intercept

import (
	"bytes"
	"testing"
)

func TestC2CRoundTripV1(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	p, err := NewC2C(V1, secret)
	if err != nil {
		t.Fatalf("NewC2C: %v", err)
	}
	plain := []byte("AT+CSQ\r")
	enc, err := p.TX(plain)
	if err != nil {
		t.Fatalf("TX: %v", err)
	}
	if bytes.Equal(enc, plain) {
		t.Fatal("expected ciphertext to differ from plaintext")
	}
	dec, err := p.RX(enc)
	if err != nil {
		t.Fatalf("RX: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", dec, plain)
	}
}

func TestC2CRoundTripV2(t *testing.T) {
	secret := bytes.Repeat([]byte{0x7}, 32)
	p, err := NewC2C(V2, secret)
	if err != nil {
		t.Fatalf("NewC2C: %v", err)
	}
	plain := []byte("\r\n+CSQ: 15,99\r\n\r\nOK\r\n")
	enc, err := p.TX(plain)
	if err != nil {
		t.Fatalf("TX: %v", err)
	}
	dec, err := p.RX(enc)
	if err != nil {
		t.Fatalf("RX: %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", dec, plain)
	}
}

func TestC2CTamperedMACRejected(t *testing.T) {
	secret := bytes.Repeat([]byte{0x9}, 32)
	p, err := NewC2C(V1, secret)
	if err != nil {
		t.Fatalf("NewC2C: %v", err)
	}
	enc, err := p.TX([]byte("AT\r"))
	if err != nil {
		t.Fatalf("TX: %v", err)
	}
	enc[len(enc)-1] ^= 0xFF
	if _, err := p.RX(enc); err == nil {
		t.Fatal("expected tampered frame to fail MAC verification")
	}
}

func TestC2CEmptyInputIdempotent(t *testing.T) {
	secret := bytes.Repeat([]byte{0x1}, 32)
	p, err := NewC2C(V1, secret)
	if err != nil {
		t.Fatalf("NewC2C: %v", err)
	}
	out, err := p.TX(nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("TX(nil) = %v, %v; want empty, nil", out, err)
	}
	out, err = p.RX(nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("RX(nil) = %v, %v; want empty, nil", out, err)
	}
}

func TestIdentityPassthrough(t *testing.T) {
	p := Identity()
	src := []byte("AT+CGSN\r")
	out, err := p.TX(src)
	if err != nil || !bytes.Equal(out, src) {
		t.Fatalf("Identity TX = %v, %v; want %q, nil", out, err, src)
	}
	out, err = p.RX(src)
	if err != nil || !bytes.Equal(out, src) {
		t.Fatalf("Identity RX = %v, %v; want %q, nil", out, err, src)
	}
}
