//go:build rp2040 || rp2350

package fmtx

import (
	"bytes"
	"testing"
)

func TestSprintfSupportedVerbs(t *testing.T) {
	cases := []struct {
		format string
		args   []any
		want   string
	}{
		{"hello %s", []any{"world"}, "hello world"},
		{"num %d hex %x HEX %X", []any{255, 255, 255}, "num 255 hex ff HEX FF"},
		{"bool %t %t", []any{true, false}, "bool true false"},
		{"literal %%", nil, "literal %"},
		{"q=%q", []any{"a\"b\\c"}, `q="a\"b\\c"`},
		{"v=%v", []any{123}, "v=123"},
		{"trim: %.3s", []any{"abcdef"}, "trim: abc"},
	}
	for _, c := range cases {
		if got := Sprintf(c.format, c.args...); got != c.want {
			t.Fatalf("Sprintf(%q, %v) = %q, want %q", c.format, c.args, got, c.want)
		}
	}
}

func TestSprintJoinsWithSpaces(t *testing.T) {
	if got, want := Sprint("a", 1, true), "a 1 true"; got != want {
		t.Fatalf("Sprint = %q, want %q", got, want)
	}
}

func TestPrintAndPrintfWriteToDefaultOutput(t *testing.T) {
	var buf bytes.Buffer
	DefaultOutput = &buf

	n, err := Print("x", 2)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if n <= 0 {
		t.Fatalf("Print wrote %d bytes, want > 0", n)
	}
	if got, want := buf.String(), "x 2"; got != want {
		t.Fatalf("Print wrote %q, want %q", got, want)
	}

	buf.Reset()
	if _, err := Printf("v=%d", 7); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	if got, want := buf.String(), "v=7"; got != want {
		t.Fatalf("Printf wrote %q, want %q", got, want)
	}
}

func TestFprintfWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Fprintf(&buf, "hi %s", "there"); err != nil {
		t.Fatalf("Fprintf: %v", err)
	}
	if got, want := buf.String(), "hi there"; got != want {
		t.Fatalf("Fprintf wrote %q, want %q", got, want)
	}
}

func TestErrorfProducesAMatchingErrorString(t *testing.T) {
	err := Errorf("bad %s: %d", "thing", 3)
	if err == nil {
		t.Fatal("Errorf returned nil")
	}
	if got, want := err.Error(), "bad thing: 3"; got != want {
		t.Fatalf("Errorf string = %q, want %q", got, want)
	}
}
