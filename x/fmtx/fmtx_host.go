//go:build !(rp2040 || rp2350)

// Package fmtx gives every platform build the same formatting surface: on a
// host build that's just fmt, on an rp2040/rp2350 build it's the hand-rolled
// subset in fmtx_mcu.go, since full fmt pulls in reflection that tinygo
// cannot afford on those targets.
package fmtx

import (
	"fmt"
	"io"
)

// Sprintf delegates to fmt.Sprintf; see fmtx_mcu.go for the constrained
// verb set this call must stay compatible with on an MCU build.
func Sprintf(format string, args ...any) string { return fmt.Sprintf(format, args...) }

func Printf(format string, args ...any) (int, error) { return fmt.Printf(format, args...) }

func Fprintf(w io.Writer, format string, args ...any) (int, error) {
	return fmt.Fprintf(w, format, args...)
}

func Errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }

func Sprint(args ...any) string { return fmt.Sprint(args...) }

func Fprint(w io.Writer, args ...any) (int, error) { return fmt.Fprint(w, args...) }

func Print(args ...any) (int, error) { return fmt.Print(args...) }
