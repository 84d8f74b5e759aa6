//go:build !(rp2040 || rp2350)

// Package strconvx gives every platform build the same int/float
// string-conversion surface; a host build delegates to strconv, an
// rp2040/rp2350 build uses the hand-rolled strconvx_mcu.go instead. On both,
// base 0 reads a leading "0" with no x/b/o radix letter as decimal, not
// octal.
package strconvx

import "strconv"

func Itoa(i int) string          { return strconv.Itoa(i) }
func Atoi(s string) (int, error) { return strconv.Atoi(s) }

func FormatInt(i int64, base int) string   { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string { return strconv.FormatUint(u, base) }

func ParseInt(s string, base, bitSize int) (int64, error) {
	if base == 0 {
		u := s
		if len(u) > 0 && (u[0] == '+' || u[0] == '-') {
			u = u[1:]
		}
		if len(u) > 1 && u[0] == '0' && u[1] >= '0' && u[1] <= '9' {
			base = 10
		}
	}
	return strconv.ParseInt(s, base, bitSize)
}

func ParseUint(s string, base, bitSize int) (uint64, error) {
	if base == 0 && len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		base = 10
	}
	return strconv.ParseUint(s, base, bitSize)
}

func FormatFloat(f float64, format byte, prec, bitSize int) string {
	return strconv.FormatFloat(f, format, prec, bitSize)
}

func ParseFloat(s string, bitSize int) (float64, error) {
	return strconv.ParseFloat(s, bitSize)
}
