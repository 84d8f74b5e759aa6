//go:build rp2040 || rp2350

package fmtx

import (
	"io"
	"unicode/utf8"

	"github.com/jangala-dev/ubxmodem-go/x/strconvx"
)

// DefaultOutput backs Print/Printf on MCU builds; the platform bootstrap
// sets this to a real UART writer before anything logs.
var DefaultOutput io.Writer = discardWriter{}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// --- exported surface, signature-compatible with fmt ---

func Sprintf(format string, args ...any) string {
	var out frame
	out.render(format, args)
	return string(out.buf)
}

func Printf(format string, args ...any) (int, error) {
	return Fprint(DefaultOutput, Sprintf(format, args...))
}

func Fprintf(w io.Writer, format string, args ...any) (int, error) {
	return Fprint(w, Sprintf(format, args...))
}

func Errorf(format string, args ...any) error {
	return formattedError(Sprintf(format, args...))
}

func Sprint(args ...any) string {
	var out frame
	for i, v := range args {
		if i > 0 {
			out.putByte(' ')
		}
		out.putValue(v, 'v')
	}
	return string(out.buf)
}

func Fprint(w io.Writer, args ...any) (int, error) {
	return w.Write([]byte(Sprint(args...)))
}

func Print(args ...any) (int, error) { return Fprint(DefaultOutput, args...) }

// --- a small formatter: %s %q %d %x %X %v %t %%, with width/precision on
// %s, enough to cover the log lines this module actually emits without
// pulling fmt's reflection-based machinery onto an MCU build. ---

type formattedError string

func (e formattedError) Error() string { return string(e) }

type frame struct{ buf []byte }

func (f *frame) putByte(c byte)     { f.buf = append(f.buf, c) }
func (f *frame) putBytes(p []byte)  { f.buf = append(f.buf, p...) }
func (f *frame) putString(s string) { f.putBytes([]byte(s)) }

func (f *frame) putValue(v any, verb rune) {
	switch x := v.(type) {
	case string:
		if verb == 'q' {
			f.putString(escapeQuoted(x))
		} else {
			f.putString(x)
		}
	case []byte:
		if verb == 'q' {
			f.putString(escapeQuoted(string(x)))
		} else {
			f.putBytes(x)
		}
	case bool:
		f.putString(boolWord(x))
	case int:
		f.putString(strconvx.FormatInt(int64(x), 10))
	case int8:
		f.putString(strconvx.FormatInt(int64(x), 10))
	case int16:
		f.putString(strconvx.FormatInt(int64(x), 10))
	case int32: // also covers rune
		f.putString(strconvx.FormatInt(int64(x), 10))
	case int64:
		f.putString(strconvx.FormatInt(x, 10))
	case uint:
		f.putString(strconvx.FormatUint(uint64(x), 10))
	case uint8: // also covers byte
		f.putString(strconvx.FormatUint(uint64(x), 10))
	case uint16:
		f.putString(strconvx.FormatUint(uint64(x), 10))
	case uint32:
		f.putString(strconvx.FormatUint(uint64(x), 10))
	case uint64:
		f.putString(strconvx.FormatUint(x, 10))
	case float32:
		f.putString(strconvx.FormatFloat(float64(x), 'f', 6, 32))
	case float64:
		f.putString(strconvx.FormatFloat(x, 'f', 6, 64))
	default:
		f.putString("<unk>")
	}
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return 0
	}
}

// readDecimal consumes a run of ASCII digits starting at i, returning the
// parsed value and the index just past it (unchanged if there were none).
func readDecimal(s string, i int) (int, int) {
	n, start := 0, i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i == start {
		return 0, start
	}
	return n, i
}

func upperHex(h string) string {
	b := []byte(h)
	for i, c := range b {
		if 'a' <= c && c <= 'f' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// render scans format, copying literal text through and dispatching each
// verb to its handler; it returns early if args run out mid-scan rather
// than panic, since this path has no recover-based safety net on an MCU.
func (f *frame) render(format string, args []any) {
	next := 0
	take := func() (any, bool) {
		if next >= len(args) {
			return nil, false
		}
		v := args[next]
		next++
		return v, true
	}

	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			f.putByte(c)
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			f.putByte('%')
			i += 2
			continue
		}
		i++

		width, i2 := readDecimal(format, i)
		i = i2
		prec, hasPrec := 0, false
		if i < len(format) && format[i] == '.' {
			hasPrec = true
			prec, i = readDecimal(format, i+1)
		}
		if i >= len(format) {
			return
		}
		verb := rune(format[i])
		i++

		arg, ok := take()
		if !ok {
			return
		}
		f.renderVerb(verb, arg, width, prec, hasPrec)
	}
}

func (f *frame) renderVerb(verb rune, arg any, width, prec int, hasPrec bool) {
	switch verb {
	case 's', 'q':
		f.renderString(arg, verb == 'q', width, prec, hasPrec)
	case 'd':
		f.putString(strconvx.FormatInt(asInt64(arg), 10))
	case 'x', 'X':
		h := strconvx.FormatUint(uint64(asInt64(arg)), 16)
		if verb == 'X' {
			h = upperHex(h)
		}
		f.putString(h)
	case 't':
		b, _ := arg.(bool)
		f.putString(boolWord(b))
	case 'v':
		f.putValue(arg, 'v')
	default:
		f.putByte('%')
		f.putByte(byte(verb))
	}
}

func (f *frame) renderString(arg any, quoted bool, width, prec int, hasPrec bool) {
	var s string
	switch v := arg.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		f.putValue(arg, 'v')
		return
	}
	if quoted {
		s = escapeQuoted(s)
	}
	if hasPrec && prec < len(s) {
		s = s[:prec]
	}
	if pad := width - utf8.RuneCountInString(s); pad > 0 {
		for ; pad > 0; pad-- {
			f.putByte(' ')
		}
	}
	f.putString(s)
}

func escapeQuoted(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"':
			out = append(out, '\\', c)
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, c)
		}
	}
	out = append(out, '"')
	return string(out)
}
