package strconvx

import "testing"

func TestItoaAtoiRoundTrip(t *testing.T) {
	for _, v := range []int{0, 1, -1, 42, -99999} {
		s := Itoa(v)
		got, err := Atoi(s)
		if err != nil {
			t.Fatalf("Atoi(%q): %v", s, err)
		}
		if got != v {
			t.Fatalf("Itoa/Atoi round trip: got %d, want %d", got, v)
		}
	}
}

func TestFormatUintAcrossBases(t *testing.T) {
	cases := []struct {
		u    uint64
		base int
		want string
	}{
		{0, 2, "0"},
		{5, 2, "101"},
		{255, 16, "ff"},
		{255, 10, "255"},
		{35, 36, "z"},
	}
	for _, c := range cases {
		if got := FormatUint(c.u, c.base); got != c.want {
			t.Fatalf("FormatUint(%d,%d) = %q, want %q", c.u, c.base, got, c.want)
		}
	}
	if got := FormatInt(-15, 10); got != "-15" {
		t.Fatalf("FormatInt(-15,10) = %q, want -15", got)
	}
}

func TestParseUintWithAutoAndExplicitBase(t *testing.T) {
	cases := []struct {
		s    string
		base int
		want uint64
	}{
		{"0", 0, 0},
		{"101", 2, 5},
		{"0b101", 0, 5},
		{"075", 0, 75}, // no radix prefix recognized -> plain base 10
		{"0o77", 0, 63},
		{"0O77", 0, 63},
		{"0xff", 0, 255},
		{"0Xff", 0, 255},
		{"FF", 16, 255},
	}
	for _, c := range cases {
		got, err := ParseUint(c.s, c.base, 64)
		if err != nil {
			t.Fatalf("ParseUint(%q,%d): %v", c.s, c.base, err)
		}
		if got != c.want {
			t.Fatalf("ParseUint(%q,%d) = %d, want %d", c.s, c.base, got, c.want)
		}
	}
}

func TestParseUintRejectsMalformedInput(t *testing.T) {
	for _, s := range []string{"", "g", "0x", "2", "0b102"} {
		if _, err := ParseUint(s, 2, 64); err == nil {
			t.Fatalf("ParseUint(%q,2): expected error", s)
		}
	}
}

func TestParseIntHandlesSignsAndPrefixes(t *testing.T) {
	cases := []struct {
		s    string
		base int
		want int64
	}{
		{"+10", 10, 10},
		{"-10", 10, -10},
		{"0b11", 0, 3},
		{"-0x0f", 0, -15},
	}
	for _, c := range cases {
		got, err := ParseInt(c.s, c.base, 64)
		if err != nil {
			t.Fatalf("ParseInt(%q,%d): %v", c.s, c.base, err)
		}
		if got != c.want {
			t.Fatalf("ParseInt(%q,%d) = %d, want %d", c.s, c.base, got, c.want)
		}
	}
	if _, err := ParseInt("18446744073709551615", 10, 64); err == nil {
		t.Fatal("ParseInt(too big): expected error")
	}
}

func TestFormatAndParseFloatRoundTrip(t *testing.T) {
	cases := []struct {
		in   float64
		prec int
		want string
	}{
		{0, 0, "0"},
		{12.3, 1, "12.3"},
		{12.345, 2, "12.35"},
		{-1.25, 2, "-1.25"},
	}
	for _, c := range cases {
		got := FormatFloat(c.in, 'f', c.prec, 64)
		if got != c.want {
			t.Fatalf("FormatFloat(%v,'f',%d) = %q, want %q", c.in, c.prec, got, c.want)
		}
		v, err := ParseFloat(got, 64)
		if err != nil {
			t.Fatalf("ParseFloat(%q): %v", got, err)
		}
		if FormatFloat(v, 'f', c.prec, 64) != c.want {
			t.Fatalf("round trip mismatch for %q", c.want)
		}
	}
	if _, err := ParseFloat("12.3.4", 64); err == nil {
		t.Fatal("ParseFloat(\"12.3.4\"): expected error")
	}
}
