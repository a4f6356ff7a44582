package core

import (
	"testing"

	"golang.org/x/text/language"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountAcceptsZero(t *testing.T) {
	m, err := ParseAmount("0")
	if err != nil || m.Cents != 0 {
		t.Fatalf("expected zero amount, got %v (err=%v)", m, err)
	}
	if _, err := ParseAmount("-3"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyStringRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 5, 120, 1250050} {
		m := Money{Cents: cents}
		var back Money
		if err := back.UnmarshalText([]byte(m.String())); err != nil {
			t.Fatalf("unmarshal %q: %v", m.String(), err)
		}
		if back != m {
			t.Fatalf("round trip %d -> %q -> %d", cents, m.String(), back.Cents)
		}
	}
}

func TestMoneyFormatGroupsDigits(t *testing.T) {
	got := Money{Cents: 1250050}.Format(language.English)
	if got != "12,500.50" {
		t.Fatalf("expected 12,500.50, got %q", got)
	}
}
