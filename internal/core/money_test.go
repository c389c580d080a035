package core

import "testing"

func TestParsePnL(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,234.50", 1234.5, true},
		{"$250", 250, true},
		{"-$87.125", -87.13, true},
		{"-87.124", -87.12, true},
		{"(42)", -42, true},
		{" +3.10 ", 3.1, true},
		{"", 0, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"-(5)", 0, false},
		{"(-5)", 0, false},
		{"--5", 0, false},
		{"$", 0, false},
	}
	for _, tc := range cases {
		got, err := ParsePnL(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error, got %v", tc.in, got)
			}
		}
	}
}

func TestCents(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{0, 0},
		{1234.5, 123450},
		{-0.005, -1},
		{0.015, 2},
		{-87.125, -8713},
	}
	for _, tc := range cases {
		if got := Cents(tc.in); got != tc.out {
			t.Fatalf("Cents(%v) = %d, want %d", tc.in, got, tc.out)
		}
	}
}
