package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"500", "500", true},
		{"0", "", false},
		{"-5", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(d(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatGrouped(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "0"},
		{"5", "5"},
		{"999", "999"},
		{"1000", "1,000"},
		{"1234567.89", "1,234,568"},
		{"-20500", "-20,500"},
		{"45250.4", "45,250"},
	}
	for _, tc := range cases {
		if got := FormatGrouped(d(tc.in)); got != tc.out {
			t.Fatalf("FormatGrouped(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
