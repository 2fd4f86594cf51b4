package main

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{
			name: "short string unchanged",
			in:   "Proposition 8",
			n:    40,
			want: "Proposition 8",
		},
		{
			name: "exact length unchanged",
			in:   "abcde",
			n:    5,
			want: "abcde",
		},
		{
			name: "long ascii truncated",
			in:   "authorizes general obligation bonds",
			n:    10,
			want: "authori...",
		},
		{
			name: "multibyte cut on rune boundary",
			in:   "medición de la boleta electoral número ocho",
			n:    10,
			want: "medició...",
		},
		{
			name: "multibyte within limit unchanged",
			in:   "señalización",
			n:    20,
			want: "señalización",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}
