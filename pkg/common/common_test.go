package common

import (
	"errors"
	"testing"
)

func TestContentHash(t *testing.T) {
	base := ContentHash("Weber met Acme in Zurich.")

	tests := []struct {
		name string
		text string
		same bool
	}{
		{name: "identical text", text: "Weber met Acme in Zurich.", same: true},
		{name: "extra whitespace collapses", text: "  Weber  met\tAcme\nin Zurich. ", same: true},
		{name: "different text", text: "Weber met Globex in Zurich.", same: false},
		{name: "case matters", text: "weber met acme in zurich.", same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentHash(tt.text)
			if (got == base) != tt.same {
				t.Fatalf("ContentHash(%q) same-as-base = %v, want %v", tt.text, got == base, tt.same)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Weber", want: "weber"},
		{name: "collapses whitespace", input: "  Acme   Corp ", want: "acme corp"},
		{name: "already normalized", input: "acme corp", want: "acme corp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Fatalf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("corpus %q", "c1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("NotFoundf result does not wrap ErrNotFound: %v", err)
	}
	if err.Error() != `corpus "c1": not found` {
		t.Fatalf("message = %q", err.Error())
	}
}
