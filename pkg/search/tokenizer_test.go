package search

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name            string
		text            string
		removeStopwords bool
		want            []string
	}{
		{
			name: "lowercases and splits on whitespace",
			text: "Shell Company",
			want: []string{"shell", "company"},
		},
		{
			name: "strips punctuation",
			text: "Acme Corp., based in Zurich (Switzerland)!",
			want: []string{"acme", "corp", "based", "in", "zurich", "switzerland"},
		},
		{
			name:            "removes stopwords when enabled",
			text:            "the payment was sent to the account",
			removeStopwords: true,
			want:            []string{"payment", "sent", "account"},
		},
		{
			name: "keeps stopwords when disabled",
			text: "the payment",
			want: []string{"the", "payment"},
		},
		{
			name: "keeps digits and underscores",
			text: "invoice_2024 totals 15000",
			want: []string{"invoice_2024", "totals", "15000"},
		},
		{
			name: "empty text",
			text: "  ,.! ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text, tt.removeStopwords)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "short text untouched", text: "hello", limit: 10, want: "hello"},
		{name: "truncates with ellipsis", text: "hello world", limit: 8, want: "hello wo..."},
		{name: "respects rune boundary", text: "héllo", limit: 2, want: "h..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.text, tt.limit); got != tt.want {
				t.Fatalf("Excerpt(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}
