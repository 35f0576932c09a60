package ingest

import (
	"strings"
	"testing"
)

// wordCounter is a cheap TokenCounter: one token per whitespace field.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	text := "The first sentence has five words. The second sentence also has words. A third sentence follows here now."
	chunker := NewChunker(wordCounter{}, 13)

	chunks := chunker.Chunk("d1", "c1", text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	// First two sentences fit into 13 tokens together, the third does not.
	if chunks[0].Text != "The first sentence has five words. The second sentence also has words." {
		t.Fatalf("first chunk = %q", chunks[0].Text)
	}
	if chunks[1].Text != "A third sentence follows here now." {
		t.Fatalf("second chunk = %q", chunks[1].Text)
	}
	for _, chunk := range chunks {
		if got := (wordCounter{}).Count(chunk.Text); got > 13 {
			t.Fatalf("chunk %s has %d tokens, budget 13", chunk.ID, got)
		}
	}
}

func TestChunkOffsetsAreExactSubstrings(t *testing.T) {
	text := "  Weber met Acme in Zurich. Then a payment followed!\n\nA new paragraph starts here"
	chunker := NewChunker(wordCounter{}, 6)

	chunks := chunker.Chunk("d1", "c1", text)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	for _, chunk := range chunks {
		if chunk.Start < 0 || chunk.End > len(text) || chunk.Start >= chunk.End {
			t.Fatalf("chunk %s has invalid offsets [%d, %d)", chunk.ID, chunk.Start, chunk.End)
		}
		if strings.TrimSpace(text[chunk.Start:chunk.End]) != chunk.Text {
			t.Fatalf("chunk %s text %q does not match offsets [%d, %d)", chunk.ID, chunk.Text, chunk.Start, chunk.End)
		}
	}
}

func TestChunkSingleOversizedSentence(t *testing.T) {
	// A single sentence over budget still becomes one chunk.
	text := "This one very long sentence simply refuses to fit into the configured budget at all."
	chunker := NewChunker(wordCounter{}, 3)

	chunks := chunker.Chunk("d1", "c1", text)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Fatalf("chunk text = %q", chunks[0].Text)
	}
}

func TestChunkBlankLineBoundary(t *testing.T) {
	text := "First paragraph without terminator\n\nSecond paragraph also unterminated"
	chunker := NewChunker(wordCounter{}, 4)

	chunks := chunker.Chunk("d1", "c1", text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}
	if chunks[0].Text != "First paragraph without terminator" {
		t.Fatalf("first chunk = %q", chunks[0].Text)
	}
	if chunks[1].Text != "Second paragraph also unterminated" {
		t.Fatalf("second chunk = %q", chunks[1].Text)
	}
}

func TestChunkEdgeCases(t *testing.T) {
	chunker := NewChunker(wordCounter{}, 10)

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty text", text: "", want: 0},
		{name: "whitespace only", text: "   \n\t ", want: 0},
		{name: "single word", text: "Weber", want: 1},
		{name: "terminator with closing quote", text: `He said "done." Then left.`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunker.Chunk("d1", "c1", tt.text)
			if len(chunks) != tt.want {
				t.Fatalf("Chunk(%q) produced %d chunks, want %d", tt.text, len(chunks), tt.want)
			}
		})
	}
}

func TestChunkIDsAreStable(t *testing.T) {
	chunker := NewChunker(wordCounter{}, 4)
	chunks := chunker.Chunk("d1", "c1", "One sentence here. Another sentence here. A third one too.")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		want := "d1::chunk_" + string(rune('0'+i))
		if chunk.ID != want {
			t.Fatalf("chunk id = %q, want %q", chunk.ID, want)
		}
		if chunk.DocumentID != "d1" || chunk.CorpusID != "c1" {
			t.Fatalf("chunk parentage = %s/%s", chunk.DocumentID, chunk.CorpusID)
		}
	}
}
