// Package ingest turns raw document text into persisted, chunked, embedded
// and graph-extracted corpus content.
package ingest

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

// TokenCounter measures text length in model tokens. The tiktoken-backed
// implementation is the default; tests substitute a cheap one.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter returns a TokenCounter for a tiktoken encoding name,
// e.g. "cl100k_base".
func NewTokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Chunker packs sentence spans into token-bounded chunks while preserving
// byte offsets into the original document text, so a chunk is always an
// exact substring of its document.
type Chunker struct {
	counter   TokenCounter
	maxTokens int
}

const DefaultMaxTokens = 512

func NewChunker(counter TokenCounter, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{counter: counter, maxTokens: maxTokens}
}

type span struct {
	start int
	end   int
}

// Chunk splits document text into chunks of at most maxTokens tokens,
// never splitting inside a sentence unless a single sentence exceeds the
// budget on its own.
func (c *Chunker) Chunk(documentID, corpusID, text string) []common.Chunk {
	spans := sentenceSpans(text)
	if len(spans) == 0 {
		return nil
	}

	var chunks []common.Chunk
	flush := func(start, end int) {
		chunkText := strings.TrimSpace(text[start:end])
		if chunkText == "" {
			return
		}
		chunks = append(chunks, common.Chunk{
			ID:         fmt.Sprintf("%s::chunk_%d", documentID, len(chunks)),
			DocumentID: documentID,
			CorpusID:   corpusID,
			Text:       chunkText,
			Start:      start,
			End:        end,
		})
	}

	chunkStart := -1
	chunkEnd := -1
	for _, s := range spans {
		if chunkStart < 0 {
			chunkStart, chunkEnd = s.start, s.end
			continue
		}
		if c.counter.Count(text[chunkStart:s.end]) <= c.maxTokens {
			chunkEnd = s.end
			continue
		}
		flush(chunkStart, chunkEnd)
		chunkStart, chunkEnd = s.start, s.end
	}
	if chunkStart >= 0 {
		flush(chunkStart, chunkEnd)
	}
	return chunks
}

// sentenceSpans locates sentence boundaries as byte offsets. A sentence
// ends at '.', '!' or '?' followed by whitespace, or at a blank line.
func sentenceSpans(text string) []span {
	var spans []span
	start := -1
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if start < 0 {
			if !isSpaceByte(ch) {
				start = i
			}
			continue
		}
		switch {
		case ch == '.' || ch == '!' || ch == '?':
			// Consume trailing terminators and closing quotes.
			j := i + 1
			for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?' ||
				text[j] == '"' || text[j] == '\'' || text[j] == ')' || text[j] == ']') {
				j++
			}
			if j >= len(text) || isSpaceByte(text[j]) {
				spans = append(spans, span{start: start, end: j})
				start = -1
				i = j - 1
			}
		case ch == '\n' && i+1 < len(text) && text[i+1] == '\n':
			spans = append(spans, span{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
