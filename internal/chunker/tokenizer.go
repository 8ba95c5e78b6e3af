package chunker

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the BPE encoding used by the OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts tokens and extracts trailing token runs.
type Tokenizer interface {
	Count(text string) int
	// Tail returns the last n tokens of text as text. When text has n or
	// fewer tokens it is returned unchanged.
	Tail(text string, n int) string
}

var loaderOnce sync.Once

// TiktokenTokenizer counts BPE tokens with tiktoken.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named encoding from the embedded BPE tables,
// so no network access is needed at runtime.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *TiktokenTokenizer) Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	// Byte-level BPE can split a rune across tokens, so the decoded tail may
	// open with continuation bytes. Cut the same byte run from text and skip
	// forward to the next rune boundary.
	start := len(text) - len(t.enc.Decode(tokens[len(tokens)-n:]))
	if start <= 0 {
		return text
	}
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	return text[start:]
}

// WordTokenizer treats each whitespace-separated field as one token.
type WordTokenizer struct{}

func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func (WordTokenizer) Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[len(fields)-n:], " ")
}
