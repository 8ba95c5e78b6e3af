// Package chunker splits extracted document text into token-bounded,
// optionally overlapping segments.
package chunker

import (
	"strings"

	"github.com/cloo-solutions/examvault/internal/contenthash"
)

const (
	DefaultTargetTokens  = 512
	DefaultOverlapTokens = 64
)

// separators are tried coarse to fine. A part that still exceeds the budget
// after the last one is split at its rune midpoint.
var separators = []string{"\n\n", "\n", ". ", " "}

// Segment is one output chunk.
type Segment struct {
	Index       int
	Content     string
	ContentHash string
	TokenCount  int
}

// Config controls segment size and overlap, both in tokens.
type Config struct {
	TargetTokens  int
	OverlapTokens int
}

// DefaultConfig provides the defaults used for exam documents.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  DefaultTargetTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

// Chunker binds a tokenizer to a Config.
type Chunker struct {
	tok Tokenizer
	cfg Config
}

func New(tok Tokenizer, cfg Config) *Chunker {
	return &Chunker{tok: tok, cfg: cfg}
}

func (c *Chunker) Chunk(text string) []Segment {
	return Chunk(c.tok, text, c.cfg.TargetTokens, c.cfg.OverlapTokens)
}

// Chunk splits text into segments of at most targetTokens tokens, then
// prefixes every segment after the first with the last overlapTokens tokens
// of its predecessor. Whitespace-only input yields no segments.
func Chunk(tok Tokenizer, text string, targetTokens, overlapTokens int) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}

	raw := split(tok, text, targetTokens, separators)

	pieces := make([]string, 0, len(raw))
	for _, r := range raw {
		if s := strings.TrimSpace(r); s != "" {
			pieces = append(pieces, s)
		}
	}

	segments := make([]Segment, len(pieces))
	for i, piece := range pieces {
		content := piece
		if overlapTokens > 0 && i > 0 {
			prefix := tok.Tail(pieces[i-1], overlapTokens)
			content = strings.TrimSpace(prefix + " " + piece)
		}
		segments[i] = Segment{
			Index:       i,
			Content:     content,
			ContentHash: contenthash.SumString(content),
			TokenCount:  tok.Count(content),
		}
	}
	return segments
}

// split keeps each separator attached to the part before it, so the
// concatenation of the result equals text.
func split(tok Tokenizer, text string, target int, seps []string) []string {
	if tok.Count(text) <= target {
		return []string{text}
	}
	if len(seps) == 0 {
		return splitMidpoint(tok, text, target)
	}

	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		return split(tok, text, target, seps[1:])
	}

	var out []string
	current := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if tok.Count(part) > target {
			if current != "" {
				out = append(out, current)
				current = ""
			}
			out = append(out, split(tok, part, target, seps[1:])...)
			continue
		}
		candidate := current + part
		if current != "" && tok.Count(candidate) > target {
			out = append(out, current)
			current = part
			continue
		}
		current = candidate
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func splitMidpoint(tok Tokenizer, text string, target int) []string {
	runes := []rune(text)
	if len(runes) <= 1 {
		return []string{text}
	}
	mid := len(runes) / 2
	left := split(tok, string(runes[:mid]), target, nil)
	return append(left, split(tok, string(runes[mid:]), target, nil)...)
}
