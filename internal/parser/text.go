package parser

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// TextExtractor handles plain text and markdown.
type TextExtractor struct{}

func (TextExtractor) Extract(content []byte) (*Result, error) {
	if !utf8.Valid(content) {
		return nil, errors.New("content is not valid UTF-8")
	}
	text := strings.TrimPrefix(string(content), "\uFEFF")
	return &Result{Text: text, PageCount: 1}, nil
}
