// Package parser extracts plain text from the document formats found in the
// exam corpus.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/examvault/internal/domain"
)

// Result is the output of a successful parse.
type Result struct {
	Text      string
	PageCount int
	Metadata  map[string]string
}

// Extractor converts raw bytes of one format into text.
type Extractor interface {
	Extract(content []byte) (*Result, error)
}

// Parser dispatches on file extension.
type Parser struct {
	extractors map[string]Extractor
}

// New returns a Parser for .pdf, .docx, .txt and .md files.
func New() *Parser {
	text := TextExtractor{}
	return &Parser{
		extractors: map[string]Extractor{
			".pdf":  PDFExtractor{},
			".docx": DocxExtractor{},
			".txt":  text,
			".md":   text,
		},
	}
}

// Supports reports whether filename has a registered extension.
func (p *Parser) Supports(filename string) bool {
	_, ok := p.extractors[extension(filename)]
	return ok
}

// Parse extracts text from content. Unsupported or corrupt input returns an
// error matching domain.ErrParseFailure or domain.ErrUnsupportedFileType.
func (p *Parser) Parse(ctx context.Context, content []byte, filename string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := extension(filename)
	ex, ok := p.extractors[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType.Wrap(fmt.Errorf("%q", filename))
	}

	res, err := ex.Extract(content)
	if err != nil {
		return nil, domain.ErrParseFailure.Wrap(fmt.Errorf("%s: %w", filename, err))
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	res.Metadata["format"] = strings.TrimPrefix(ext, ".")
	return res, nil
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
