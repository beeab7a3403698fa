// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document turns a manuscript file into a types.Manuscript: it
// picks a decoder by file extension, normalises the extracted text, and
// classifies the article type and declared keywords.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/manuscript-review/internal/container"
	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/internal/logging"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

const stage = "extract"

// Decoder extracts plain text from one document format.
type Decoder interface {
	// Decode reads the file at path and returns its text.
	Decode(ctx context.Context, path string) (string, error)
}

// Extractor maps file extensions (lowercase, with dot) to decoders.
type Extractor struct {
	Decoders map[string]Decoder
	Logger   *slog.Logger
}

// NewExtractor returns an Extractor with the built-in text and RTF
// decoders. When rt is non-nil, PDF and DOCX are decoded through the
// markitdown container.
func NewExtractor(rt container.Runtime, logger *slog.Logger) *Extractor {
	decoders := map[string]Decoder{
		".txt": TextDecoder{},
		".md":  TextDecoder{},
		".rtf": RTFDecoder{},
	}
	if rt != nil {
		md := NewMarkitdownDecoder(rt)
		decoders[".pdf"] = md
		decoders[".docx"] = md
		decoders[".doc"] = md
	}
	return &Extractor{Decoders: decoders, Logger: logging.OrDiscard(logger)}
}

// Supported returns the registered extensions, sorted.
func (e *Extractor) Supported() []string {
	exts := make([]string, 0, len(e.Decoders))
	for ext := range e.Decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ExtractText decodes the file at path and returns normalised text. An
// empty result is reported as faults.ErrEmptyManuscript.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", faults.Wrap(faults.ErrNotFound, stage, "stat", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := e.Decoders[ext]
	if !ok {
		msg := fmt.Sprintf("unsupported file type %q (supported: %s)", ext, strings.Join(e.Supported(), ", "))
		return "", faults.Wrap(faults.ErrValidation, stage, "decode", msg, nil)
	}

	raw, err := dec.Decode(ctx, path)
	if err != nil {
		return "", faults.Wrap(faults.ErrExternalTool, stage, "decode", filepath.Base(path), err)
	}

	text := normalise(raw)
	if text == "" {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), faults.ErrEmptyManuscript)
	}
	e.Logger.Debug("text extracted", "path", path, "chars", len([]rune(text)))
	return text, nil
}

// Extract decodes path and classifies the text into a Manuscript.
func (e *Extractor) Extract(ctx context.Context, path string) (types.Manuscript, error) {
	text, err := e.ExtractText(ctx, path)
	if err != nil {
		return types.Manuscript{}, err
	}
	return types.Manuscript{
		Path:             path,
		Text:             text,
		ArticleType:      DetectArticleType(text),
		DeclaredKeywords: ExtractDeclaredKeywords(text),
	}, nil
}

// normalise converts to NFC, unifies line endings, and trims the text.
func normalise(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(norm.NFC.String(s))
}
