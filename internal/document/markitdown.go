// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/container"
)

// MarkitdownDecoder extracts text from PDF and DOCX files by piping them
// through the markitdown container image.
type MarkitdownDecoder struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownDecoder creates a decoder that uses rt to run markitdown.
// Image availability is checked lazily on first use.
func NewMarkitdownDecoder(rt container.Runtime) *MarkitdownDecoder {
	return &MarkitdownDecoder{runtime: rt, image: container.ImageMarkitdown}
}

// Decode pipes the file at path through markitdown and returns the
// resulting Markdown text.
func (m *MarkitdownDecoder) Decode(ctx context.Context, path string) (string, error) {
	if err := m.runtime.ImageExists(ctx, m.image); err != nil {
		return "", fmt.Errorf("markitdown image not available in %s: %w", m.runtime.Name(), err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	var out bytes.Buffer
	err = m.runtime.Run(ctx, container.Invocation{
		Image:  m.image,
		Args:   []string{"-x", ext},
		Stdin:  f,
		Stdout: &out,
	})
	if err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", path, err)
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("markitdown produced empty output for %s", path)
	}
	return out.String(), nil
}
