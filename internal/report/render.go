// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/manuscript-review/internal/container"
	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

// Renderer writes a document to path in one output format.
type Renderer interface {
	Name() string
	Render(ctx context.Context, doc Document, path string) error
}

// NewRenderer returns the renderer for format. PDF and DOCX need a
// container runtime for pandoc; Markdown is written directly.
func NewRenderer(format types.OutputFormat, rt container.Runtime) (Renderer, error) {
	switch format {
	case types.FormatMarkdown:
		return MarkdownRenderer{}, nil
	case types.FormatPDF, types.FormatDOCX:
		if rt == nil {
			return nil, fmt.Errorf("%w: %s reports need docker or podman for pandoc", faults.ErrConfiguration, format)
		}
		return &PandocRenderer{Runtime: rt, Image: container.ImagePandoc, Format: format}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported report format %q", faults.ErrConfiguration, format)
	}
}

// MarkdownRenderer writes the Markdown serialisation as is.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Name() string { return "markdown" }

func (MarkdownRenderer) Render(_ context.Context, doc Document, path string) error {
	return writeAtomic(path, []byte(doc.Markdown()))
}

// PandocRenderer converts the Markdown serialisation with pandoc running
// in a container. The result is buffered and only written on success.
type PandocRenderer struct {
	Runtime container.Runtime
	Image   string
	Format  types.OutputFormat
}

func (p *PandocRenderer) Name() string { return "pandoc/" + string(p.Format) }

func (p *PandocRenderer) Render(ctx context.Context, doc Document, path string) error {
	if err := p.Runtime.ImageExists(ctx, p.Image); err != nil {
		return fmt.Errorf("%w: pandoc image not available in %s: %w", faults.ErrExternalTool, p.Runtime.Name(), err)
	}

	var out bytes.Buffer
	err := p.Runtime.Run(ctx, container.Invocation{
		Image:  p.Image,
		Args:   []string{"-f", "markdown", "-t", string(p.Format), "-o", "-"},
		Stdin:  strings.NewReader(doc.Markdown()),
		Stdout: &out,
	})
	if err != nil {
		return fmt.Errorf("%w: pandoc: %w", faults.ErrExternalTool, err)
	}
	if out.Len() == 0 {
		return fmt.Errorf("%w: pandoc produced empty output", faults.ErrExternalTool)
	}
	return writeAtomic(path, out.Bytes())
}

// writeAtomic writes data to a temporary file beside path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
