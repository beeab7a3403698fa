// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/manuscript-review/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes the given runs, or every run when ids is empty, as a
// YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, ids ...string) error {
	runs, err := s.exportRuns(ctx, ids)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the given runs, or every run when ids is empty, as an
// indented JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, ids ...string) error {
	runs, err := s.exportRuns(ctx, ids)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportRuns(ctx context.Context, ids []string) ([]types.RunRecord, error) {
	if len(ids) == 0 {
		summaries, err := s.List(ctx, exportLimit)
		if err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
		for _, r := range summaries {
			ids = append(ids, r.ID)
		}
	}

	runs := make([]types.RunRecord, 0, len(ids))
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
