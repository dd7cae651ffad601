// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the records selected by opts to w as a YAML sequence.
func (l *Ledger) ExportYAML(ctx context.Context, w io.Writer, opts HistoryOptions) error {
	recs, err := l.History(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the records selected by opts to w as an indented JSON
// array.
func (l *Ledger) ExportJSON(ctx context.Context, w io.Writer, opts HistoryOptions) error {
	recs, err := l.History(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
