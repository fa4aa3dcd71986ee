package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer stores one JSON file per run under baseDir/runs. The files are the
// human-inspectable form of the learning data; the archive and history hold
// the same records for machine consumption.
type Writer struct {
	baseDir string
}

// NewWriter creates the runs directory and returns a writer rooted there.
func NewWriter(baseDir string) (*Writer, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "runs"), 0755); err != nil {
		return nil, err
	}
	return &Writer{baseDir: baseDir}, nil
}

// Record writes the record to runs/<run-id>.json.
func (w *Writer) Record(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.RunID == "" {
		return fmt.Errorf("record has no run id")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.baseDir, "runs", rec.RunID+".json")
	return os.WriteFile(path, data, 0644)
}
