package dataset

import (
	"FlowFeatures/internal/model"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
)

// MergeResult reports what Merge combined.
type MergeResult struct {
	Files []string
	Rows  int
}

// Merge concatenates every feature table matching pattern into out, which
// gets a single header. out itself is never read even if the pattern matches
// it. Rows are copied verbatim in file name order.
func Merge(pattern, out string) (*MergeResult, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}
	outAbs, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve '%s': %w", out, err)
	}

	inputs := make([]string, 0, len(matches))
	for _, m := range matches {
		if abs, err := filepath.Abs(m); err == nil && abs == outAbs {
			continue
		}
		inputs = append(inputs, m)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%s: %w", pattern, ErrNoInputs)
	}
	slices.Sort(inputs)

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Write beside the target and rename, so a failed merge keeps the old file.
	tmp, err := os.CreateTemp(filepath.Dir(out), ".merge-*.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	w := csv.NewWriter(tmp)
	if err := w.Write(model.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	result := &MergeResult{Files: inputs}
	for _, in := range inputs {
		n, err := copyRows(w, in)
		if err != nil {
			return nil, err
		}
		result.Rows += n
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush merged rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return nil, fmt.Errorf("failed to move merged file into place: %w", err)
	}

	log.Printf("Merged %d files -> %s (%d rows)", len(inputs), out, result.Rows)
	return result, nil
}

func copyRows(w *csv.Writer, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer file.Close()

	r := newReader(file)
	if err := checkHeader(r); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	rows := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("%s: %w", path, err)
		}
		if err := w.Write(fields); err != nil {
			return rows, fmt.Errorf("failed to copy row from '%s': %w", path, err)
		}
		rows++
	}
}
