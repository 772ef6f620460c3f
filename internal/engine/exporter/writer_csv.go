package exporter

import (
	"FlowFeatures/internal/model"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// CSVWriter appends feature rows to a CSV file, writing the header only when
// it creates the file.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a writer for the given file path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Name returns the writer name.
func (w *CSVWriter) Name() string {
	return "csv"
}

// Path returns the output file path.
func (w *CSVWriter) Path() string {
	return w.path
}

// Write appends one row per record.
func (w *CSVWriter) Write(ctx context.Context, records []model.FlowRecord) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Existence is checked right before opening so the header goes in once.
	exists := true
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		exists = false
	} else if err != nil {
		return fmt.Errorf("failed to stat '%s': %w", w.path, err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", w.path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if !exists {
		if err := cw.Write(model.Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(FormatRecord(&records[i])); err != nil {
			return fmt.Errorf("failed to write row for flow %s: %w", records[i].FlowID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush '%s': %w", w.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", w.path, err)
	}

	log.Printf("CSVWriter: appended %d flows to %s", len(records), w.path)
	return nil
}

// FormatRecord renders a record as CSV fields in column order. Floating
// columns carry six fixed decimals.
func FormatRecord(r *model.FlowRecord) []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

	return []string{
		r.FlowID,
		r.SrcIP,
		r.DstIP,
		u(uint64(r.SrcPort)),
		u(uint64(r.DstPort)),
		u(uint64(r.Protocol)),
		strconv.FormatInt(r.DurationMs, 10),
		u(r.Packets),
		u(r.Bytes),
		u(r.FwdPackets),
		u(r.BwdPackets),
		u(r.FwdBytes),
		u(r.BwdBytes),
		u(uint64(r.MinPktLen)),
		u(uint64(r.MaxPktLen)),
		f(r.MeanPktLen),
		f(r.StdPktLen),
		f(r.FlowIATMeanUs),
		f(r.FlowIATStdUs),
		f(r.PacketsPerSec),
		f(r.BytesPerSec),
		f(r.FwdPps),
		f(r.BwdPps),
		strconv.Itoa(r.Label),
	}
}
