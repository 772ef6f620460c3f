// Package dataset reads, merges and queries exported feature tables.
package dataset

import (
	"FlowFeatures/internal/model"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

var (
	// ErrHeaderMismatch is returned when a file's header differs from model.Columns.
	ErrHeaderMismatch = errors.New("csv header does not match the feature columns")
	// ErrNoInputs is returned by Merge when the pattern matches nothing.
	ErrNoInputs = errors.New("no input files matched")
)

// ReadCSV loads every row of a feature table.
func ReadCSV(path string) ([]model.FlowRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	r := newReader(file)
	if err := checkHeader(r); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var records []model.FlowRecord
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rec, err := ParseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func newReader(rd io.Reader) *csv.Reader {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = len(model.Columns)
	r.ReuseRecord = true
	return r
}

func checkHeader(r *csv.Reader) error {
	header, err := r.Read()
	if err == io.EOF {
		return fmt.Errorf("empty file: %w", ErrHeaderMismatch)
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
			return ErrHeaderMismatch
		}
		return err
	}
	if !slices.Equal(header, model.Columns) {
		return ErrHeaderMismatch
	}
	return nil
}

// ParseRow converts CSV fields in column order back into a record.
func ParseRow(fields []string) (model.FlowRecord, error) {
	var rec model.FlowRecord
	if len(fields) != len(model.Columns) {
		return rec, fmt.Errorf("expected %d fields, got %d", len(model.Columns), len(fields))
	}

	p := fieldParser{fields: fields}
	rec.FlowID = fields[0]
	rec.SrcIP = fields[1]
	rec.DstIP = fields[2]
	rec.SrcPort = uint16(p.uint(3, 16))
	rec.DstPort = uint16(p.uint(4, 16))
	rec.Protocol = uint8(p.uint(5, 8))
	rec.DurationMs = p.int(6, 64)
	rec.Packets = p.uint(7, 64)
	rec.Bytes = p.uint(8, 64)
	rec.FwdPackets = p.uint(9, 64)
	rec.BwdPackets = p.uint(10, 64)
	rec.FwdBytes = p.uint(11, 64)
	rec.BwdBytes = p.uint(12, 64)
	rec.MinPktLen = uint32(p.uint(13, 32))
	rec.MaxPktLen = uint32(p.uint(14, 32))
	rec.MeanPktLen = p.float(15)
	rec.StdPktLen = p.float(16)
	rec.FlowIATMeanUs = p.float(17)
	rec.FlowIATStdUs = p.float(18)
	rec.PacketsPerSec = p.float(19)
	rec.BytesPerSec = p.float(20)
	rec.FwdPps = p.float(21)
	rec.BwdPps = p.float(22)
	rec.Label = int(p.int(23, 32))
	return rec, p.err
}

// fieldParser keeps the first conversion error.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %w", model.Columns[i], err)
	}
}

func (p *fieldParser) uint(i, bits int) uint64 {
	v, err := strconv.ParseUint(p.fields[i], 10, bits)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) int(i, bits int) int64 {
	v, err := strconv.ParseInt(p.fields[i], 10, bits)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}
