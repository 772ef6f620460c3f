// Package app holds the session lifecycle shared by the capture binaries.
package app

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/engine/exporter"
	"FlowFeatures/internal/engine/manager"
	"FlowFeatures/internal/metrics"
	"FlowFeatures/internal/report"
	"context"
	"fmt"
	"log"
)

// Session is a capture session with the writers its configuration enables.
type Session struct {
	*manager.Session
	cfg     *config.Config
	closers []func() error
}

// NewSession creates a session exporting to the configured CSV file and,
// when enabled, ClickHouse. m may be nil.
func NewSession(ctx context.Context, cfg *config.Config, m *metrics.SessionMetrics) (*Session, error) {
	s := &Session{
		Session: manager.NewSession(cfg, m, exporter.NewCSVWriter(cfg.Export.CSVPath)),
		cfg:     cfg,
	}

	if cfg.Export.ClickHouse.Enabled {
		ch, err := exporter.NewClickHouseWriter(ctx, cfg.Export.ClickHouse, s.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse writer: %w", err)
		}
		s.AddWriter(ch)
		s.closers = append(s.closers, ch.Close)
	}
	return s, nil
}

// Finish stops ingestion, exports every flow and writes the optional summary
// and report. Advisory hints are logged when nothing was aggregated.
func (s *Session) Finish(ctx context.Context) (*manager.ExportResult, error) {
	defer s.close()
	s.Stop()

	result, exportErr := s.Export(ctx)
	if result == nil {
		return nil, exportErr
	}
	log.Printf("Exported %d flows (%d packets, %d bytes) to %s", result.Rows, result.TotalPackets, result.TotalBytes, s.cfg.Export.CSVPath)

	for _, hint := range result.Counters.Advisory() {
		log.Printf("Advisory: %s", hint)
	}

	summary := report.NewSummary(result, s.cfg.Export.CSVPath)
	if path := s.cfg.Export.SummaryPath; path != "" {
		if err := report.WriteSummary(path, summary); err != nil {
			return result, err
		}
		log.Printf("Summary written to %s", path)
	}
	if path := s.cfg.Export.ReportPath; path != "" {
		if err := report.WriteHTML(path, summary); err != nil {
			return result, err
		}
		log.Printf("Report written to %s", path)
	}
	return result, exportErr
}

func (s *Session) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Printf("Failed to close writer: %v", err)
		}
	}
}
