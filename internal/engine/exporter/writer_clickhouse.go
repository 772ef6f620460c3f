package exporter

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/model"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS flow_features (
    SessionID     String,
    ExportedAt    DateTime,
    FlowID        String,
    SrcIP         String,
    DstIP         String,
    SrcPort       UInt16,
    DstPort       UInt16,
    Protocol      UInt8,
    DurationMs    Int64,
    Packets       UInt64,
    Bytes         UInt64,
    FwdPackets    UInt64,
    BwdPackets    UInt64,
    FwdBytes      UInt64,
    BwdBytes      UInt64,
    MinPktLen     UInt32,
    MaxPktLen     UInt32,
    MeanPktLen    Float64,
    StdPktLen     Float64,
    FlowIATMeanUs Float64,
    FlowIATStdUs  Float64,
    PacketsPerSec Float64,
    BytesPerSec   Float64,
    FwdPps        Float64,
    BwdPps        Float64,
    Label         Int32
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(ExportedAt)
ORDER BY (Label, SessionID, FlowID);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn      driver.Conn
	sessionID string
}

// NewClickHouseWriter connects to ClickHouse and ensures the feature table exists.
func NewClickHouseWriter(ctx context.Context, cfg config.ClickHouseConfig, sessionID string) (*ClickHouseWriter, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(ctx, createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn, sessionID: sessionID}, nil
}

func connect(ctx context.Context, cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Name returns the writer name.
func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

// Write inserts the rows into flow_features in a single batch.
func (w *ClickHouseWriter) Write(ctx context.Context, records []model.FlowRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_features")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	exportedAt := time.Now().UTC()
	for i := range records {
		if err := batch.Append(clickHouseRow(w.sessionID, exportedAt, &records[i])...); err != nil {
			return fmt.Errorf("failed to append flow to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d flows to ClickHouse for session '%s'", len(records), w.sessionID)
	return nil
}

// Close releases the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// clickHouseRow orders a record's values to match createTableStatement.
func clickHouseRow(sessionID string, exportedAt time.Time, r *model.FlowRecord) []any {
	return []any{
		sessionID,
		exportedAt,
		r.FlowID,
		r.SrcIP,
		r.DstIP,
		r.SrcPort,
		r.DstPort,
		r.Protocol,
		r.DurationMs,
		r.Packets,
		r.Bytes,
		r.FwdPackets,
		r.BwdPackets,
		r.FwdBytes,
		r.BwdBytes,
		r.MinPktLen,
		r.MaxPktLen,
		r.MeanPktLen,
		r.StdPktLen,
		r.FlowIATMeanUs,
		r.FlowIATStdUs,
		r.PacketsPerSec,
		r.BytesPerSec,
		r.FwdPps,
		r.BwdPps,
		int32(r.Label),
	}
}
