package query

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/dataset"
	"FlowFeatures/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ErrNotFound is returned when no row carries the requested flow ID.
var ErrNotFound = errors.New("flow not found")

// Querier defines the interface for querying exported feature rows.
type Querier interface {
	Flows(ctx context.Context, q dataset.Query) ([]model.FlowRecord, error)
	Flow(ctx context.Context, id string) ([]model.FlowRecord, error)
	Summary(ctx context.Context) (*dataset.Summary, error)
}

// csvQuerier answers from a feature table on disk. The file is re-read on
// every call because sessions keep appending to it.
type csvQuerier struct {
	path string
}

// NewCSVQuerier creates a querier backed by a CSV feature table.
func NewCSVQuerier(path string) Querier {
	return &csvQuerier{path: path}
}

func (q *csvQuerier) load() ([]model.FlowRecord, error) {
	records, err := dataset.ReadCSV(q.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return records, nil
}

func (q *csvQuerier) Flows(_ context.Context, query dataset.Query) ([]model.FlowRecord, error) {
	records, err := q.load()
	if err != nil {
		return nil, err
	}
	return dataset.Filter(records, query), nil
}

func (q *csvQuerier) Flow(_ context.Context, id string) ([]model.FlowRecord, error) {
	records, err := q.load()
	if err != nil {
		return nil, err
	}
	var out []model.FlowRecord
	for i := range records {
		if records[i].FlowID == id {
			out = append(out, records[i])
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (q *csvQuerier) Summary(_ context.Context) (*dataset.Summary, error) {
	records, err := q.load()
	if err != nil {
		return nil, err
	}
	return dataset.Summarize(records), nil
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for the flow_features table.
func NewClickHouseQuerier(ctx context.Context, cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(ctx context.Context, cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

// selectColumns lists the exported columns in model.Columns order.
var selectColumns = strings.Join(model.Columns, ", ")

// buildFlowsQuery renders the row query for q along with its arguments.
func buildFlowsQuery(q dataset.Query) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + selectColumns + " FROM flow_features")

	var whereClauses []string
	var args []any
	if q.Label != nil {
		whereClauses = append(whereClauses, "Label = ?")
		args = append(args, int32(*q.Label))
	}
	if q.Protocol != nil {
		whereClauses = append(whereClauses, "Protocol = ?")
		args = append(args, *q.Protocol)
	}
	if len(whereClauses) > 0 {
		sb.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	sb.WriteString(" ORDER BY ExportedAt, FlowID")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args
}

func (q *clickhouseQuerier) Flows(ctx context.Context, query dataset.Query) ([]model.FlowRecord, error) {
	stmt, args := buildFlowsQuery(query)
	return q.scanRows(ctx, stmt, args...)
}

func (q *clickhouseQuerier) Flow(ctx context.Context, id string) ([]model.FlowRecord, error) {
	stmt := "SELECT " + selectColumns + " FROM flow_features WHERE FlowID = ? ORDER BY ExportedAt"
	records, err := q.scanRows(ctx, stmt, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (q *clickhouseQuerier) scanRows(ctx context.Context, stmt string, args ...any) ([]model.FlowRecord, error) {
	rows, err := q.conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	records := make([]model.FlowRecord, 0)
	for rows.Next() {
		var r model.FlowRecord
		var label int32
		if err := rows.Scan(
			&r.FlowID, &r.SrcIP, &r.DstIP, &r.SrcPort, &r.DstPort, &r.Protocol, &r.DurationMs,
			&r.Packets, &r.Bytes, &r.FwdPackets, &r.BwdPackets, &r.FwdBytes, &r.BwdBytes,
			&r.MinPktLen, &r.MaxPktLen, &r.MeanPktLen, &r.StdPktLen,
			&r.FlowIATMeanUs, &r.FlowIATStdUs,
			&r.PacketsPerSec, &r.BytesPerSec, &r.FwdPps, &r.BwdPps, &label,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		r.Label = int(label)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flow rows: %w", err)
	}
	return records, nil
}

func (q *clickhouseQuerier) Summary(ctx context.Context) (*dataset.Summary, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT Label, Protocol, count() AS Flows, sum(Packets) AS Packets, sum(Bytes) AS Bytes
		FROM flow_features
		GROUP BY Label, Protocol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	summary := dataset.NewSummary()
	for rows.Next() {
		var (
			label    int32
			protocol uint8
			flows    uint64
			t        dataset.Totals
		)
		if err := rows.Scan(&label, &protocol, &flows, &t.Packets, &t.Bytes); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		t.Flows = int(flows)
		summary.AddGroup(int(label), protocol, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summary rows: %w", err)
	}
	return summary, nil
}
