package query

import (
	"FlowFeatures/internal/dataset"
	"FlowFeatures/internal/engine/exporter"
	"FlowFeatures/internal/model"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVQuerier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows_all.csv")
	w := exporter.NewCSVWriter(path)
	require.NoError(t, w.Write(context.Background(), []model.FlowRecord{
		{FlowID: "a", Protocol: model.ProtocolTCP, Packets: 5, Bytes: 1000},
		{FlowID: "b", Protocol: model.ProtocolUDP, Packets: 1, Bytes: 70, Label: 1},
	}))

	q := NewCSVQuerier(path)
	ctx := context.Background()

	label := 1
	flows, err := q.Flows(ctx, dataset.Query{Label: &label})
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "b", flows[0].FlowID)

	_, err = q.Flow(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Appends after construction are visible to the next call.
	require.NoError(t, w.Write(ctx, []model.FlowRecord{{FlowID: "a", Protocol: model.ProtocolTCP, Packets: 2, Bytes: 120}}))
	rows, err := q.Flow(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	s, err := q.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, dataset.Totals{Flows: 3, Packets: 8, Bytes: 1190}, s.Total)
	assert.Equal(t, 2, s.ByProtocol[model.ProtocolTCP].Flows)
}

func TestCSVQuerier_MissingFile(t *testing.T) {
	q := NewCSVQuerier(filepath.Join(t.TempDir(), "none.csv"))
	_, err := q.Summary(context.Background())
	assert.Error(t, err)
}

func TestBuildFlowsQuery(t *testing.T) {
	stmt, args := buildFlowsQuery(dataset.Query{})
	assert.Equal(t, "SELECT "+selectColumns+" FROM flow_features ORDER BY ExportedAt, FlowID", stmt)
	assert.Empty(t, args)

	label, proto := 2, model.ProtocolUDP
	stmt, args = buildFlowsQuery(dataset.Query{Label: &label, Protocol: &proto, Limit: 10})
	assert.Contains(t, stmt, "WHERE Label = ? AND Protocol = ?")
	assert.Contains(t, stmt, "LIMIT ?")
	assert.Equal(t, []any{int32(2), model.ProtocolUDP, 10}, args)
}
