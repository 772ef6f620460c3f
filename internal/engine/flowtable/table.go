package flowtable

import (
	"FlowFeatures/internal/model"
	"cmp"
	"slices"
)

// Table maps canonical flow keys to their accumulators. Entries are created on
// first access and never removed.
//
// A Table is not safe for concurrent use. The session that owns it is the
// only writer, and traversal happens after that writer has stopped.
type Table struct {
	flows map[model.FlowKey]*model.FlowStats
}

// New creates an empty flow table.
func New() *Table {
	return &Table{flows: make(map[model.FlowKey]*model.FlowStats)}
}

// GetOrCreate returns the accumulator for key, creating a zeroed one if absent.
func (t *Table) GetOrCreate(key model.FlowKey) *model.FlowStats {
	if st, ok := t.flows[key]; ok {
		return st
	}
	st := &model.FlowStats{}
	t.flows[key] = st
	return st
}

// Lookup returns the accumulator for key without creating it.
func (t *Table) Lookup(key model.FlowKey) (*model.FlowStats, bool) {
	st, ok := t.flows[key]
	return st, ok
}

// Len returns the number of flows in the table.
func (t *Table) Len() int {
	return len(t.flows)
}

// Observe folds one decoded packet into the table.
func (t *Table) Observe(info *model.PacketInfo) {
	key, forward := model.Canonicalize(info.Src(), info.Dst(), info.FiveTuple.Protocol)
	Update(t.GetOrCreate(key), info.Length, info.Timestamp, forward)
}

// ForEach visits every flow in key order. The visitor must not retain or
// mutate the stats.
func (t *Table) ForEach(visit func(key model.FlowKey, st *model.FlowStats)) {
	keys := make([]model.FlowKey, 0, len(t.flows))
	for k := range t.flows {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	for _, k := range keys {
		visit(k, t.flows[k])
	}
}

func compareKeys(x, y model.FlowKey) int {
	if c := x.A.Compare(y.A); c != 0 {
		return c
	}
	if c := x.B.Compare(y.B); c != 0 {
		return c
	}
	return cmp.Compare(x.Protocol, y.Protocol)
}
