package dataset

import "FlowFeatures/internal/model"

// Query selects rows of a feature table. Nil fields match everything and a
// non-positive Limit means no limit.
type Query struct {
	Label    *int
	Protocol *uint8
	Limit    int
}

// Match reports whether r satisfies the query's predicates.
func (q Query) Match(r *model.FlowRecord) bool {
	if q.Label != nil && r.Label != *q.Label {
		return false
	}
	if q.Protocol != nil && r.Protocol != *q.Protocol {
		return false
	}
	return true
}

// Filter returns the matching records in their original order.
func Filter(records []model.FlowRecord, q Query) []model.FlowRecord {
	out := make([]model.FlowRecord, 0)
	for i := range records {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if q.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// Totals aggregates a group of flows.
type Totals struct {
	Flows   int    `json:"flows"`
	Packets uint64 `json:"packets"`
	Bytes   uint64 `json:"bytes"`
}

func (t *Totals) add(r *model.FlowRecord) {
	t.Flows++
	t.Packets += r.Packets
	t.Bytes += r.Bytes
}

func (t *Totals) merge(o Totals) {
	t.Flows += o.Flows
	t.Packets += o.Packets
	t.Bytes += o.Bytes
}

// Summary breaks a dataset down by label and by protocol.
type Summary struct {
	Total      Totals           `json:"total"`
	ByLabel    map[int]Totals   `json:"by_label"`
	ByProtocol map[uint8]Totals `json:"by_protocol"`
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		ByLabel:    make(map[int]Totals),
		ByProtocol: make(map[uint8]Totals),
	}
}

// Add folds one record into the summary.
func (s *Summary) Add(r *model.FlowRecord) {
	var t Totals
	t.add(r)
	s.AddGroup(r.Label, r.Protocol, t)
}

// AddGroup folds pre-aggregated totals of one label/protocol pair.
func (s *Summary) AddGroup(label int, protocol uint8, t Totals) {
	s.Total.merge(t)

	l := s.ByLabel[label]
	l.merge(t)
	s.ByLabel[label] = l

	p := s.ByProtocol[protocol]
	p.merge(t)
	s.ByProtocol[protocol] = p
}

// Summarize computes the totals of records.
func Summarize(records []model.FlowRecord) *Summary {
	s := NewSummary()
	for i := range records {
		s.Add(&records[i])
	}
	return s
}
