package report

import (
	"FlowFeatures/internal/engine/manager"
	"FlowFeatures/internal/model"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func exportResult(used uint64, records ...model.FlowRecord) *manager.ExportResult {
	res := &manager.ExportResult{
		Counters: manager.Counters{
			SessionID: "3f1c",
			Label:     1,
			Raw:       used + 2,
			Used:      used,
			Flows:     len(records),
			StartedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
			StoppedAt: time.Date(2026, 10, 17, 9, 0, 20, 0, time.UTC),
		},
		Rows:    len(records),
		Records: records,
	}
	for _, r := range records {
		res.TotalPackets += r.Packets
		res.TotalBytes += r.Bytes
	}
	return res
}

func TestWriteSummary(t *testing.T) {
	res := exportResult(7,
		model.FlowRecord{FlowID: "a", Packets: 5, Bytes: 1000},
		model.FlowRecord{FlowID: "b", Packets: 2, Bytes: 120},
	)
	path := filepath.Join(t.TempDir(), "run", "summary.json")
	if err := WriteSummary(path, NewSummary(res, "flows.csv")); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("summary.json was not created: %v", err)
	}
	var got Summary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal summary.json: %v", err)
	}
	if got.TotalFlows != 2 || got.TotalPackets != 7 || got.TotalBytes != 1120 {
		t.Errorf("unexpected totals: %+v", got)
	}
	if got.RawPackets != 9 || got.UsedPackets != 7 || got.Label != 1 {
		t.Errorf("unexpected counters: %+v", got)
	}
	if len(got.Advisory) != 0 {
		t.Errorf("no advisory expected, got %v", got.Advisory)
	}
}

func TestMarkdown_TopFlowsAndAdvisory(t *testing.T) {
	md := Markdown(NewSummary(exportResult(3,
		model.FlowRecord{FlowID: "small", Bytes: 10},
		model.FlowRecord{FlowID: "large", Bytes: 900},
	), ""))
	if strings.Index(md, "large") > strings.Index(md, "small") {
		t.Errorf("flows should be ordered by bytes:\n%s", md)
	}
	if strings.Contains(md, "Advisory") {
		t.Errorf("unexpected advisory section")
	}

	empty := Markdown(NewSummary(exportResult(0), ""))
	if !strings.Contains(empty, "No TCP/UDP packets were captured.") {
		t.Errorf("empty session should carry the advisory:\n%s", empty)
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	s := NewSummary(exportResult(1, model.FlowRecord{FlowID: "10.0.0.1:1-10.0.0.2:2-P17", Packets: 1, Bytes: 60}), "flows.csv")
	if err := WriteHTML(path, s); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	for _, want := range []string{"<h1", "<table>", "10.0.0.1:1-10.0.0.2:2-P17"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("report missing %q:\n%s", want, html)
		}
	}
}
