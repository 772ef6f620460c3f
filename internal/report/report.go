// Package report writes the per-session summary and the operator report.
package report

import (
	"FlowFeatures/internal/engine/manager"
	"FlowFeatures/internal/model"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
)

// topFlows is how many flows the report lists.
const topFlows = 5

// Summary holds the metadata of one exported session.
type Summary struct {
	SessionID    string    `json:"session_id"`
	Label        int       `json:"label"`
	RawPackets   uint64    `json:"raw_packets"`
	UsedPackets  uint64    `json:"used_packets"`
	TotalFlows   int       `json:"total_flows"`
	TotalPackets uint64    `json:"total_packets"`
	TotalBytes   uint64    `json:"total_bytes"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Output       string    `json:"output,omitempty"`
	Advisory     []string  `json:"advisory,omitempty"`

	top []model.FlowRecord
}

// NewSummary builds the summary of an export. output names where the rows went.
func NewSummary(res *manager.ExportResult, output string) Summary {
	top := slices.Clone(res.Records)
	slices.SortStableFunc(top, func(a, b model.FlowRecord) int {
		switch {
		case a.Bytes > b.Bytes:
			return -1
		case a.Bytes < b.Bytes:
			return 1
		default:
			return strings.Compare(a.FlowID, b.FlowID)
		}
	})
	if len(top) > topFlows {
		top = top[:topFlows]
	}

	return Summary{
		SessionID:    res.SessionID,
		Label:        res.Label,
		RawPackets:   res.Raw,
		UsedPackets:  res.Used,
		TotalFlows:   res.Rows,
		TotalPackets: res.TotalPackets,
		TotalBytes:   res.TotalBytes,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.StoppedAt,
		Output:       output,
		Advisory:     res.Counters.Advisory(),
		top:          top,
	}
}

// WriteSummary writes the summary as indented JSON.
func WriteSummary(path string, s Summary) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return file.Close()
}

// Markdown renders the operator report.
func Markdown(s Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Capture session %s\n\n", s.SessionID)
	fmt.Fprintf(&sb, "- **Label:** %d\n", s.Label)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Window:** %s to %s\n", s.StartedAt.Format(time.RFC3339), s.FinishedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "- **Raw packets seen:** %d\n", s.RawPackets)
	fmt.Fprintf(&sb, "- **Used TCP/UDP packets:** %d\n", s.UsedPackets)
	fmt.Fprintf(&sb, "- **Flows created:** %d\n", s.TotalFlows)
	if s.Output != "" {
		fmt.Fprintf(&sb, "- **Output:** `%s`\n", s.Output)
	}

	if len(s.Advisory) > 0 {
		sb.WriteString("\n## Advisory\n\n")
		sb.WriteString(s.Advisory[0] + "\n\n")
		for _, hint := range s.Advisory[1:] {
			sb.WriteString("- " + hint + "\n")
		}
	}

	if len(s.top) > 0 {
		sb.WriteString("\n## Top flows by bytes\n\n")
		sb.WriteString("| FlowID | Packets | Bytes | DurationMs |\n")
		sb.WriteString("|---|---:|---:|---:|\n")
		for _, r := range s.top {
			fmt.Fprintf(&sb, "| %s | %d | %d | %d |\n", r.FlowID, r.Packets, r.Bytes, r.DurationMs)
		}
	}
	return sb.String()
}

// WriteHTML renders the markdown report to an HTML file.
func WriteHTML(path string, s Summary) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	html := markdown.ToHTML([]byte(Markdown(s)), nil, nil)
	if err := os.WriteFile(path, html, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}
	return nil
}
