package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"ruleforge-hq/anvil/pkg/report"
)

// Exporter writes runs in some format.
type Exporter interface {
	Export(ctx context.Context, runs []*report.Run, w io.Writer) error
}

// New returns the exporter for format ("json" or "csv").
func New(format string) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(true), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// JSONExporter writes runs as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes runs as a JSON array; no runs produce "[]".
func (e *JSONExporter) Export(ctx context.Context, runs []*report.Run, w io.Writer) error {
	if runs == nil {
		runs = []*report.Run{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(runs); err != nil {
		return report.NewExportError("json", len(runs), err)
	}
	return nil
}

// CSVExporter writes one row per violation. Runs without violations get a
// single row with empty violation columns.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"run_id", "board", "status", "started_at", "duration_ms",
	"rule", "severity", "item_a", "item_b", "message", "fault",
}

// Export writes runs in CSV format.
func (e *CSVExporter) Export(ctx context.Context, runs []*report.Run, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return report.NewExportError("csv", len(runs), err)
		}
	}

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}

		prefix := []string{
			run.ID,
			run.Board,
			run.Status,
			run.StartedAt.Format(time.RFC3339),
			strconv.FormatInt(run.Duration.Milliseconds(), 10),
		}

		if len(run.Violations) == 0 {
			row := append(append([]string{}, prefix...), "", "", "", "", "", "")
			if err := writer.Write(row); err != nil {
				return report.NewExportError("csv", len(runs), err)
			}
			continue
		}

		for _, v := range run.Violations {
			row := append(append([]string{}, prefix...),
				v.Rule, v.Severity, v.ItemA, v.ItemB, v.Message, v.Fault)
			if err := writer.Write(row); err != nil {
				return report.NewExportError("csv", len(runs), err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return report.NewExportError("csv", len(runs), err)
	}
	return nil
}
