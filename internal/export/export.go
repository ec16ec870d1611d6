// Package export writes reconstructed tenures to disk in the formats
// downstream consumers read: a JSON document and a flat CSV.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"tenureline/internal/domain"
	"tenureline/internal/tenure"
)

const (
	TenuresJSONFile = "post_tenures.json"
	TenuresCSVFile  = "post_tenures.csv"
	ErrorsJSONFile  = "tenure_errors.json"
)

// Document is the JSON shape of an export: the tenures plus the data errors
// found while building them.
type Document struct {
	Tenures []domain.Tenure    `json:"tenures"`
	Errors  []tenure.DataError `json:"errors,omitempty"`
}

// Writer renders one build result into a directory.
type Writer struct {
	Dir      string
	Officers map[string]domain.Officer
	Now      func() time.Time
}

func NewWriter(dir string, officers []domain.Officer) *Writer {
	byID := make(map[string]domain.Officer, len(officers))
	for _, o := range officers {
		byID[o.OfficerID] = o
	}
	return &Writer{Dir: dir, Officers: byID, Now: time.Now}
}

// Write renders the result to JSON and CSV files under the writer's
// directory, creating it if needed.
func (w *Writer) Write(res tenure.Result) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}
	if err := w.writeJSON(TenuresJSONFile, Document{Tenures: res.Tenures}); err != nil {
		return err
	}
	if err := w.writeJSON(ErrorsJSONFile, struct {
		Errors []tenure.DataError `json:"errors"`
	}{Errors: res.Errors}); err != nil {
		return err
	}
	return w.writeCSV(res.Tenures)
}

func (w *Writer) writeJSON(name string, v any) error {
	f, err := os.Create(filepath.Join(w.Dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}

func (w *Writer) writeCSV(tenures []domain.Tenure) error {
	f, err := os.Create(filepath.Join(w.Dir, TenuresCSVFile))
	if err != nil {
		return err
	}
	defer f.Close()

	tw := table.NewWriter()
	tw.SetOutputMirror(f)
	tw.AppendHeader(table.Row{
		"tenure_id", "officer_id", "officer_name", "post_id", "role",
		"start_date", "end_date", "duration_days", "manager_ids",
	})
	now := w.Now()
	for _, t := range tenures {
		name := ""
		if o, ok := w.Officers[t.OfficerID]; ok {
			name = o.Name
		}
		tw.AppendRow(table.Row{
			t.TenureID, t.OfficerID, name, t.PostID, t.Role,
			domain.FormatDate(t.StartDate), domain.FormatDate(t.EndDate),
			t.DurationDays(now), joinIDs(t.ManagerIDs),
		})
	}
	tw.RenderCSV()
	return f.Close()
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += "|"
		}
		out += id
	}
	return out
}
