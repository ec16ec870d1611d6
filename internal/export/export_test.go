package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tenureline/internal/domain"
	"tenureline/internal/tenure"
)

func TestWriterWrite(t *testing.T) {
	dir := t.TempDir()
	start, _ := domain.ParseDate("2000-01-10")
	end, _ := domain.ParseDate("2004-05-22")
	res := tenure.Result{
		Tenures: []domain.Tenure{{
			TenureID:  "off-1-1",
			OfficerID: "off-1",
			PostID:    "D:ministries>home",
			Role:      "Cabinet Minister",
			StartDate: start,
			EndDate:   end,
		}},
		Errors: []tenure.DataError{{
			Kind: tenure.KindNoManager, Path: "te.off-1-1", Message: "no manager",
		}},
	}

	w := NewWriter(filepath.Join(dir, "out"), []domain.Officer{
		{OfficerID: "off-1", Name: "A. Officer"},
	})
	w.Now = func() time.Time { return end }
	if err := w.Write(res); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out", TenuresJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Tenures) != 1 || doc.Tenures[0].TenureID != "off-1-1" {
		t.Fatalf("unexpected tenures: %+v", doc.Tenures)
	}
	if got := domain.FormatDate(doc.Tenures[0].StartDate); got != "2000-01-10" {
		t.Fatalf("start date round trip: %s", got)
	}

	csv, err := os.ReadFile(filepath.Join(dir, "out", TenuresCSVFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	if len(lines) != 2 {
		t.Fatalf("want header plus one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "A. Officer") {
		t.Fatalf("officer name missing from csv row: %s", lines[1])
	}

	errRaw, err := os.ReadFile(filepath.Join(dir, "out", ErrorsJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(errRaw), tenure.KindNoManager) {
		t.Fatalf("errors file missing kind: %s", errRaw)
	}
}
