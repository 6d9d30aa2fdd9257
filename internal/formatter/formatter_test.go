package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tracklift/tracklift/internal/models"
)

func sampleReport() *models.JobReport {
	report := &models.JobReport{
		ID:     "job-1",
		Status: models.StatusCompletedWithErrors,
		Source: models.PlaylistRef{Provider: "spotify", ID: "pl1", Name: "Road Trip"},
		Target: &models.PlaylistRef{Provider: "tidal", ID: "new1", Name: "Road Trip"},
		Items: []models.TransferItemResult{
			{
				Source:  models.TrackRef{Provider: "spotify", ID: "s1", Title: "Song One", Artists: []string{"Artist One"}, Duration: 185},
				Outcome: models.OutcomeMatched,
				Matched: &models.TrackRef{Provider: "tidal", ID: "t1", Title: "Song One"},
				Score:   0.95,
			},
			{
				Source:  models.TrackRef{Provider: "spotify", ID: "s2", Title: "Song Two", Artists: []string{"Artist Two"}, Duration: 240},
				Outcome: models.OutcomeNoMatch,
			},
			{
				Source:  models.TrackRef{Provider: "spotify", ID: "s3", Title: "Song Three", Artists: []string{"Artist Three"}},
				Outcome: models.OutcomeProviderError,
				Err:     "tidal returned status 503",
			},
		},
	}
	report.Tally()
	return report
}

func TestReportJSON(t *testing.T) {
	data, err := ReportJSON(sampleReport())
	if err != nil {
		t.Fatalf("ReportJSON failed: %v", err)
	}

	var decoded models.JobReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ID != "job-1" || len(decoded.Items) != 3 {
		t.Errorf("roundtrip lost data: %+v", decoded)
	}
	if decoded.Counts.Matched != 1 || decoded.Counts.Errors != 1 {
		t.Errorf("counts missing from JSON: %+v", decoded.Counts)
	}
}

func TestReportCSV(t *testing.T) {
	data, err := ReportCSV(sampleReport())
	if err != nil {
		t.Fatalf("ReportCSV failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if records[0][0] != "Index" || records[0][4] != "Outcome" {
		t.Errorf("unexpected headers: %v", records[0])
	}
	if records[1][4] != "matched" || records[1][5] != "t1" || records[1][7] != "0.95" {
		t.Errorf("unexpected matched row: %v", records[1])
	}
	if records[2][4] != "no_match" || records[2][5] != "" {
		t.Errorf("unexpected no_match row: %v", records[2])
	}
	if records[3][8] != "tidal returned status 503" {
		t.Errorf("error text missing: %v", records[3])
	}
}

func TestReportText(t *testing.T) {
	output := string(ReportText(sampleReport()))

	for _, want := range []string{
		"Status: completed_with_errors",
		"Source: Road Trip (spotify)",
		"Target: Road Trip (tidal)",
		"1 matched, 0 ambiguous, 1 unmatched, 1 errors",
		"✓ Artist One - Song One [3:05]",
		"✗ Artist Two - Song Two",
		"! Artist Three - Song Three",
		"tidal returned status 503",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("text output missing %q, got:\n%s", want, output)
		}
	}
}

func TestWriteReport(t *testing.T) {
	tc := []struct {
		format string
		want   string
	}{
		{"json", `"status": "completed_with_errors"`},
		{"csv", "Index,Source ID"},
		{"text", "Job: job-1"},
		{"", "Job: job-1"}, // unknown formats fall back to text
	}

	for _, tt := range tc {
		var buf bytes.Buffer
		if err := WriteReport(&buf, sampleReport(), tt.format); err != nil {
			t.Fatalf("WriteReport(%q) failed: %v", tt.format, err)
		}
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("format %q: expected output containing %q", tt.format, tt.want)
		}
	}
}
