// package formatter renders transfer job reports for the CLI (JSON, CSV,
// plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/shared"
)

// ReportJSON renders a JobReport as indented JSON.
func ReportJSON(report *models.JobReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ReportCSV renders one row per transfer item with columns:
// Index, Source ID, Source Title, Source Artist, Outcome, Target ID, Target Title, Score, Error
func ReportCSV(report *models.JobReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Source ID", "Source Title", "Source Artist", "Outcome", "Target ID", "Target Title", "Score", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range report.Items {
		targetID, targetTitle, score := "", "", ""
		if item.Matched != nil {
			targetID = item.Matched.ID
			targetTitle = item.Matched.Title
			score = strconv.FormatFloat(item.Score, 'f', 2, 64)
		}
		record := []string{
			strconv.Itoa(i + 1),
			item.Source.ID,
			item.Source.Title,
			item.Source.PrimaryArtist(),
			string(item.Outcome),
			targetID,
			targetTitle,
			score,
			item.Err,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportText renders a human-readable summary with one line per track.
func ReportText(report *models.JobReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Job: %s\n", report.ID))
	buf.WriteString(fmt.Sprintf("Status: %s\n", report.Status))
	buf.WriteString(fmt.Sprintf("Source: %s (%s)\n", report.Source.Name, report.Source.Provider))
	if report.Target != nil {
		buf.WriteString(fmt.Sprintf("Target: %s (%s)\n", report.Target.Name, report.Target.Provider))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d matched, %d ambiguous, %d unmatched, %d errors\n\n",
		report.Counts.Matched, report.Counts.Ambiguous, report.Counts.NoMatch, report.Counts.Errors))

	for i, item := range report.Items {
		symbol := "?"
		switch item.Outcome {
		case models.OutcomeMatched:
			symbol = "✓"
		case models.OutcomeNoMatch:
			symbol = "✗"
		case models.OutcomeProviderError:
			symbol = "!"
		}

		line := fmt.Sprintf("%3d. %s %s - %s [%s]", i+1, symbol, item.Source.PrimaryArtist(), item.Source.Title, shared.FormatDuration(item.Source.Duration))
		if item.Matched != nil && item.Matched.Title != item.Source.Title {
			line += fmt.Sprintf(" → %s", item.Matched.Title)
		}
		if item.Err != "" {
			line += fmt.Sprintf(" (%s)", item.Err)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes()
}

// WriteReport renders the report in the requested format ("json", "csv",
// or "text") to w. Unknown formats fall back to text.
func WriteReport(w io.Writer, report *models.JobReport, format string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "json":
		data, err = ReportJSON(report)
	case "csv":
		data, err = ReportCSV(report)
	default:
		data = ReportText(report)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
