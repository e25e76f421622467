package export

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"proposaldesk/internal/proposal"
)

const (
	sheetProposals = "Proposals"
	sheetSummary   = "Summary"
)

var reportHeaders = []string{
	"ID", "Title", "Department", "Proposer", "Status", "Version", "Budget", "Event Date", "Venue", "Updated",
}

var statusColumns = []proposal.Status{
	proposal.StatusPending, proposal.StatusReviewed, proposal.StatusApproved, proposal.StatusRejected,
}

// ProposalReport builds an XLSX workbook with one row per proposal and a
// per-department status summary.
func ProposalReport(proposals []proposal.Proposal, generatedAt time.Time) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetProposals); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(f, sheetProposals, 1, toRow(reportHeaders)); err != nil {
		return nil, err
	}
	for i, p := range proposals {
		row := []any{
			p.ID, p.Title, p.Department, p.ProposerName, p.Status.String(), p.Version,
			p.Budget, p.EventDate, p.Venue, p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writeRow(f, sheetProposals, i+2, row); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(reportHeaders))
	if err := f.SetCellStyle(sheetProposals, "A1", last+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheetProposals, "B", "B", 40); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(sheetProposals, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	if err := writeSummary(f, proposals, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: "proposals-" + generatedAt.UTC().Format("20060102") + ".xlsx",
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

func writeSummary(f *excelize.File, proposals []proposal.Proposal, headerStyle int) error {
	counts := map[string]map[proposal.Status]int{}
	for _, p := range proposals {
		if counts[p.Department] == nil {
			counts[p.Department] = map[proposal.Status]int{}
		}
		counts[p.Department][p.Status]++
	}
	departments := make([]string, 0, len(counts))
	for d := range counts {
		departments = append(departments, d)
	}
	slices.Sort(departments)

	header := []any{"Department"}
	for _, s := range statusColumns {
		header = append(header, s.String())
	}
	header = append(header, "Total")
	if err := writeRow(f, sheetSummary, 1, header); err != nil {
		return err
	}
	for i, d := range departments {
		row := []any{d}
		total := 0
		for _, s := range statusColumns {
			row = append(row, counts[d][s])
			total += counts[d][s]
		}
		row = append(row, total)
		if err := writeRow(f, sheetSummary, i+2, row); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheetSummary, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
