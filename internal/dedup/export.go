package dedup

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	groupsSheet  = "Duplicates"
	summarySheet = "Summary"
)

var exportHeader = []any{
	"Group", "Score", "Keep", "Question ID", "Question", "Topic", "Class Level", "Subject", "Created At",
}

// WriteWorkbook writes r as an XLSX workbook: one row per group member on
// the Duplicates sheet, totals on the Summary sheet. The oldest member of
// each group, the one deletion keeps, is marked in the Keep column.
func WriteWorkbook(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", groupsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(groupsSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(groupsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	row := 2
	for gi, g := range r.Groups {
		for qi, q := range g.Questions {
			keep := ""
			if qi == 0 {
				keep = "yes"
			}
			values := []any{
				gi + 1,
				g.Score,
				keep,
				q.ID,
				q.Text,
				q.TopicTitle,
				q.ClassLevel,
				q.SubjectName,
				q.CreatedAt.UTC().Format(time.RFC3339),
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(groupsSheet, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}
	if err := f.SetColWidth(groupsSheet, "D", "D", 38); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(groupsSheet, "E", "E", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"Threshold", r.Threshold},
		{"Total Groups", r.TotalGroups},
		{"Total Duplicates", r.TotalDuplicates},
		{"Generated At", r.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	for i, values := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
