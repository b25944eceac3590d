package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/distplan/pkg/application/dto"
)

// Workbook builds an xlsx workbook with a summary sheet followed by one
// sheet per report
func Workbook(result *dto.PlanResult) (*excelize.File, error) {
	if result.Plan == nil {
		return nil, fmt.Errorf("no plan to export: %s", result.InfeasibilityMessage)
	}

	f := excelize.NewFile()
	summary := "summary"
	if err := f.SetSheetName(f.GetSheetName(0), summary); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	s := result.Plan.Summary
	summaryRows := [][]any{
		{"run_id", result.RunID.String()},
		{"status", result.TerminationCondition},
		{"objective", result.ObjectiveValue},
		{"gap", result.Gap},
		{"solve_time_seconds", result.SolveTimeSeconds},
		{"total_demand", s.TotalDemand},
		{"total_shortage", s.TotalShortage},
		{"fill_rate", s.FillRate},
		{"total_produced", s.TotalProduced},
		{"total_shipped", s.TotalShipped},
		{"total_disposed", s.TotalDisposed},
		{"ending_inventory", s.EndingInventory},
		{"labor_hours", s.LaborHours},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, err
		}
	}
	f.SetCellStyle(summary, "A1", fmt.Sprintf("A%d", len(summaryRows)), headerStyle)
	f.SetColWidth(summary, "A", "A", 20)
	f.SetColWidth(summary, "B", "B", 40)

	for _, t := range tables(result.Plan) {
		if _, err := f.NewSheet(t.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", t.name, err)
		}
		for i, h := range t.header {
			col, _ := excelize.ColumnNumberToName(i + 1)
			cell := col + "1"
			f.SetCellValue(t.name, cell, h)
			f.SetCellStyle(t.name, cell, cell, headerStyle)
			f.SetColWidth(t.name, col, col, 14)
		}
		for r, row := range t.rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				f.SetCellValue(t.name, cell, cellValue(v))
			}
		}
	}

	return f, nil
}

// cellValue stores numeric report fields as numbers
func cellValue(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func generateXLSXOutput(w io.Writer, result *dto.PlanResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for XLSX format")
	}

	f, err := Workbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "plan.xlsx")
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to write XLSX file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(w, "💾 Workbook saved to: %s\n", filename)
	}
	return nil
}
