// =============================================================================
// DEX Audit Converter - XLSX Report Writer
// =============================================================================
//
// This module renders one parsed, validated and grid-analyzed DEX file into
// an XLSX workbook for the operations team. The workbook has three sheets:
//   - Summary:    machine identity, file health, totals, grid classification
//   - Selections: one row per consolidated selection audit
//   - Skipped:    every line the parser could not resolve, with its reason
//
// Monetary values are stored in cents throughout the pipeline and only
// converted to a currency amount here, at the presentation edge.
//
// =============================================================================

package reportwriter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vendinsight/dex-audit-converter/internal/types"
)

// Sheet names in the generated workbook.
const (
	SheetSummary    = "Summary"
	SheetSelections = "Selections"
	SheetSkipped    = "Skipped"
)

// =============================================================================
// WRITER
// =============================================================================

// Writer renders audit results to XLSX files. Stateless, safe for
// concurrent use.
type Writer struct{}

// New creates a report Writer.
func New() *Writer {
	return &Writer{}
}

// Write renders one file result into an XLSX workbook at outputPath.
//
// PARAMETERS:
//   - result: the parsed file, after validation and grid analysis.
//   - outputPath: destination path for the workbook. Overwritten if present.
//
// RETURNS:
//   - An error if the workbook could not be built or saved.
func (w *Writer) Write(result *types.DexFileResult, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := w.writeSummary(f, result, headerStyle); err != nil {
		return err
	}
	if err := w.writeSelections(f, result, headerStyle); err != nil {
		return err
	}
	if err := w.writeSkipped(f, result, headerStyle); err != nil {
		return err
	}

	// The default sheet is replaced by Summary.
	idx, err := f.GetSheetIndex(SheetSummary)
	if err != nil {
		return fmt.Errorf("failed to locate summary sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save report %s: %w", outputPath, err)
	}
	return nil
}

// =============================================================================
// SUMMARY SHEET
// =============================================================================

func (w *Writer) writeSummary(f *excelize.File, result *types.DexFileResult, headerStyle int) error {
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	rows := [][2]string{
		{"Source File", result.Filename},
		{"Parse Success", fmt.Sprintf("%t", result.Success)},
		{"Manufacturer", result.Machine.Manufacturer},
		{"Serial Number", result.Machine.SerialNumber},
		{"Model Number", result.Machine.ModelNumber},
		{"Firmware Revision", result.Machine.FirmwareRevision},
		{"Records Seen", fmt.Sprintf("%d", result.RecordCount)},
		{"Records Parsed", fmt.Sprintf("%d", result.ParsedCount)},
		{"Records Skipped", fmt.Sprintf("%d", len(result.Skipped))},
		{"Selections", fmt.Sprintf("%d", len(result.Selections))},
		{"Machine Total Sales", currency(result.Totals.ValueCents)},
		{"Machine Total Vends", fmt.Sprintf("%d", result.Totals.Units)},
	}

	if result.Grid != nil {
		rows = append(rows,
			[2]string{"Grid Pattern", string(result.Grid.Pattern)},
		)
		if result.Grid.Classified() {
			rows = append(rows,
				[2]string{"Grid Confidence", fmt.Sprintf("%.2f", result.Grid.Confidence)},
				[2]string{"Grid Dimensions", fmt.Sprintf("%d rows x %d columns", result.Grid.Rows, result.Grid.Columns)},
				[2]string{"Unmapped Selections", fmt.Sprintf("%d", result.Grid.UnmappedCount)},
			)
		}
	}

	if len(result.Warnings) > 0 {
		rows = append(rows, [2]string{"File Warnings", strings.Join(result.Warnings, "; ")})
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(SheetSummary, labelCell, row[0]); err != nil {
			return fmt.Errorf("failed to write summary cell: %w", err)
		}
		if err := f.SetCellStyle(SheetSummary, labelCell, labelCell, headerStyle); err != nil {
			return fmt.Errorf("failed to style summary cell: %w", err)
		}
		if err := f.SetCellValue(SheetSummary, fmt.Sprintf("B%d", i+1), row[1]); err != nil {
			return fmt.Errorf("failed to write summary cell: %w", err)
		}
	}

	if err := f.SetColWidth(SheetSummary, "A", "A", 22); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	if err := f.SetColWidth(SheetSummary, "B", "B", 60); err != nil {
		return fmt.Errorf("failed to size summary columns: %w", err)
	}
	return nil
}

// =============================================================================
// SELECTIONS SHEET
// =============================================================================

func (w *Writer) writeSelections(f *excelize.File, result *types.DexFileResult, headerStyle int) error {
	if _, err := f.NewSheet(SheetSelections); err != nil {
		return fmt.Errorf("failed to create selections sheet: %w", err)
	}

	headers := []string{"Selection", "Row", "Column", "Price", "Units Sold", "Revenue", "Warnings"}
	if err := writeHeaderRow(f, SheetSelections, headers, headerStyle); err != nil {
		return err
	}

	for i, audit := range result.Selections {
		values := []interface{}{
			audit.SelectionNumber,
			audit.Row,
			audit.Column,
			currency(audit.PriceCents),
			audit.UnitsSold,
			currency(audit.RevenueCents),
			strings.Join(audit.Warnings, "; "),
		}
		if err := writeDataRow(f, SheetSelections, i+2, values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetSelections, "G", "G", 60); err != nil {
		return fmt.Errorf("failed to size selections columns: %w", err)
	}
	return nil
}

// =============================================================================
// SKIPPED SHEET
// =============================================================================

func (w *Writer) writeSkipped(f *excelize.File, result *types.DexFileResult, headerStyle int) error {
	if _, err := f.NewSheet(SheetSkipped); err != nil {
		return fmt.Errorf("failed to create skipped sheet: %w", err)
	}

	headers := []string{"Line", "Type Code", "Reason", "Raw Line"}
	if err := writeHeaderRow(f, SheetSkipped, headers, headerStyle); err != nil {
		return err
	}

	for i, skipped := range result.Skipped {
		values := []interface{}{
			skipped.LineNumber,
			skipped.TypeCode,
			skipped.Reason,
			skipped.RawLine,
		}
		if err := writeDataRow(f, SheetSkipped, i+2, values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetSkipped, "C", "D", 50); err != nil {
		return fmt.Errorf("failed to size skipped columns: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// writeHeaderRow writes a bold header row into row 1 of a sheet.
func writeHeaderRow(f *excelize.File, sheet string, headers []string, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style header cell: %w", err)
		}
	}
	return nil
}

// writeDataRow writes one data row at the given 1-indexed row number.
func writeDataRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to compute data cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write data cell: %w", err)
		}
	}
	return nil
}

// currency renders a cent amount as a fixed two-decimal string.
func currency(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
