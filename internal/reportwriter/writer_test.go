package reportwriter

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/vendinsight/dex-audit-converter/internal/types"
)

func sampleResult() *types.DexFileResult {
	return &types.DexFileResult{
		Filename: "machine.dex",
		Success:  true,
		Machine: types.MachineHeader{
			SerialNumber:         "VEN0012345",
			ModelNumber:          "FSI-3039",
			Manufacturer:         "Vendo",
			DecimalPointPosition: 2,
		},
		Totals:      types.VendTotals{ValueCents: 4500, Units: 25},
		RecordCount: 12,
		ParsedCount: 11,
		Selections: []*types.SelectionAudit{
			{SelectionNumber: "A1", PriceCents: 250, UnitsSold: 12, RevenueCents: 3000, Row: "A", Column: "1"},
			{SelectionNumber: "A2", PriceCents: 150, UnitsSold: 10, RevenueCents: 1500, Row: "A", Column: "2",
				Warnings: []string{"conflicting prices 100 and 150 cents; keeping 150"}},
		},
		Skipped: []types.SkippedRecord{
			{LineNumber: 7, RawLine: "ZZ9*x", TypeCode: "ZZ9", Reason: "unknown record type"},
		},
		Grid: &types.GridAnalysis{
			Pattern:    types.PatternAlphanumeric,
			Confidence: 1.0,
			Rows:       1,
			Columns:    2,
		},
	}
}

func TestWriteProducesThreeSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	if err := New().Write(sampleResult(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening report: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := map[string]bool{SheetSummary: false, SheetSelections: false, SheetSkipped: false}
	for _, s := range sheets {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("sheet %s missing, have %v", name, sheets)
		}
	}
}

func TestWriteSelectionRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := New().Write(sampleResult(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening report: %v", err)
	}
	defer f.Close()

	cases := []struct {
		cell string
		want string
	}{
		{"A1", "Selection"},
		{"A2", "A1"},
		{"B2", "A"},
		{"C2", "1"},
		{"D2", "2.50"},
		{"F2", "30.00"},
		{"A3", "A2"},
	}
	for _, tc := range cases {
		got, err := f.GetCellValue(SheetSelections, tc.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tc.cell, err)
		}
		if got != tc.want {
			t.Errorf("%s!%s = %q, want %q", SheetSelections, tc.cell, got, tc.want)
		}
	}
}

func TestWriteSkippedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := New().Write(sampleResult(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening report: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue(SheetSkipped, "C2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "unknown record type" {
		t.Errorf("skipped reason = %q, want unknown record type", got)
	}
}

func TestCurrencyFormatting(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{250, "2.50"},
		{10850, "108.50"},
	}
	for _, tc := range cases {
		if got := currency(tc.cents); got != tc.want {
			t.Errorf("currency(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
