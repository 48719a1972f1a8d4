package dexparser

import (
	"strings"
	"testing"

	"github.com/vendinsight/dex-audit-converter/internal/config"
	"github.com/vendinsight/dex-audit-converter/internal/types"
)

// builtinTable builds the manufacturer table the parser normally receives
// from config loading.
func builtinTable() map[string]*config.ManufacturerConfig {
	table := make(map[string]*config.ManufacturerConfig)
	for _, m := range config.BuiltinManufacturers() {
		table[m.ManufacturerCode] = m
	}
	return table
}

func findSelection(t *testing.T, result *types.DexFileResult, selection string) *types.SelectionAudit {
	t.Helper()
	for _, audit := range result.Selections {
		if audit.SelectionNumber == selection {
			return audit
		}
	}
	t.Fatalf("selection %q not found in result (have %d selections)", selection, len(result.Selections))
	return nil
}

func TestParseWellFormedFile(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"ST*001*0001",
		"ID1*VEN0012345*FSI-3039*1234",
		"ID4*2*USD",
		"VA1*10850*31*10850*31",
		"PA1*A1*250",
		"PA2*12*3000*12*3000",
		"PA1*A2*200",
		"PA2*19*3800*19*3800",
		"G85*04FC",
		"SE*10*0001",
		"DXE*1*1",
	}, "\r\n")

	result := New(builtinTable()).Parse(content, "machine.dex")

	if !result.Success {
		t.Fatalf("expected success, got failure with warnings %v", result.Warnings)
	}
	if result.Machine.SerialNumber != "VEN0012345" {
		t.Errorf("serial = %q, want VEN0012345", result.Machine.SerialNumber)
	}
	if result.Machine.Manufacturer != "Vendo" {
		t.Errorf("manufacturer = %q, want Vendo", result.Machine.Manufacturer)
	}
	if result.Totals.ValueCents != 10850 || result.Totals.Units != 31 {
		t.Errorf("totals = %+v, want 10850 cents / 31 units", result.Totals)
	}
	if len(result.Selections) != 2 {
		t.Fatalf("got %d selections, want 2", len(result.Selections))
	}

	a1 := findSelection(t, result, "A1")
	if a1.PriceCents != 250 || a1.UnitsSold != 12 || a1.RevenueCents != 3000 {
		t.Errorf("A1 = %+v, want price 250, units 12, revenue 3000", a1)
	}

	// File order must be preserved.
	if result.Selections[0].SelectionNumber != "A1" || result.Selections[1].SelectionNumber != "A2" {
		t.Errorf("selection order = %q, %q, want A1, A2",
			result.Selections[0].SelectionNumber, result.Selections[1].SelectionNumber)
	}
	if len(result.Skipped) != 0 {
		t.Errorf("unexpected skipped records: %+v", result.Skipped)
	}
}

func TestParseMissingTrailerKeepsData(t *testing.T) {
	lines := []string{"DXS*VN123456789*VA*V1/1*1"}
	selections := []string{"A1", "A2", "A3", "B1", "B2"}
	for _, s := range selections {
		lines = append(lines, "PA1*"+s+"*150", "PA2*2*300*2*300")
	}
	// Truncated transmission: no G85, no DXE.

	result := New(nil).Parse(strings.Join(lines, "\n"), "truncated.dex")

	if result.Success {
		t.Fatal("expected failure for missing DXE trailer")
	}
	if len(result.Selections) != 5 {
		t.Fatalf("got %d selections, want all 5 despite the failure", len(result.Selections))
	}
	wantWarning := "missing DXE trailer record"
	if !containsString(result.Warnings, wantWarning) {
		t.Errorf("warnings %v missing %q", result.Warnings, wantWarning)
	}
}

func TestParseRepeatedSelectionSumsCounters(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"PA1*A1*150",
		"PA2*3*450*3*450",
		"PA1*A1*150",
		"PA2*4*600*4*600",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "repeat.dex")

	if len(result.Selections) != 1 {
		t.Fatalf("got %d selections, want 1 consolidated", len(result.Selections))
	}
	a1 := result.Selections[0]
	if a1.UnitsSold != 7 {
		t.Errorf("units = %d, want 3+4 = 7", a1.UnitsSold)
	}
	if a1.RevenueCents != 1050 {
		t.Errorf("revenue = %d, want 1050", a1.RevenueCents)
	}
	if len(a1.Warnings) != 0 {
		t.Errorf("equal prices must not warn, got %v", a1.Warnings)
	}
}

func TestParseConflictingPricesLastNonZeroWins(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"PA1*A1*150",
		"PA2*3*450*3*450",
		"PA1*A1*200",
		"PA2*1*200*1*200",
		"PA1*A1*0",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "conflict.dex")

	a1 := findSelection(t, result, "A1")
	if a1.PriceCents != 200 {
		t.Errorf("price = %d, want last non-zero 200", a1.PriceCents)
	}
	if len(a1.Warnings) != 1 {
		t.Fatalf("got %d warnings, want exactly 1 for the 150/200 conflict: %v", len(a1.Warnings), a1.Warnings)
	}
}

func TestParseResetCountersFallback(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"PA1*B4*125",
		"PA2*0*0*6*750",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "reset.dex")

	b4 := findSelection(t, result, "B4")
	if b4.UnitsSold != 6 || b4.RevenueCents != 750 {
		t.Errorf("got units %d revenue %d, want reset pair 6/750 when init pair is zero",
			b4.UnitsSold, b4.RevenueCents)
	}
}

func TestParseUnknownAndInvalidRecords(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"ZZ9*vendor*specific",
		"9XX*bad*code",
		"PA1*A1*100",
		"PA2*1*100*1*100",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "junk.dex")

	if !result.Success {
		t.Fatalf("junk lines must not fail the file, warnings %v", result.Warnings)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("got %d skipped, want 2: %+v", len(result.Skipped), result.Skipped)
	}
	if result.Skipped[0].TypeCode != "ZZ9" || result.Skipped[0].Reason != "unknown record type" {
		t.Errorf("skipped[0] = %+v, want ZZ9 / unknown record type", result.Skipped[0])
	}
	if result.Skipped[1].Reason != "invalid record type code" {
		t.Errorf("skipped[1] = %+v, want invalid record type code", result.Skipped[1])
	}
	if result.Skipped[1].LineNumber != 3 {
		t.Errorf("skipped[1] line = %d, want 3", result.Skipped[1].LineNumber)
	}
}

func TestParseOrphanPA2IsSkipped(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"PA2*3*450*3*450",
		"PA1*A1*150",
		"PA2*2*300*2*300",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "orphan.dex")

	if len(result.Skipped) != 1 {
		t.Fatalf("got %d skipped, want 1 orphan: %+v", len(result.Skipped), result.Skipped)
	}
	if !strings.Contains(result.Skipped[0].Reason, "no preceding PA1") {
		t.Errorf("reason = %q, want orphan explanation", result.Skipped[0].Reason)
	}
	a1 := findSelection(t, result, "A1")
	if a1.UnitsSold != 2 {
		t.Errorf("units = %d, orphan counters must not attach", a1.UnitsSold)
	}
}

func TestParsePA7SelfContained(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"PA7*101*1*175*8*1400*8*1400",
		"PA7*102*1*225*2*450*2*450",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "pa7.dex")

	if len(result.Selections) != 2 {
		t.Fatalf("got %d selections, want 2", len(result.Selections))
	}
	sel := findSelection(t, result, "101")
	if sel.PriceCents != 175 || sel.UnitsSold != 8 || sel.RevenueCents != 1400 {
		t.Errorf("101 = %+v, want price 175, units 8, revenue 1400", sel)
	}
}

func TestParseAMSFieldOrder(t *testing.T) {
	// AMS firmware inserts a product identifier between selection and price.
	content := strings.Join([]string{
		"DXS*AMS0099999*VA*V1/1*1",
		"ID1*AMS0099999*SENSIT3*210",
		"PA1*12*78652*150",
		"PA2*5*750*5*750",
		"DXE*1*1",
	}, "\n")

	result := New(builtinTable()).Parse(content, "ams.dex")

	if result.Machine.Manufacturer != "AMS" {
		t.Fatalf("manufacturer = %q, want AMS", result.Machine.Manufacturer)
	}
	sel := findSelection(t, result, "12")
	if sel.PriceCents != 150 {
		t.Errorf("price = %d, want 150 from the third field, not the product id", sel.PriceCents)
	}
}

func TestParseCraneDecimalPrices(t *testing.T) {
	content := strings.Join([]string{
		"DXS*CRN5550001*VA*V1/1*1",
		"ID1*CRN5550001*MERCHANT4*402",
		"PA1*A1*2.50*10*8",
		"PA2*4*10.00*4*10.00",
		"DXE*1*1",
	}, "\n")

	result := New(builtinTable()).Parse(content, "crane.dex")

	a1 := findSelection(t, result, "A1")
	if a1.PriceCents != 250 {
		t.Errorf("price = %d, want 2.50 normalized to 250 cents", a1.PriceCents)
	}
	if a1.RevenueCents != 1000 {
		t.Errorf("revenue = %d, want 10.00 normalized to 1000 cents", a1.RevenueCents)
	}
}

func TestParseID4ScalesIntegerMoney(t *testing.T) {
	// DPP 0 means monetary integers are whole currency units.
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"ID4*0*USD",
		"PA1*A1*3",
		"PA2*2*6*2*6",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "id4.dex")

	a1 := findSelection(t, result, "A1")
	if a1.PriceCents != 300 {
		t.Errorf("price = %d, want 3 whole units scaled to 300 cents", a1.PriceCents)
	}
	if a1.RevenueCents != 600 {
		t.Errorf("revenue = %d, want 600 cents", a1.RevenueCents)
	}
	if result.Machine.DecimalPointPosition != 0 {
		t.Errorf("dpp = %d, want 0", result.Machine.DecimalPointPosition)
	}
}

func TestParseBOMAndBlankLines(t *testing.T) {
	content := "\uFEFFDXS*VN123456789*VA*V1/1*1\r\n\r\nPA1*A1*100\rPA2*1*100*1*100\nDXE*1*1\n"

	result := New(nil).Parse(content, "bom.dex")

	if !result.Success {
		t.Fatalf("expected success, warnings %v", result.Warnings)
	}
	if result.RecordCount != 4 {
		t.Errorf("record count = %d, want 4 non-empty lines", result.RecordCount)
	}
}

func TestParseSECountMismatchWarns(t *testing.T) {
	content := strings.Join([]string{
		"DXS*VN123456789*VA*V1/1*1",
		"ST*001*0001",
		"PA1*A1*100",
		"PA2*1*100*1*100",
		"SE*99*0001",
		"DXE*1*1",
	}, "\n")

	result := New(nil).Parse(content, "se.dex")

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "SE declares") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v missing SE segment count mismatch", result.Warnings)
	}
}

func TestParseEmptyContent(t *testing.T) {
	result := New(nil).Parse("", "empty.dex")

	if result.Success {
		t.Fatal("empty file must not succeed")
	}
	if result.RecordCount != 0 || len(result.Selections) != 0 {
		t.Errorf("empty file produced records=%d selections=%d", result.RecordCount, len(result.Selections))
	}
}

func TestValidTypeCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"PA1", true},
		{"ST", true},
		{"CA10", true},
		{"G85", true},
		{"X", false},
		{"1AB", false},
		{"TOOLONG", false},
		{"PA-1", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := validTypeCode(tc.code); got != tc.want {
			t.Errorf("validTypeCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
