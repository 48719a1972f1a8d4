package validation

import (
	"strings"
	"testing"

	"github.com/vendinsight/dex-audit-converter/internal/types"
)

func resultWith(selections ...*types.SelectionAudit) *types.DexFileResult {
	return &types.DexFileResult{Selections: selections}
}

func TestConsistentAuditHasNoFindings(t *testing.T) {
	parsed := resultWith(
		&types.SelectionAudit{SelectionNumber: "A1", PriceCents: 150, UnitsSold: 10, RevenueCents: 1500},
		&types.SelectionAudit{SelectionNumber: "A2", PriceCents: 200, UnitsSold: 0, RevenueCents: 0},
	)

	result := New(1.0, 5).Validate(parsed)

	if !result.IsValid {
		t.Fatalf("expected valid, findings: %v", result.Findings)
	}
	if len(result.Findings) != 0 {
		t.Errorf("got %d findings, want none: %v", len(result.Findings), result.Findings)
	}
	if result.SelectionsValidated != 2 {
		t.Errorf("validated = %d, want 2", result.SelectionsValidated)
	}
}

func TestRevenueMismatchWarnsAndMirrors(t *testing.T) {
	audit := &types.SelectionAudit{SelectionNumber: "B3", PriceCents: 150, UnitsSold: 10, RevenueCents: 1200}
	parsed := resultWith(audit)

	result := New(1.0, 5).Validate(parsed)

	if !result.IsValid {
		t.Fatal("a drift warning must not invalidate the file")
	}
	if result.WarningCount != 1 {
		t.Fatalf("warnings = %d, want 1: %v", result.WarningCount, result.Findings)
	}
	if result.Findings[0].Rule != RuleRevenueMismatch {
		t.Errorf("rule = %s, want %s", result.Findings[0].Rule, RuleRevenueMismatch)
	}
	if len(audit.Warnings) != 1 {
		t.Errorf("finding not mirrored onto the audit: %v", audit.Warnings)
	}
}

func TestRevenueToleranceIsMaxOfFlatAndPercent(t *testing.T) {
	// Expected 10000 cents: the 1% tolerance (100 cents) dominates the
	// 5 cent floor, so a 60 cent drift passes.
	within := &types.SelectionAudit{SelectionNumber: "C1", PriceCents: 1000, UnitsSold: 10, RevenueCents: 10060}
	// Expected 100 cents: the 5 cent floor dominates 1% (1 cent), so a
	// 4 cent drift passes.
	floor := &types.SelectionAudit{SelectionNumber: "C2", PriceCents: 100, UnitsSold: 1, RevenueCents: 104}
	// 6 cents over the floor on a cheap item fails.
	over := &types.SelectionAudit{SelectionNumber: "C3", PriceCents: 100, UnitsSold: 1, RevenueCents: 106}

	result := New(1.0, 5).Validate(resultWith(within, floor, over))

	if result.WarningCount != 1 {
		t.Fatalf("warnings = %d, want only C3 flagged: %v", result.WarningCount, result.Findings)
	}
	if result.Findings[0].SelectionNumber != "C3" {
		t.Errorf("flagged %s, want C3", result.Findings[0].SelectionNumber)
	}
}

func TestNegativeCounterIsError(t *testing.T) {
	audit := &types.SelectionAudit{SelectionNumber: "D1", PriceCents: 150, UnitsSold: -2, RevenueCents: 300}

	result := New(1.0, 5).Validate(resultWith(audit))

	if result.IsValid {
		t.Fatal("negative counters must invalidate the file")
	}
	if result.ErrorCount != 1 || result.Findings[0].Rule != RuleNegativeCounter {
		t.Errorf("findings = %v, want one negative_counter error", result.Findings)
	}
}

func TestSalesWithoutPrice(t *testing.T) {
	free := &types.SelectionAudit{SelectionNumber: "E1", UnitsSold: 3}
	unpriced := &types.SelectionAudit{SelectionNumber: "E2", UnitsSold: 3, RevenueCents: 450}

	result := New(1.0, 5).Validate(resultWith(free, unpriced))

	rules := map[string]string{}
	for _, f := range result.Findings {
		rules[f.SelectionNumber] = f.Rule
	}
	if rules["E1"] != RuleFreeVends {
		t.Errorf("E1 rule = %s, want %s", rules["E1"], RuleFreeVends)
	}
	if rules["E2"] != RuleMissingPrice {
		t.Errorf("E2 rule = %s, want %s", rules["E2"], RuleMissingPrice)
	}
}

func TestPhantomRevenue(t *testing.T) {
	audit := &types.SelectionAudit{SelectionNumber: "F1", PriceCents: 150, RevenueCents: 900}

	result := New(1.0, 5).Validate(resultWith(audit))

	if result.WarningCount != 1 || result.Findings[0].Rule != RulePhantomRevenue {
		t.Errorf("findings = %v, want one phantom_revenue warning", result.Findings)
	}
}

func TestGrandTotalDrift(t *testing.T) {
	parsed := resultWith(
		&types.SelectionAudit{SelectionNumber: "A1", PriceCents: 100, UnitsSold: 10, RevenueCents: 1000},
	)
	parsed.Totals = types.VendTotals{ValueCents: 2000, Units: 10}

	result := New(1.0, 5).Validate(parsed)

	if result.WarningCount != 1 || result.Findings[0].Rule != RuleGrandTotalDrift {
		t.Fatalf("findings = %v, want one grand_total_drift warning", result.Findings)
	}
	if len(parsed.Warnings) != 1 {
		t.Errorf("drift not mirrored onto the file result: %v", parsed.Warnings)
	}
}

func TestGrandTotalZeroIsSkipped(t *testing.T) {
	parsed := resultWith(
		&types.SelectionAudit{SelectionNumber: "A1", PriceCents: 100, UnitsSold: 10, RevenueCents: 1000},
	)

	result := New(1.0, 5).Validate(parsed)

	if len(result.Findings) != 0 {
		t.Errorf("missing VA1 totals must not warn: %v", result.Findings)
	}
}

func TestFindingErrorString(t *testing.T) {
	f := &Finding{Severity: "warning", SelectionNumber: "A1", Rule: RuleRevenueMismatch, Message: "off by 10"}
	s := f.Error()
	for _, part := range []string{"WARNING", "selection A1", RuleRevenueMismatch, "off by 10"} {
		if !strings.Contains(s, part) {
			t.Errorf("Error() = %q, missing %q", s, part)
		}
	}
}
