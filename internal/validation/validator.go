// =============================================================================
// DEX Audit Converter - Validation Engine
// =============================================================================
//
// This module cross-checks the consolidated audit data after parsing. It
// validates the internal consistency of the numbers the machine reported,
// including:
//   - Per-selection revenue vs units x price
//   - Counter sanity (negative or impossible values)
//   - Machine-level grand totals (VA1) vs the per-selection sum
//
// VALIDATION STRATEGY:
//   Validation is performed at two levels:
//   1. Selection-level: each consolidated SelectionAudit on its own
//   2. File-level: aggregates across the whole transmission
//
// ERROR HANDLING:
//   - Findings are collected, never thrown
//   - Warnings are mirrored onto the audit/result they concern, so the
//     report writer can show them next to the data
//   - A finding is an "error" only for physically impossible values; drift
//     and mismatch are warnings because field data is routinely imperfect
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/vendinsight/dex-audit-converter/internal/types"
)

// =============================================================================
// FINDING TYPES
// =============================================================================

// Finding represents a single validation finding.
type Finding struct {
	// Severity indicates the severity of the finding.
	// "error" = the data is physically impossible
	// "warning" = the data is suspicious but usable
	Severity string

	// SelectionNumber identifies the selection concerned, empty for
	// file-level findings.
	SelectionNumber string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (f *Finding) Error() string {
	scope := "file"
	if f.SelectionNumber != "" {
		scope = "selection " + f.SelectionNumber
	}
	return fmt.Sprintf("[%s] %s: %s: %s", strings.ToUpper(f.Severity), scope, f.Rule, f.Message)
}

// Rule names.
const (
	RuleRevenueMismatch = "revenue_mismatch"
	RuleNegativeCounter = "negative_counter"
	RuleFreeVends       = "free_vends"
	RulePhantomRevenue  = "phantom_revenue"
	RuleGrandTotalDrift = "grand_total_drift"
	RuleMissingPrice    = "missing_price"
)

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result contains the outcome of validating one parsed file.
type Result struct {
	// IsValid is true if there are no error-severity findings.
	IsValid bool

	// Findings contains all findings, warnings included.
	Findings []*Finding

	// ErrorCount is the number of error-severity findings.
	ErrorCount int

	// WarningCount is the number of warning-severity findings.
	WarningCount int

	// SelectionsValidated is the number of selections checked.
	SelectionsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks consolidated audit data for internal consistency.
// Immutable after construction, safe for concurrent use.
type Validator struct {
	// tolerancePercent and toleranceCents bound the accepted drift between
	// reported revenue and units x price. The larger of the two applies,
	// so rounding on cheap items and percentage drift on expensive ones
	// are both tolerated.
	tolerancePercent float64
	toleranceCents   int64
}

// New creates a Validator with the given drift tolerances. Non-positive
// arguments fall back to 1% and 5 cents.
func New(tolerancePercent float64, toleranceCents int64) *Validator {
	if tolerancePercent <= 0 {
		tolerancePercent = 1.0
	}
	if toleranceCents <= 0 {
		toleranceCents = 5
	}
	return &Validator{
		tolerancePercent: tolerancePercent,
		toleranceCents:   toleranceCents,
	}
}

// Validate checks one parsed file and mirrors warnings onto the result.
//
// PARAMETERS:
//   - parsed: the consolidated parse result. Selection-level findings are
//     appended to the matching audit's Warnings, file-level findings to the
//     result's Warnings.
//
// RETURNS:
//   - A Result summarizing all findings. Never nil.
func (v *Validator) Validate(parsed *types.DexFileResult) *Result {
	result := &Result{IsValid: true}

	var revenueSum int64
	for _, audit := range parsed.Selections {
		result.SelectionsValidated++
		revenueSum += audit.RevenueCents
		v.validateSelection(audit, result)
	}

	v.validateTotals(parsed, revenueSum, result)

	return result
}

// validateSelection runs the per-selection rules on one audit.
func (v *Validator) validateSelection(audit *types.SelectionAudit, result *Result) {
	if audit.UnitsSold < 0 || audit.RevenueCents < 0 || audit.PriceCents < 0 {
		v.record(result, audit, &Finding{
			Severity:        "error",
			SelectionNumber: audit.SelectionNumber,
			Rule:            RuleNegativeCounter,
			Message: fmt.Sprintf("negative counter (units=%d, revenue=%d, price=%d)",
				audit.UnitsSold, audit.RevenueCents, audit.PriceCents),
		})
		return
	}

	if audit.UnitsSold > 0 && audit.PriceCents == 0 {
		severity, rule, msg := "warning", RuleMissingPrice,
			fmt.Sprintf("%d units sold but no price transmitted", audit.UnitsSold)
		if audit.RevenueCents == 0 {
			rule = RuleFreeVends
			msg = fmt.Sprintf("%d units sold with zero revenue and no price", audit.UnitsSold)
		}
		v.record(result, audit, &Finding{
			Severity:        severity,
			SelectionNumber: audit.SelectionNumber,
			Rule:            rule,
			Message:         msg,
		})
		return
	}

	if audit.UnitsSold == 0 && audit.RevenueCents > 0 {
		v.record(result, audit, &Finding{
			Severity:        "warning",
			SelectionNumber: audit.SelectionNumber,
			Rule:            RulePhantomRevenue,
			Message:         fmt.Sprintf("%d cents revenue with zero units sold", audit.RevenueCents),
		})
		return
	}

	// Revenue should equal units x price. Price changes mid-period and
	// coupon vends cause drift, so only out-of-tolerance drift is flagged.
	if audit.UnitsSold > 0 && audit.PriceCents > 0 {
		expected := audit.UnitsSold * audit.PriceCents
		if drift := abs64(audit.RevenueCents - expected); drift > v.tolerance(expected) {
			v.record(result, audit, &Finding{
				Severity:        "warning",
				SelectionNumber: audit.SelectionNumber,
				Rule:            RuleRevenueMismatch,
				Message: fmt.Sprintf("revenue %d cents differs from units x price = %d cents by %d",
					audit.RevenueCents, expected, drift),
			})
		}
	}
}

// validateTotals cross-checks the machine's VA1 grand total against the
// per-selection revenue sum.
func (v *Validator) validateTotals(parsed *types.DexFileResult, revenueSum int64, result *Result) {
	if parsed.Totals.ValueCents == 0 || len(parsed.Selections) == 0 {
		return
	}
	if drift := abs64(parsed.Totals.ValueCents - revenueSum); drift > v.tolerance(parsed.Totals.ValueCents) {
		finding := &Finding{
			Severity: "warning",
			Rule:     RuleGrandTotalDrift,
			Message: fmt.Sprintf("VA1 grand total %d cents differs from selection sum %d cents by %d",
				parsed.Totals.ValueCents, revenueSum, drift),
		}
		result.Findings = append(result.Findings, finding)
		result.WarningCount++
		parsed.Warnings = append(parsed.Warnings, finding.Message)
	}
}

// record files a finding and mirrors its message onto the audit.
func (v *Validator) record(result *Result, audit *types.SelectionAudit, finding *Finding) {
	result.Findings = append(result.Findings, finding)
	switch finding.Severity {
	case "error":
		result.ErrorCount++
		result.IsValid = false
	default:
		result.WarningCount++
	}
	audit.Warnings = append(audit.Warnings, finding.Message)
}

// tolerance returns the accepted drift for an expected amount: the larger
// of the flat cent tolerance and the percentage tolerance.
func (v *Validator) tolerance(expected int64) int64 {
	pct := int64(float64(expected) * v.tolerancePercent / 100.0)
	if pct > v.toleranceCents {
		return pct
	}
	return v.toleranceCents
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
