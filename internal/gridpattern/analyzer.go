// =============================================================================
// DEX Audit Converter - Grid Pattern Analyzer
// =============================================================================
//
// This module infers the physical selection-grid layout (rows/columns) of a
// vending machine from the raw selection-number strings extracted by the
// record parser. There is no ground truth at parse time: machines from
// different manufacturers use incompatible numbering conventions, so the
// analyzer runs every known pattern matcher against the full selection set,
// scores each candidate with a confidence value, and keeps the best.
//
// SELECTION & TIE-BREAK:
//   All matchers run; the highest confidence wins. Ties break on a fixed
//   priority order (Alphanumeric > CustomNumeric > NumericTens > ZeroPadded
//   > SequentialBlock): the more structurally specific a pattern is, the
//   less likely it matched by coincidence. Below the confidence threshold
//   the result is Unclassified and no coordinates are guessed.
//
// PURITY:
//   The analyzer is a pure function of the selection strings. It never sees
//   price or unit data, holds no state between calls, and identical input
//   always produces identical output.
//
// =============================================================================

package gridpattern

import (
	"github.com/vendinsight/dex-audit-converter/internal/types"
)

// DefaultConfidenceThreshold is the minimum winning confidence required to
// classify a layout. Calibrated against field samples rather than derived;
// override via the Analyzer constructor when recalibrating.
const DefaultConfidenceThreshold = 0.5

// =============================================================================
// MATCHER INTERFACE
// =============================================================================

// MatchResult is one matcher's candidate explanation of a selection set.
type MatchResult struct {
	// Confidence is 0.0-1.0: how well this pattern explains the set.
	Confidence float64

	// Rows and Columns are the grid dimensions implied by the matching
	// subset.
	Rows    int
	Columns int

	// Placements covers every input selection. Outliers that do not fit
	// the pattern appear with Mapped == false.
	Placements map[string]types.Placement

	// Unmapped is the number of outlier selections.
	Unmapped int
}

// PatternMatcher attempts to explain a full selection set as one numbering
// convention. Implementations are pure and safe for concurrent use.
type PatternMatcher interface {
	// Pattern identifies the convention this matcher recognizes.
	Pattern() types.PatternType

	// Match scores the selection set against the convention. The input is
	// the deduplicated, ordered selection list; it must not be mutated.
	Match(selections []string) MatchResult
}

// =============================================================================
// ANALYZER
// =============================================================================

// Analyzer classifies selection sets. Immutable after construction.
type Analyzer struct {
	// matchers in tie-break priority order, most specific first.
	matchers  []PatternMatcher
	threshold float64
}

// New creates an Analyzer with the default matcher set and the given
// confidence threshold (pass DefaultConfidenceThreshold when in doubt).
func New(threshold float64) *Analyzer {
	return &Analyzer{
		matchers: []PatternMatcher{
			alphanumericMatcher{},
			customNumericMatcher{},
			numericTensMatcher{},
			zeroPaddedMatcher{},
			sequentialBlockMatcher{},
		},
		threshold: threshold,
	}
}

// Analyze classifies the selection numbering scheme and produces a
// row/column coordinate for every selection it can place.
//
// PARAMETERS:
//   - selections: selection-number strings in file order. Duplicates are
//     tolerated and collapsed.
//
// RETURNS:
//   - A GridAnalysis. For a classified result every distinct input
//     selection appears as a key in Placements; for Unclassified the
//     mapping is empty and the dimensions are zero.
func (a *Analyzer) Analyze(selections []string) *types.GridAnalysis {
	distinct := dedupe(selections)
	if len(distinct) == 0 {
		return &types.GridAnalysis{Pattern: types.PatternUnclassified}
	}

	var (
		best    MatchResult
		bestPat = types.PatternUnclassified
	)
	for _, m := range a.matchers {
		candidate := m.Match(distinct)
		// Strict comparison: an earlier (higher-priority) matcher keeps
		// the win on equal confidence.
		if candidate.Confidence > best.Confidence {
			best = candidate
			bestPat = m.Pattern()
		}
	}

	if bestPat == types.PatternUnclassified || best.Confidence < a.threshold {
		return &types.GridAnalysis{Pattern: types.PatternUnclassified}
	}

	return &types.GridAnalysis{
		Pattern:       bestPat,
		Confidence:    best.Confidence,
		Rows:          best.Rows,
		Columns:       best.Columns,
		Placements:    best.Placements,
		UnmappedCount: best.Unmapped,
	}
}

// =============================================================================
// RESULT APPLICATION
// =============================================================================

// Apply writes the analysis onto a parse result: Row/Column on each mapped
// SelectionAudit, the GridAnalysis itself on the result. Unmapped and
// unclassified selections keep empty coordinates.
func Apply(result *types.DexFileResult, grid *types.GridAnalysis) {
	result.Grid = grid
	if !grid.Classified() {
		return
	}
	for _, audit := range result.Selections {
		if placement, ok := grid.Placements[audit.SelectionNumber]; ok && placement.Mapped {
			audit.Row = placement.Row
			audit.Column = placement.Column
		}
	}
}

// AnalyzeResult is the convenience entry point for a whole parse result:
// it classifies the result's selection numbers and applies the placements.
func (a *Analyzer) AnalyzeResult(result *types.DexFileResult) *types.GridAnalysis {
	selections := make([]string, 0, len(result.Selections))
	for _, audit := range result.Selections {
		selections = append(selections, audit.SelectionNumber)
	}
	grid := a.Analyze(selections)
	Apply(result, grid)
	return grid
}

// dedupe removes duplicate selections, preserving first-seen order.
func dedupe(selections []string) []string {
	seen := make(map[string]bool, len(selections))
	out := make([]string, 0, len(selections))
	for _, s := range selections {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
