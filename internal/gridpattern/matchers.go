// =============================================================================
// DEX Audit Converter - Pattern Matchers
// =============================================================================
//
// The five known selection-numbering conventions, each as an independent
// PatternMatcher. Every matcher scores the full selection set on its own
// terms; the analyzer picks the winner.
//
// CONFIDENCE MODEL:
//   Each confidence starts from the fraction of selections that match the
//   pattern's shape exactly, then is scaled by a structural score (column
//   contiguity, step regularity, run coverage) computed from the matching
//   subset. A perfect, gapless grid scores exactly 1.0.
//
// COORDINATE FORMATTING:
//   Rows and columns are emitted as strings because formatting is part of
//   the convention: alphanumeric rows keep their letter, zero-padded
//   columns render as "01", numeric rows are 1-based digits.
//
// =============================================================================

package gridpattern

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vendinsight/dex-audit-converter/internal/types"
)

// =============================================================================
// SHARED HELPERS
// =============================================================================

// placeAll builds a placement map covering every input selection. coord
// returns the placement for selections that fit the pattern; everything
// else is included unmapped.
func placeAll(all []string, coord func(s string) (types.Placement, bool)) (map[string]types.Placement, int) {
	placements := make(map[string]types.Placement, len(all))
	unmapped := 0
	for _, s := range all {
		if p, ok := coord(s); ok {
			p.Mapped = true
			placements[s] = p
		} else {
			placements[s] = types.Placement{}
			unmapped++
		}
	}
	return placements, unmapped
}

// contiguityScore measures how gapless the observed column values are
// within each row: 1.0 when every row's columns form an unbroken run.
// Rows are visited in sorted order so the result is deterministic.
func contiguityScore(rows map[int][]int) float64 {
	if len(rows) == 0 {
		return 0
	}
	keys := make([]int, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var weighted float64
	var total int
	for _, k := range keys {
		cols := distinctSorted(rows[k])
		span := cols[len(cols)-1] - cols[0] + 1
		weighted += float64(len(cols)) * float64(len(cols)) / float64(span)
		total += len(cols)
	}
	return weighted / float64(total)
}

// distinctSorted returns the sorted distinct values of a slice.
func distinctSorted(vals []int) []int {
	seen := make(map[int]bool, len(vals))
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// allDigits reports whether s is non-empty and consists only of ASCII
// digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// ALPHANUMERIC MATCHER
// =============================================================================

// alphanumericMatcher recognizes one leading letter plus one-or-two digits:
// the letter is the row (A first), the digits are the 1-based column.
// This is the glass-front snack machine convention ("A1".."F10").
type alphanumericMatcher struct{}

var alphanumericPattern = regexp.MustCompile(`^([A-Za-z])([0-9]{1,2})$`)

func (alphanumericMatcher) Pattern() types.PatternType { return types.PatternAlphanumeric }

func (alphanumericMatcher) Match(selections []string) MatchResult {
	type cell struct {
		letter string
		col    int
	}
	cells := make(map[string]cell, len(selections))
	rows := make(map[int][]int)
	maxCol := 0

	for _, s := range selections {
		m := alphanumericPattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		col, _ := strconv.Atoi(m[2])
		if col < 1 {
			continue
		}
		letter := strings.ToUpper(m[1])
		rowIdx := int(letter[0] - 'A')
		cells[s] = cell{letter: letter, col: col}
		rows[rowIdx] = append(rows[rowIdx], col)
		if col > maxCol {
			maxCol = col
		}
	}

	if len(cells) == 0 {
		return MatchResult{}
	}

	matchedFrac := float64(len(cells)) / float64(len(selections))
	confidence := matchedFrac * contiguityScore(rows)

	placements, unmapped := placeAll(selections, func(s string) (types.Placement, bool) {
		c, ok := cells[s]
		if !ok {
			return types.Placement{}, false
		}
		return types.Placement{Row: c.letter, Column: strconv.Itoa(c.col)}, true
	})

	return MatchResult{
		Confidence: confidence,
		Rows:       len(rows),
		Columns:    maxCol,
		Placements: placements,
		Unmapped:   unmapped,
	}
}

// =============================================================================
// CUSTOM NUMERIC MATCHER
// =============================================================================

// customNumericMatcher recognizes three-or-four digit selections where the
// leading digit(s) are the row and the trailing two digits are the column
// ("101".."205"). At least two distinct row prefixes are required: with a
// single prefix the set is indistinguishable from a sequential block, which
// the tie-break order must then win.
type customNumericMatcher struct{}

var customNumericPattern = regexp.MustCompile(`^([0-9]{1,2})([0-9]{2})$`)

func (customNumericMatcher) Pattern() types.PatternType { return types.PatternCustomNumeric }

func (customNumericMatcher) Match(selections []string) MatchResult {
	type cell struct {
		prefix string
		col    int
	}
	cells := make(map[string]cell, len(selections))
	rowCols := make(map[int][]int)
	prefixes := make(map[string]bool)
	maxCol := 0

	for _, s := range selections {
		if len(s) < 3 {
			continue
		}
		m := customNumericPattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		col, _ := strconv.Atoi(m[2])
		if col < 1 {
			continue
		}
		prefix := m[1]
		rowIdx, _ := strconv.Atoi(prefix)
		cells[s] = cell{prefix: prefix, col: col}
		rowCols[rowIdx] = append(rowCols[rowIdx], col)
		prefixes[prefix] = true
		if col > maxCol {
			maxCol = col
		}
	}

	// A single row prefix cannot be told apart from a plain sequence.
	if len(prefixes) < 2 {
		return MatchResult{}
	}

	matchedFrac := float64(len(cells)) / float64(len(selections))
	confidence := matchedFrac * contiguityScore(rowCols)

	placements, unmapped := placeAll(selections, func(s string) (types.Placement, bool) {
		c, ok := cells[s]
		if !ok {
			return types.Placement{}, false
		}
		return types.Placement{Row: c.prefix, Column: s[len(s)-2:]}, true
	})

	return MatchResult{
		Confidence: confidence,
		Rows:       len(prefixes),
		Columns:    maxCol,
		Placements: placements,
		Unmapped:   unmapped,
	}
}

// =============================================================================
// NUMERIC TENS MATCHER
// =============================================================================

// numericTensMatcher recognizes two-digit selections where the tens digit
// is the row and the units digit steps across the columns, typically by
// two ("10", "12", "14", "20", "22"). The column index is units/2,
// truncated, so an off-by-one unit lands in the same column.
type numericTensMatcher struct{}

var numericTensPattern = regexp.MustCompile(`^([1-9])([0-9])$`)

func (numericTensMatcher) Pattern() types.PatternType { return types.PatternNumericTens }

func (numericTensMatcher) Match(selections []string) MatchResult {
	type cell struct {
		row int
		col int
	}
	cells := make(map[string]cell, len(selections))
	rowUnits := make(map[int][]int)
	maxCol := 0

	for _, s := range selections {
		m := numericTensPattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		row, _ := strconv.Atoi(m[1])
		units, _ := strconv.Atoi(m[2])
		col := units / 2
		cells[s] = cell{row: row, col: col}
		rowUnits[row] = append(rowUnits[row], units)
		if col > maxCol {
			maxCol = col
		}
	}

	if len(cells) == 0 {
		return MatchResult{}
	}

	matchedFrac := float64(len(cells)) / float64(len(selections))
	confidence := matchedFrac * stepRegularity(rowUnits)

	placements, unmapped := placeAll(selections, func(s string) (types.Placement, bool) {
		c, ok := cells[s]
		if !ok {
			return types.Placement{}, false
		}
		return types.Placement{Row: strconv.Itoa(c.row), Column: strconv.Itoa(c.col + 1)}, true
	})

	return MatchResult{
		Confidence: confidence,
		Rows:       len(rowUnits),
		Columns:    maxCol + 1,
		Placements: placements,
		Unmapped:   unmapped,
	}
}

// stepRegularity rewards a constant spacing between the observed units
// digits within each row: 1.0 when every adjacent gap equals the modal
// gap. Rows with a single observation contribute no gaps and are neutral.
func stepRegularity(rowUnits map[int][]int) float64 {
	keys := make([]int, 0, len(rowUnits))
	for k := range rowUnits {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	gapCounts := make(map[int]int)
	total := 0
	for _, k := range keys {
		units := distinctSorted(rowUnits[k])
		for i := 1; i < len(units); i++ {
			gapCounts[units[i]-units[i-1]]++
			total++
		}
	}
	if total == 0 {
		return 1
	}

	// Share of gaps that agree with the modal gap.
	bestCount := 0
	for _, count := range gapCounts {
		if count > bestCount {
			bestCount = count
		}
	}
	return float64(bestCount) / float64(total)
}

// =============================================================================
// SEQUENTIAL BLOCK MATCHER
// =============================================================================

// sequentialBlockMatcher recognizes a contiguous run of plain integers
// ("1".."10") folded into a rectangle. The column count is inferred: among
// the divisors of the run length, the one yielding the most square-like
// grid wins, ties broken toward wider grids.
type sequentialBlockMatcher struct{}

func (sequentialBlockMatcher) Pattern() types.PatternType { return types.PatternSequentialBlock }

func (sequentialBlockMatcher) Match(selections []string) MatchResult {
	values := make(map[string]int, len(selections))
	for _, s := range selections {
		if !allDigits(s) {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil || s != strconv.Itoa(v) {
			// Leading zeros belong to the zero-padded matcher.
			continue
		}
		values[s] = v
	}
	return blockMatch(selections, values, 0)
}

// =============================================================================
// ZERO-PADDED MATCHER
// =============================================================================

// zeroPaddedMatcher is the sequential block written with a fixed-width,
// zero-padded convention ("01".."09"). Structurally identical to the
// sequential block after stripping the padding; the padding itself is the
// distinguishing feature and is preserved in the rendered columns.
type zeroPaddedMatcher struct{}

func (zeroPaddedMatcher) Pattern() types.PatternType { return types.PatternZeroPadded }

func (zeroPaddedMatcher) Match(selections []string) MatchResult {
	// The convention requires a uniform width, so the modal digit-string
	// width defines the shape.
	widthCounts := make(map[int]int)
	for _, s := range selections {
		if allDigits(s) {
			widthCounts[len(s)]++
		}
	}
	width, bestCount := 0, 0
	widths := make([]int, 0, len(widthCounts))
	for w := range widthCounts {
		widths = append(widths, w)
	}
	sort.Ints(widths)
	for _, w := range widths {
		if widthCounts[w] > bestCount {
			width, bestCount = w, widthCounts[w]
		}
	}
	if width < 2 {
		return MatchResult{}
	}

	values := make(map[string]int, len(selections))
	padded := false
	for _, s := range selections {
		if !allDigits(s) || len(s) != width {
			continue
		}
		v, _ := strconv.Atoi(s)
		values[s] = v
		if s[0] == '0' {
			padded = true
		}
	}
	// Without an actual leading zero this is just a sequential block.
	if !padded {
		return MatchResult{}
	}
	return blockMatch(selections, values, 2)
}

// =============================================================================
// SHARED BLOCK LOGIC
// =============================================================================

// blockMatch folds a set of integer selections into the most square-like
// rectangle and scores it. colPad > 0 renders columns zero-padded to that
// width.
func blockMatch(selections []string, values map[string]int, colPad int) MatchResult {
	if len(values) == 0 {
		return MatchResult{}
	}

	min, max := 0, 0
	first := true
	for _, v := range values {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min + 1
	coverage := float64(len(values)) / float64(span)
	matchedFrac := float64(len(values)) / float64(len(selections))
	confidence := matchedFrac * coverage

	columns := bestColumns(span)
	rows := span / columns

	placements, unmapped := placeAll(selections, func(s string) (types.Placement, bool) {
		v, ok := values[s]
		if !ok {
			return types.Placement{}, false
		}
		idx := v - min
		col := idx%columns + 1
		colStr := strconv.Itoa(col)
		if colPad > 0 {
			colStr = fmt.Sprintf("%0*d", colPad, col)
		}
		return types.Placement{Row: strconv.Itoa(idx/columns + 1), Column: colStr}, true
	})

	return MatchResult{
		Confidence: confidence,
		Rows:       rows,
		Columns:    columns,
		Placements: placements,
		Unmapped:   unmapped,
	}
}

// bestColumns picks the column count for a run of n selections: the
// divisor of n whose (rows, cols) pair is most square-like, ties broken
// toward wider grids (cols >= rows). Always returns a divisor, so the
// dimensions are exact integers.
func bestColumns(n int) int {
	bestC, bestDiff := 1, n-1
	for c := 1; c <= n; c++ {
		if n%c != 0 {
			continue
		}
		rows := n / c
		diff := rows - c
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff || (diff == bestDiff && c > bestC) {
			bestC, bestDiff = c, diff
		}
	}
	return bestC
}
