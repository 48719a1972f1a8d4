// =============================================================================
// DEX Audit Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - dexparser
//   - gridpattern
//   - validation
//   - reportwriter
//   - pipeline
//
// =============================================================================

package types

// =============================================================================
// SELECTION AUDIT TYPES
// =============================================================================

// SelectionAudit is the consolidated, per-selection result of merging all
// PA-family records referencing the same selection number within one file.
type SelectionAudit struct {
	// SelectionNumber is the vendor-supplied selection identifier.
	// It may be alphanumeric ("A1") or numeric ("101"); it is kept as a
	// string because the numbering convention is not known at parse time.
	SelectionNumber string

	// PriceCents is the configured vend price in cents.
	// When multiple PA lines carry a price for the same selection, the
	// last-seen non-zero value wins.
	PriceCents int64

	// UnitsSold is the number of paid vends, summed across all
	// contributing PA-family records.
	UnitsSold int64

	// RevenueCents is the sales value in cents, summed across all
	// contributing PA-family records.
	RevenueCents int64

	// Row and Column are the physical grid coordinates for this selection.
	// They are empty until grid analysis runs, and stay empty when the
	// selection does not fit the winning pattern (or the file is
	// Unclassified).
	Row    string
	Column string

	// Warnings holds consolidation and validation findings for this
	// selection (conflicting prices, revenue mismatch, ...). Warnings are
	// diagnostics, never failures.
	Warnings []string
}

// SkippedRecord is a line the parser could not resolve into a typed record.
// Skipped lines are diagnostics: the file keeps processing around them.
type SkippedRecord struct {
	// LineNumber is the 1-indexed line number in the source file.
	LineNumber int

	// RawLine is the original line text, unmodified.
	RawLine string

	// TypeCode is the record-type code of the line, when one could be read.
	TypeCode string

	// Reason is a human-readable explanation of why the line was skipped.
	Reason string
}

// =============================================================================
// FILE RESULT TYPES
// =============================================================================

// MachineHeader carries machine identity read from the ID1/ID4 records.
type MachineHeader struct {
	// SerialNumber is the controller serial number (ID1 field 1).
	SerialNumber string

	// ModelNumber is the machine model identifier (ID1 field 2).
	ModelNumber string

	// FirmwareRevision is the controller firmware revision (ID1 field 3).
	FirmwareRevision string

	// Manufacturer is the manufacturer resolved from the ID1 serial prefix
	// or the transmitting party in the DXS header. Empty when unknown.
	Manufacturer string

	// DecimalPointPosition is the monetary scaling factor from ID4.
	// 2 means raw monetary fields carry two implied decimal places.
	DecimalPointPosition int
}

// VendTotals are the machine-level lifetime paid-vend counters from VA1,
// kept for cross-checking the summed per-selection revenue.
type VendTotals struct {
	ValueCents int64
	Units      int64
}

// DexFileResult is the parser's terminal output for one file.
type DexFileResult struct {
	// Filename is the diagnostic label supplied by the caller.
	Filename string

	// Success is false only when the file was structurally invalid
	// (missing DXS/DXE) or when zero usable selections were extracted.
	// Partial data is still returned on failure.
	Success bool

	// Machine is the header metadata extracted from ID records.
	Machine MachineHeader

	// Totals is the machine-level sales counters from VA1.
	Totals VendTotals

	// RecordCount is the number of non-empty lines seen in the file.
	RecordCount int

	// ParsedCount is the number of lines resolved into typed records.
	ParsedCount int

	// Selections is the ordered list of consolidated per-selection audits,
	// in order of first appearance in the file.
	Selections []*SelectionAudit

	// Skipped is the ordered list of lines that could not be parsed.
	Skipped []SkippedRecord

	// Warnings holds file-level diagnostics (missing trailer, SE count
	// mismatch, grand-total drift, ...).
	Warnings []string

	// Grid is the grid analysis result. Nil until the analyzer runs.
	Grid *GridAnalysis
}

// =============================================================================
// GRID ANALYSIS TYPES
// =============================================================================

// PatternType identifies a selection-numbering convention.
type PatternType string

// Known selection-numbering conventions.
const (
	// PatternAlphanumeric is letter-row / digit-column ("A1".."C9").
	PatternAlphanumeric PatternType = "ALPHANUMERIC"

	// PatternNumericTens is two-digit tens-row / even-stepped units
	// column ("10", "12", "14", "20", ...).
	PatternNumericTens PatternType = "NUMERIC_TENS"

	// PatternSequentialBlock is a contiguous integer run folded into a
	// rectangle ("1".."10").
	PatternSequentialBlock PatternType = "SEQUENTIAL_BLOCK"

	// PatternZeroPadded is a sequential block written with leading zeros
	// ("01".."09").
	PatternZeroPadded PatternType = "ZERO_PADDED"

	// PatternCustomNumeric is row-prefix / two-digit-column ("101".."205").
	PatternCustomNumeric PatternType = "CUSTOM_NUMERIC"

	// PatternUnclassified means no matcher cleared the confidence
	// threshold. No coordinates are assigned.
	PatternUnclassified PatternType = "UNCLASSIFIED"
)

// Placement is a row/column coordinate assigned to one selection.
// Row and Column are strings because formatting is pattern-specific:
// alphanumeric rows render as letters, zero-padded columns as "01".
type Placement struct {
	Row    string
	Column string

	// Mapped is false for outliers that are part of the file but do not
	// fit the winning pattern.
	Mapped bool
}

// GridAnalysis is the analyzer's summary classification result.
type GridAnalysis struct {
	// Pattern is the winning numbering convention.
	Pattern PatternType

	// Confidence is 0.0-1.0, how well the winning pattern explains the
	// observed selection numbers.
	Confidence float64

	// Rows and Columns are the inferred grid dimensions. Both are zero
	// when the pattern is Unclassified.
	Rows    int
	Columns int

	// Placements maps every input selection number to its coordinate.
	// For a classified result the key set equals the input selection set;
	// outliers appear with Mapped == false.
	Placements map[string]Placement

	// UnmappedCount is the number of selections that did not fit the
	// winning pattern.
	UnmappedCount int
}

// Classified reports whether the analysis produced a usable layout.
func (g *GridAnalysis) Classified() bool {
	return g != nil && g.Pattern != PatternUnclassified
}
