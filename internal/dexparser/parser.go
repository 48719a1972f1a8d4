// =============================================================================
// DEX Audit Converter - Record Parser
// =============================================================================
//
// This module tokenizes a DEX audit file into typed records and consolidates
// the PA (product audit) family into one SelectionAudit per selection.
//
// PROCESSING MODEL:
//   The file is a sequence of lines, each beginning with a record-type code
//   and continuing with asterisk-separated fields. Every line is dispatched
//   to the type-specific extractor registered for its code; a line whose
//   code has no registered extractor becomes a Skipped entry rather than an
//   error, because firmware routinely emits vendor-specific record types
//   this tool does not need to understand.
//
// FAILURE SEMANTICS:
//   Nothing in this package panics or returns an error for malformed input.
//   Every line-level failure degrades to a Skipped entry with a reason, and
//   file-level structural problems (missing DXS/DXE) degrade to warnings
//   plus Success == false. Partial sales data from a truncated file is
//   still returned: it has operational value even when imperfect.
//
// CONCURRENCY:
//   A Parser is immutable after construction (the extractor registry and
//   manufacturer table are read-only), so one Parser may serve any number
//   of concurrent Parse calls. All per-file state lives on the stack of a
//   single Parse invocation.
//
// =============================================================================

package dexparser

import (
	"fmt"
	"strings"

	"github.com/vendinsight/dex-audit-converter/internal/config"
	"github.com/vendinsight/dex-audit-converter/internal/types"
)

// FieldDelimiter separates fields within a DEX record line.
const FieldDelimiter = "*"

// =============================================================================
// PARSER
// =============================================================================

// Parser turns DEX file content into a DexFileResult. Construct once with
// the manufacturer quirk table, reuse freely across goroutines.
type Parser struct {
	manufacturers map[string]*config.ManufacturerConfig
	extractors    map[string]extractor
}

// New creates a Parser with the given manufacturer quirk table. A nil table
// means canonical field orders only.
func New(manufacturers map[string]*config.ManufacturerConfig) *Parser {
	return &Parser{
		manufacturers: manufacturers,
		extractors:    newExtractorRegistry(),
	}
}

// =============================================================================
// MAIN PARSE FUNCTION
// =============================================================================

// Parse tokenizes the full text content of one DEX file.
//
// PARAMETERS:
//   - content: The complete file content (ASCII or UTF-8).
//   - filename: A label used only for diagnostics; never opened.
//
// RETURNS:
//   - A DexFileResult. Never nil, and no error: malformed input degrades to
//     Skipped entries, warnings and Success == false.
func (p *Parser) Parse(content, filename string) *types.DexFileResult {
	result := &types.DexFileResult{
		Filename: filename,
		Machine:  types.MachineHeader{DecimalPointPosition: 2},
	}

	st := &parseState{decimalPoint: 2}
	cons := newConsolidator()

	var (
		dxsCount int
		dxeCount int
		g85Seen  bool
		inSet    bool
		setLines int64
	)

	for lineNo, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		result.RecordCount++
		if inSet {
			setLines++
		}

		fields := strings.Split(line, FieldDelimiter)
		code := strings.ToUpper(strings.TrimSpace(fields[0]))

		if !validTypeCode(code) {
			result.Skipped = append(result.Skipped, types.SkippedRecord{
				LineNumber: lineNo + 1,
				RawLine:    raw,
				TypeCode:   code,
				Reason:     "invalid record type code",
			})
			continue
		}

		extract, ok := p.extractors[code]
		if !ok {
			result.Skipped = append(result.Skipped, types.SkippedRecord{
				LineNumber: lineNo + 1,
				RawLine:    raw,
				TypeCode:   code,
				Reason:     "unknown record type",
			})
			continue
		}

		rec, err := extract(st, fields[1:])
		if err != nil {
			result.Skipped = append(result.Skipped, types.SkippedRecord{
				LineNumber: lineNo + 1,
				RawLine:    raw,
				TypeCode:   code,
				Reason:     err.Error(),
			})
			continue
		}
		result.ParsedCount++

		// Record-specific side effects on the file result and parse state.
		switch r := rec.(type) {
		case DXSRecord:
			dxsCount++
			// The transmitter ID is a fallback manufacturer hint until
			// ID1 provides the controller serial.
			if st.mfg == nil {
				if m := config.FindManufacturer(p.manufacturers, r.CommunicationID); m != nil {
					st.mfg = m
					result.Machine.Manufacturer = m.ManufacturerName
				}
			}

		case DXERecord:
			dxeCount++

		case STRecord:
			inSet = true
			setLines = 1

		case SERecord:
			if inSet && r.IncludedSegments > 0 && r.IncludedSegments != setLines {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"SE declares %d segments but %d were read", r.IncludedSegments, setLines))
			}
			inSet = false

		case G85Record:
			g85Seen = true

		case ID1Record:
			result.Machine.SerialNumber = r.SerialNumber
			result.Machine.ModelNumber = r.ModelNumber
			result.Machine.FirmwareRevision = r.BuildStandard
			if m := config.FindManufacturer(p.manufacturers, r.SerialNumber); m != nil {
				st.mfg = m
				result.Machine.Manufacturer = m.ManufacturerName
			}

		case ID4Record:
			st.decimalPoint = int(r.DecimalPointPosition)
			st.id4Seen = true
			result.Machine.DecimalPointPosition = int(r.DecimalPointPosition)

		case VA1Record:
			result.Totals = types.VendTotals{
				ValueCents: r.ValueInitCents,
				Units:      r.UnitsInit,
			}

		case PA1Record:
			cons.openSelection(r)

		case PA2Record:
			if !cons.addCounters(r.UnitsInit, r.ValueInitCents, r.UnitsReset, r.ValueResetCents) {
				result.Skipped = append(result.Skipped, orphanPA(lineNo+1, raw, code))
				result.ParsedCount--
			}

		case PA3Record, PA4Record, PA5Record, PA8Record:
			if !cons.hasCurrent() {
				result.Skipped = append(result.Skipped, orphanPA(lineNo+1, raw, code))
				result.ParsedCount--
			}

		case PA7Record:
			cons.mergePA7(r)
		}
	}

	// =========================================================================
	// STRUCTURAL VALIDATION
	// =========================================================================
	// The file must contain exactly one DXS header and one DXE trailer.
	// Their absence fails the file but never discards the PA data already
	// recovered: partial and truncated files are common in the field.

	switch {
	case dxsCount == 0:
		result.Warnings = append(result.Warnings, "missing DXS header record")
	case dxsCount > 1:
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d DXS header records, expected exactly 1", dxsCount))
	}
	switch {
	case dxeCount == 0:
		result.Warnings = append(result.Warnings, "missing DXE trailer record")
	case dxeCount > 1:
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d DXE trailer records, expected exactly 1", dxeCount))
	}
	if result.RecordCount > 0 && !g85Seen {
		result.Warnings = append(result.Warnings, "no G85 integrity checksum record")
	}

	result.Selections = cons.ordered()
	if len(result.Selections) == 0 {
		result.Warnings = append(result.Warnings, "no usable selection records extracted")
	}

	result.Success = dxsCount == 1 && dxeCount == 1 && len(result.Selections) > 0

	return result
}

// orphanPA builds the Skipped entry for a PA continuation line that arrived
// before any PA1 opened a selection block.
func orphanPA(lineNo int, raw, code string) types.SkippedRecord {
	return types.SkippedRecord{
		LineNumber: lineNo,
		RawLine:    raw,
		TypeCode:   code,
		Reason:     code + " with no preceding PA1 selection",
	}
}

// =============================================================================
// PA CONSOLIDATION
// =============================================================================
//
// Vendors split one selection's audit across multiple lines (price on PA1,
// counters on PA2) or repeat whole audit blocks for the same selection in
// one transmission. Consolidation groups all PA-family lines by selection
// number: counts and revenue are summed, the last-seen non-zero price wins,
// and a conflict between non-zero prices is surfaced as a warning on the
// audit rather than an error.

// consolidator accumulates SelectionAudits in file order.
type consolidator struct {
	bySelection map[string]*types.SelectionAudit
	order       []string
	current     *types.SelectionAudit
}

func newConsolidator() *consolidator {
	return &consolidator{bySelection: make(map[string]*types.SelectionAudit)}
}

// lookup returns the audit for a selection, creating it on first sight.
func (c *consolidator) lookup(selection string) *types.SelectionAudit {
	if audit, ok := c.bySelection[selection]; ok {
		return audit
	}
	audit := &types.SelectionAudit{SelectionNumber: selection}
	c.bySelection[selection] = audit
	c.order = append(c.order, selection)
	return audit
}

// openSelection starts (or re-opens) a selection block from a PA1 record and
// makes it the attach target for following PA2-PA8 lines.
func (c *consolidator) openSelection(r PA1Record) {
	audit := c.lookup(r.SelectionNumber)
	c.mergePrice(audit, r.PriceCents)
	c.current = audit
}

// mergePrice applies the last-seen-non-zero-wins rule and records a warning
// when two different non-zero prices were transmitted for one selection.
func (c *consolidator) mergePrice(audit *types.SelectionAudit, priceCents int64) {
	if priceCents == 0 {
		return
	}
	if audit.PriceCents != 0 && audit.PriceCents != priceCents {
		audit.Warnings = append(audit.Warnings, fmt.Sprintf(
			"conflicting prices %d and %d cents; keeping %d",
			audit.PriceCents, priceCents, priceCents))
	}
	audit.PriceCents = priceCents
}

// addCounters adds a PA2 counter line to the current selection block.
// The since-initialisation pair is authoritative; firmware that only
// maintains since-reset counters leaves the init pair at zero, in which
// case the reset pair is used instead. Returns false for an orphan line.
func (c *consolidator) addCounters(unitsInit, valueInit, unitsReset, valueReset int64) bool {
	if c.current == nil {
		return false
	}
	units, value := unitsInit, valueInit
	if units == 0 && value == 0 {
		units, value = unitsReset, valueReset
	}
	c.current.UnitsSold += units
	c.current.RevenueCents += value
	return true
}

// mergePA7 folds a self-contained PA7 audit line into its selection.
func (c *consolidator) mergePA7(r PA7Record) {
	audit := c.lookup(r.SelectionNumber)
	c.mergePrice(audit, r.PriceCents)
	units, value := r.UnitsInit, r.ValueInitCents
	if units == 0 && value == 0 {
		units, value = r.UnitsReset, r.ValueResetCents
	}
	audit.UnitsSold += units
	audit.RevenueCents += value
	c.current = audit
}

func (c *consolidator) hasCurrent() bool {
	return c.current != nil
}

// ordered returns the audits in order of first appearance.
func (c *consolidator) ordered() []*types.SelectionAudit {
	audits := make([]*types.SelectionAudit, 0, len(c.order))
	for _, selection := range c.order {
		audits = append(audits, c.bySelection[selection])
	}
	return audits
}

// =============================================================================
// LINE TOKENIZATION
// =============================================================================

// splitLines breaks the file content into lines, tolerating CRLF, bare LF
// and bare CR line endings, and strips a UTF-8 byte order mark.
func splitLines(content string) []string {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

// validTypeCode reports whether a record-type code has the DEX shape:
// 2-4 characters, uppercase letters and digits, starting with a letter.
func validTypeCode(code string) bool {
	if len(code) < 2 || len(code) > 4 {
		return false
	}
	if code[0] < 'A' || code[0] > 'Z' {
		return false
	}
	for i := 1; i < len(code); i++ {
		ch := code[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
