// =============================================================================
// DEX Audit Converter - Record Schemas
// =============================================================================
//
// This file defines the typed record set for the ANSI DEX/UCS audit format:
// one concrete Record variant per supported record-type code, plus the
// extractor functions that resolve a raw line's fields against the type's
// schema.
//
// EXTRACTOR CONTRACT:
//   An extractor is a pure function over the delimiter-separated fields of
//   one line (the type code itself is not included). It returns a typed
//   record or an error; an error never aborts the file, it degrades the line
//   to a Skipped entry in the parser.
//
// MANUFACTURER QUIRKS:
//   Field order for ambiguous codes (PA1 in particular) varies between
//   manufacturers. Extractors for those codes consult the active
//   ManufacturerConfig for candidate field orders, try the canonical order
//   first, and fall back to the alternates when the canonical values fail
//   sanity checks (negative price, non-numeric counters).
//
// =============================================================================

package dexparser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vendinsight/dex-audit-converter/internal/config"
)

// =============================================================================
// RECORD INTERFACE
// =============================================================================

// Record is one line of a DEX file resolved against its type's field schema.
// The closed set of implementations lives in this file; lines outside it
// become SkippedRecord entries on the result, never errors.
type Record interface {
	// Code returns the record-type code ("PA1", "DXS", ...).
	Code() string
}

// extractor resolves the raw fields of one line into a typed record.
type extractor func(st *parseState, fields []string) (Record, error)

// parseState is the per-file context extractors need: the active
// manufacturer quirks and the monetary scaling resolved from ID4.
// It is local to one Parse call, so concurrent parses never share it.
type parseState struct {
	mfg          *config.ManufacturerConfig
	decimalPoint int
	id4Seen      bool
}

// =============================================================================
// TRANSMISSION CONTROL RECORDS
// =============================================================================

// DXSRecord is the transmission header. Exactly one is expected per file.
type DXSRecord struct {
	CommunicationID    string
	FunctionalID       string
	Version            string
	TransmissionNumber string
}

func (DXSRecord) Code() string { return "DXS" }

// DXERecord is the transmission trailer. Exactly one is expected per file.
type DXERecord struct {
	TransmissionControlNumber string
	IncludedSets              int64
}

func (DXERecord) Code() string { return "DXE" }

// STRecord opens a transaction set.
type STRecord struct {
	TransactionSetID string
	ControlNumber    string
}

func (STRecord) Code() string { return "ST" }

// SERecord closes a transaction set and carries the included segment count,
// which the parser cross-checks against the lines it actually saw.
type SERecord struct {
	IncludedSegments int64
	ControlNumber    string
}

func (SERecord) Code() string { return "SE" }

// G85Record is the transmission integrity checksum.
type G85Record struct {
	Checksum string
}

func (G85Record) Code() string { return "G85" }

// LSRecord opens a loop (repeated group of product records).
type LSRecord struct {
	LoopID string
}

func (LSRecord) Code() string { return "LS" }

// LERecord closes a loop.
type LERecord struct {
	LoopID string
}

func (LERecord) Code() string { return "LE" }

// =============================================================================
// IDENTITY RECORDS
// =============================================================================

// ID1Record identifies the vending machine controller.
type ID1Record struct {
	SerialNumber  string
	ModelNumber   string
	BuildStandard string
	Location      string
	AssetNumber   string
}

func (ID1Record) Code() string { return "ID1" }

// ID4Record carries the monetary format: the number of implied decimal
// places in raw monetary fields and the currency code.
type ID4Record struct {
	DecimalPointPosition int64
	CurrencyCode         string
}

func (ID4Record) Code() string { return "ID4" }

// ID5Record is the machine's local date and time at read-out.
type ID5Record struct {
	Date string
	Time string
}

func (ID5Record) Code() string { return "ID5" }

// ID6Record is the cash bag / read-out identity.
type ID6Record struct {
	CashBagNumber string
}

func (ID6Record) Code() string { return "ID6" }

// CB1Record identifies the control board.
type CB1Record struct {
	SerialNumber     string
	ModelNumber      string
	SoftwareRevision string
}

func (CB1Record) Code() string { return "CB1" }

// =============================================================================
// VEND AUDIT TOTAL RECORDS
// =============================================================================

// VA1Record is the machine-level paid vend totals since initialisation and
// since the last reset.
type VA1Record struct {
	ValueInitCents  int64
	UnitsInit       int64
	ValueResetCents int64
	UnitsReset      int64
}

func (VA1Record) Code() string { return "VA1" }

// VA2Record is the test vend totals.
type VA2Record struct {
	ValueInitCents  int64
	UnitsInit       int64
	ValueResetCents int64
	UnitsReset      int64
}

func (VA2Record) Code() string { return "VA2" }

// VA3Record is the free vend totals.
type VA3Record struct {
	ValueInitCents  int64
	UnitsInit       int64
	ValueResetCents int64
	UnitsReset      int64
}

func (VA3Record) Code() string { return "VA3" }

// =============================================================================
// PRODUCT AUDIT RECORDS (PA FAMILY)
// =============================================================================
//
// The PA family is the payload this tool exists for. PA1 opens a selection
// block and carries the price; PA2-PA5 carry no selection number of their
// own and attach to the most recent PA1. PA7 is a self-contained
// per-selection audit used by some firmware instead of the PA1/PA2 split.

// PA1Record opens the audit block for one selection.
type PA1Record struct {
	SelectionNumber string
	PriceCents      int64
	ProductID       string
	Capacity        int64
	StandardFill    int64
}

func (PA1Record) Code() string { return "PA1" }

// PA2Record is the paid vend counters for the selection opened by the
// preceding PA1.
type PA2Record struct {
	UnitsInit       int64
	ValueInitCents  int64
	UnitsReset      int64
	ValueResetCents int64
}

func (PA2Record) Code() string { return "PA2" }

// PA3Record is the test vend counters for the current selection.
type PA3Record struct {
	UnitsInit      int64
	ValueInitCents int64
}

func (PA3Record) Code() string { return "PA3" }

// PA4Record is the free vend counters for the current selection.
type PA4Record struct {
	UnitsInit      int64
	ValueInitCents int64
}

func (PA4Record) Code() string { return "PA4" }

// PA5Record is the timestamp of the last vend from the current selection.
type PA5Record struct {
	Date      string
	Time      string
	VendCount int64
}

func (PA5Record) Code() string { return "PA5" }

// PA7Record is a self-contained per-selection audit line: selection number,
// price and counters in one record.
type PA7Record struct {
	SelectionNumber string
	PriceListNumber string
	PriceCents      int64
	UnitsInit       int64
	ValueInitCents  int64
	UnitsReset      int64
	ValueResetCents int64
}

func (PA7Record) Code() string { return "PA7" }

// PA8Record is the sold-out event counters for the current selection.
type PA8Record struct {
	SoldOutCount int64
	SoldOutDate  string
}

func (PA8Record) Code() string { return "PA8" }

// =============================================================================
// CASH RECORDS (CA FAMILY)
// =============================================================================

// CA1Record identifies the coin mechanism.
type CA1Record struct {
	SerialNumber     string
	ModelNumber      string
	SoftwareRevision string
}

func (CA1Record) Code() string { return "CA1" }

// CA2Record is the cash sales totals.
type CA2Record struct {
	ValueInitCents  int64
	UnitsInit       int64
	ValueResetCents int64
	UnitsReset      int64
}

func (CA2Record) Code() string { return "CA2" }

// CA3Record is the cash-in audit: total cash in, split between cashbox and
// tubes.
type CA3Record struct {
	CashInResetCents    int64
	ToCashboxResetCents int64
	ToTubesResetCents   int64
	CashInInitCents     int64
}

func (CA3Record) Code() string { return "CA3" }

// CA4Record is the cash dispensed audit.
type CA4Record struct {
	DispensedResetCents int64
	ManualResetCents    int64
	DispensedInitCents  int64
}

func (CA4Record) Code() string { return "CA4" }

// CA7Record is the cash discount totals.
type CA7Record struct {
	ValueResetCents int64
	ValueInitCents  int64
}

func (CA7Record) Code() string { return "CA7" }

// CA8Record is the cash overpay totals.
type CA8Record struct {
	ValueResetCents int64
	ValueInitCents  int64
}

func (CA8Record) Code() string { return "CA8" }

// CA10Record is the manual fill / dispense totals for the coin tubes.
type CA10Record struct {
	FilledResetCents    int64
	DispensedResetCents int64
}

func (CA10Record) Code() string { return "CA10" }

// CA15Record is the current value of the coin tube contents.
type CA15Record struct {
	TubeContentsCents int64
}

func (CA15Record) Code() string { return "CA15" }

// CA17Record is the per-coin-type tube level.
type CA17Record struct {
	CoinTypeNumber string
	CoinValueCents int64
	CoinCount      int64
}

func (CA17Record) Code() string { return "CA17" }

// =============================================================================
// BILL AND CASHLESS RECORDS
// =============================================================================

// BA1Record identifies the bill validator.
type BA1Record struct {
	SerialNumber     string
	ModelNumber      string
	SoftwareRevision string
}

func (BA1Record) Code() string { return "BA1" }

// DA1Record identifies the cashless payment device.
type DA1Record struct {
	SerialNumber     string
	ModelNumber      string
	SoftwareRevision string
}

func (DA1Record) Code() string { return "DA1" }

// DA2Record is the cashless sales totals.
type DA2Record struct {
	ValueInitCents  int64
	UnitsInit       int64
	ValueResetCents int64
	UnitsReset      int64
}

func (DA2Record) Code() string { return "DA2" }

// DA4Record is the cashless revalue (card top-up) totals.
type DA4Record struct {
	ValueResetCents int64
	ValueInitCents  int64
}

func (DA4Record) Code() string { return "DA4" }

// DA5Record is the cashless discount totals.
type DA5Record struct {
	ValueResetCents int64
	ValueInitCents  int64
}

func (DA5Record) Code() string { return "DA5" }

// =============================================================================
// EVENT AND MACHINE RECORDS
// =============================================================================

// EA1Record is a logged machine event.
type EA1Record struct {
	EventID string
	Date    string
	Time    string
}

func (EA1Record) Code() string { return "EA1" }

// EA2Record is an event counter (occurrences since reset / init).
type EA2Record struct {
	EventID    string
	CountReset int64
	CountInit  int64
}

func (EA2Record) Code() string { return "EA2" }

// EA3Record is the read-out audit: number of reads, date of last read.
type EA3Record struct {
	ReadsReset   int64
	DateLastRead string
	TimeLastRead string
	ReadsInit    int64
}

func (EA3Record) Code() string { return "EA3" }

// EA4Record is the power outage audit.
type EA4Record struct {
	OutagesReset int64
	OutagesInit  int64
}

func (EA4Record) Code() string { return "EA4" }

// EA5Record is the door open audit.
type EA5Record struct {
	OpensReset   int64
	DateLastOpen string
	TimeLastOpen string
}

func (EA5Record) Code() string { return "EA5" }

// EA7Record is the sales-mode time audit (time in service).
type EA7Record struct {
	MinutesReset int64
	MinutesInit  int64
}

func (EA7Record) Code() string { return "EA7" }

// EA9Record is the price-setting audit (number of price changes).
type EA9Record struct {
	ChangesReset int64
	ChangesInit  int64
}

func (EA9Record) Code() string { return "EA9" }

// MA5Record is a manufacturer-specific machine status field. The payload is
// opaque beyond the status code, so the values are kept verbatim.
type MA5Record struct {
	StatusCode string
	Values     []string
}

func (MA5Record) Code() string { return "MA5" }

// TA2Record is the token / coupon sales totals.
type TA2Record struct {
	ValueInitCents  int64
	UnitsInit       int64
	ValueResetCents int64
	UnitsReset      int64
}

func (TA2Record) Code() string { return "TA2" }

// =============================================================================
// EXTRACTOR REGISTRY
// =============================================================================

// newExtractorRegistry builds the read-only dispatch table mapping each
// supported record-type code to its extractor. The table is built once per
// Parser and only read afterwards, so it is safe for concurrent parses.
func newExtractorRegistry() map[string]extractor {
	return map[string]extractor{
		// Transmission control.
		"DXS": extractDXS,
		"DXE": extractDXE,
		"ST":  extractST,
		"SE":  extractSE,
		"G85": extractG85,
		"LS":  extractLS,
		"LE":  extractLE,

		// Identity.
		"ID1": extractID1,
		"ID4": extractID4,
		"ID5": extractID5,
		"ID6": extractID6,
		"CB1": extractCB1,

		// Vend audit totals.
		"VA1": extractVA1,
		"VA2": extractVA2,
		"VA3": extractVA3,

		// Product audit.
		"PA1": extractPA1,
		"PA2": extractPA2,
		"PA3": extractPA3,
		"PA4": extractPA4,
		"PA5": extractPA5,
		"PA7": extractPA7,
		"PA8": extractPA8,

		// Cash.
		"CA1":  extractCA1,
		"CA2":  extractCA2,
		"CA3":  extractCA3,
		"CA4":  extractCA4,
		"CA7":  extractCA7,
		"CA8":  extractCA8,
		"CA10": extractCA10,
		"CA15": extractCA15,
		"CA17": extractCA17,

		// Bills and cashless.
		"BA1": extractBA1,
		"DA1": extractDA1,
		"DA2": extractDA2,
		"DA4": extractDA4,
		"DA5": extractDA5,

		// Events and machine status.
		"EA1": extractEA1,
		"EA2": extractEA2,
		"EA3": extractEA3,
		"EA4": extractEA4,
		"EA5": extractEA5,
		"EA7": extractEA7,
		"EA9": extractEA9,
		"MA5": extractMA5,
		"TA2": extractTA2,
	}
}

// =============================================================================
// FIELD ACCESS HELPERS
// =============================================================================
//
// DEX lines routinely omit trailing optional fields, so positional access is
// lenient: a missing field reads as empty / zero. A present-but-garbage
// value in a numeric field is an error and degrades the line to Skipped.

// fieldAt returns the i-th field or "" when the line is shorter.
func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// intAt parses the i-th field as an integer counter. Missing or empty
// fields read as zero.
func intAt(fields []string, i int) (int64, error) {
	s := fieldAt(fields, i)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("field %d: %q is not an integer", i+1, s)
	}
	return d.IntPart(), nil
}

// moneyCentsAt parses the i-th field as a monetary amount and normalises it
// to integer cents.
//
// Firmware disagrees about monetary encoding: most report an integer scaled
// by the ID4 decimal point position (250 with DPP 2 means 2.50 currency),
// Crane reports decimal currency ("2.50") directly. Both normalise to 250
// cents here.
func moneyCentsAt(st *parseState, fields []string, i int) (int64, error) {
	s := fieldAt(fields, i)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("field %d: %q is not a monetary amount", i+1, s)
	}
	if strings.ContainsRune(s, '.') {
		// Explicit decimal currency: shift to cents directly.
		return d.Shift(2).Round(0).IntPart(), nil
	}
	// Integer with implied decimal places per ID4 (default 2, which is
	// already cents).
	dpp := 2
	if st.id4Seen {
		dpp = st.decimalPoint
	} else if st.mfg != nil && st.mfg.DecimalPrices {
		dpp = 0
	}
	return d.Shift(int32(2 - dpp)).Round(0).IntPart(), nil
}

// =============================================================================
// TRANSMISSION CONTROL EXTRACTORS
// =============================================================================

func extractDXS(_ *parseState, fields []string) (Record, error) {
	return DXSRecord{
		CommunicationID:    fieldAt(fields, 0),
		FunctionalID:       fieldAt(fields, 1),
		Version:            fieldAt(fields, 2),
		TransmissionNumber: fieldAt(fields, 3),
	}, nil
}

func extractDXE(_ *parseState, fields []string) (Record, error) {
	sets, err := intAt(fields, 1)
	if err != nil {
		return nil, err
	}
	return DXERecord{
		TransmissionControlNumber: fieldAt(fields, 0),
		IncludedSets:              sets,
	}, nil
}

func extractST(_ *parseState, fields []string) (Record, error) {
	return STRecord{
		TransactionSetID: fieldAt(fields, 0),
		ControlNumber:    fieldAt(fields, 1),
	}, nil
}

func extractSE(_ *parseState, fields []string) (Record, error) {
	segs, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	return SERecord{
		IncludedSegments: segs,
		ControlNumber:    fieldAt(fields, 1),
	}, nil
}

func extractG85(_ *parseState, fields []string) (Record, error) {
	if fieldAt(fields, 0) == "" {
		return nil, fmt.Errorf("missing checksum value")
	}
	return G85Record{Checksum: fieldAt(fields, 0)}, nil
}

func extractLS(_ *parseState, fields []string) (Record, error) {
	return LSRecord{LoopID: fieldAt(fields, 0)}, nil
}

func extractLE(_ *parseState, fields []string) (Record, error) {
	return LERecord{LoopID: fieldAt(fields, 0)}, nil
}

// =============================================================================
// IDENTITY EXTRACTORS
// =============================================================================

func extractID1(_ *parseState, fields []string) (Record, error) {
	if fieldAt(fields, 0) == "" {
		return nil, fmt.Errorf("missing serial number")
	}
	return ID1Record{
		SerialNumber:  fieldAt(fields, 0),
		ModelNumber:   fieldAt(fields, 1),
		BuildStandard: fieldAt(fields, 2),
		Location:      fieldAt(fields, 3),
		AssetNumber:   fieldAt(fields, 4),
	}, nil
}

func extractID4(_ *parseState, fields []string) (Record, error) {
	dpp, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	if dpp < 0 || dpp > 4 {
		return nil, fmt.Errorf("decimal point position %d out of range", dpp)
	}
	return ID4Record{
		DecimalPointPosition: dpp,
		CurrencyCode:         fieldAt(fields, 1),
	}, nil
}

func extractID5(_ *parseState, fields []string) (Record, error) {
	return ID5Record{
		Date: fieldAt(fields, 0),
		Time: fieldAt(fields, 1),
	}, nil
}

func extractID6(_ *parseState, fields []string) (Record, error) {
	return ID6Record{CashBagNumber: fieldAt(fields, 0)}, nil
}

func extractCB1(_ *parseState, fields []string) (Record, error) {
	return CB1Record{
		SerialNumber:     fieldAt(fields, 0),
		ModelNumber:      fieldAt(fields, 1),
		SoftwareRevision: fieldAt(fields, 2),
	}, nil
}

// =============================================================================
// VEND AUDIT TOTAL EXTRACTORS
// =============================================================================

// extractValueUnitPairs handles the common VA/CA2/DA2/TA2 shape:
// value, units (since init), value, units (since reset).
func extractValueUnitPairs(st *parseState, fields []string) (vi, ui, vr, ur int64, err error) {
	if vi, err = moneyCentsAt(st, fields, 0); err != nil {
		return
	}
	if ui, err = intAt(fields, 1); err != nil {
		return
	}
	if vr, err = moneyCentsAt(st, fields, 2); err != nil {
		return
	}
	ur, err = intAt(fields, 3)
	return
}

func extractVA1(st *parseState, fields []string) (Record, error) {
	vi, ui, vr, ur, err := extractValueUnitPairs(st, fields)
	if err != nil {
		return nil, err
	}
	return VA1Record{ValueInitCents: vi, UnitsInit: ui, ValueResetCents: vr, UnitsReset: ur}, nil
}

func extractVA2(st *parseState, fields []string) (Record, error) {
	vi, ui, vr, ur, err := extractValueUnitPairs(st, fields)
	if err != nil {
		return nil, err
	}
	return VA2Record{ValueInitCents: vi, UnitsInit: ui, ValueResetCents: vr, UnitsReset: ur}, nil
}

func extractVA3(st *parseState, fields []string) (Record, error) {
	vi, ui, vr, ur, err := extractValueUnitPairs(st, fields)
	if err != nil {
		return nil, err
	}
	return VA3Record{ValueInitCents: vi, UnitsInit: ui, ValueResetCents: vr, UnitsReset: ur}, nil
}

// =============================================================================
// PRODUCT AUDIT EXTRACTORS
// =============================================================================

// pa1Canonical is the DEX/UCS field order for PA1.
var pa1Canonical = []string{"selection", "price"}

// maxSanePriceCents rejects prices a vending selection cannot plausibly
// carry; values beyond it indicate a mis-ordered field, which triggers the
// alternate-order retry.
const maxSanePriceCents = 1_000_00

// extractPA1 resolves a PA1 line. The canonical field order is tried first;
// when the active manufacturer registers alternates and the canonical values
// fail sanity checks, the alternates are tried in turn before giving up.
func extractPA1(st *parseState, fields []string) (Record, error) {
	orders := [][]string{pa1Canonical}
	if alt := st.mfg.OrdersFor("PA1"); len(alt) > 0 {
		// Configured orders take priority, canonical remains the fallback.
		orders = append(append([][]string{}, alt...), pa1Canonical)
	}

	var firstErr error
	for _, order := range orders {
		rec, err := extractPA1WithOrder(st, fields, order)
		if err == nil {
			return rec, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// extractPA1WithOrder applies one candidate field order and sanity-checks
// the result.
func extractPA1WithOrder(st *parseState, fields []string, order []string) (Record, error) {
	rec := PA1Record{}
	for i, name := range order {
		switch name {
		case "selection":
			rec.SelectionNumber = fieldAt(fields, i)
		case "price":
			price, err := moneyCentsAt(st, fields, i)
			if err != nil {
				return nil, err
			}
			rec.PriceCents = price
		case "product_id":
			rec.ProductID = fieldAt(fields, i)
		case "capacity":
			capacity, err := intAt(fields, i)
			if err != nil {
				return nil, err
			}
			rec.Capacity = capacity
		case "standard_fill":
			fill, err := intAt(fields, i)
			if err != nil {
				return nil, err
			}
			rec.StandardFill = fill
		default:
			return nil, fmt.Errorf("unknown PA1 field name %q in configured order", name)
		}
	}

	if rec.SelectionNumber == "" {
		return nil, fmt.Errorf("missing selection number")
	}
	if rec.PriceCents < 0 {
		return nil, fmt.Errorf("negative price %d for selection %s", rec.PriceCents, rec.SelectionNumber)
	}
	if rec.PriceCents > maxSanePriceCents {
		return nil, fmt.Errorf("implausible price %d for selection %s", rec.PriceCents, rec.SelectionNumber)
	}
	return rec, nil
}

func extractPA2(st *parseState, fields []string) (Record, error) {
	ui, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	vi, err := moneyCentsAt(st, fields, 1)
	if err != nil {
		return nil, err
	}
	ur, err := intAt(fields, 2)
	if err != nil {
		return nil, err
	}
	vr, err := moneyCentsAt(st, fields, 3)
	if err != nil {
		return nil, err
	}
	if ui < 0 || ur < 0 {
		return nil, fmt.Errorf("negative vend count")
	}
	return PA2Record{UnitsInit: ui, ValueInitCents: vi, UnitsReset: ur, ValueResetCents: vr}, nil
}

func extractPA3(st *parseState, fields []string) (Record, error) {
	ui, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	vi, err := moneyCentsAt(st, fields, 1)
	if err != nil {
		return nil, err
	}
	return PA3Record{UnitsInit: ui, ValueInitCents: vi}, nil
}

func extractPA4(st *parseState, fields []string) (Record, error) {
	ui, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	vi, err := moneyCentsAt(st, fields, 1)
	if err != nil {
		return nil, err
	}
	return PA4Record{UnitsInit: ui, ValueInitCents: vi}, nil
}

func extractPA5(_ *parseState, fields []string) (Record, error) {
	count, err := intAt(fields, 2)
	if err != nil {
		return nil, err
	}
	return PA5Record{
		Date:      fieldAt(fields, 0),
		Time:      fieldAt(fields, 1),
		VendCount: count,
	}, nil
}

func extractPA7(st *parseState, fields []string) (Record, error) {
	if fieldAt(fields, 0) == "" {
		return nil, fmt.Errorf("missing selection number")
	}
	price, err := moneyCentsAt(st, fields, 2)
	if err != nil {
		return nil, err
	}
	ui, err := intAt(fields, 3)
	if err != nil {
		return nil, err
	}
	vi, err := moneyCentsAt(st, fields, 4)
	if err != nil {
		return nil, err
	}
	ur, err := intAt(fields, 5)
	if err != nil {
		return nil, err
	}
	vr, err := moneyCentsAt(st, fields, 6)
	if err != nil {
		return nil, err
	}
	if price < 0 || price > maxSanePriceCents {
		return nil, fmt.Errorf("implausible price %d for selection %s", price, fieldAt(fields, 0))
	}
	if ui < 0 || ur < 0 {
		return nil, fmt.Errorf("negative vend count")
	}
	return PA7Record{
		SelectionNumber: fieldAt(fields, 0),
		PriceListNumber: fieldAt(fields, 1),
		PriceCents:      price,
		UnitsInit:       ui,
		ValueInitCents:  vi,
		UnitsReset:      ur,
		ValueResetCents: vr,
	}, nil
}

func extractPA8(_ *parseState, fields []string) (Record, error) {
	count, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	return PA8Record{SoldOutCount: count, SoldOutDate: fieldAt(fields, 1)}, nil
}

// =============================================================================
// CASH EXTRACTORS
// =============================================================================

func extractCA1(_ *parseState, fields []string) (Record, error) {
	return CA1Record{
		SerialNumber:     fieldAt(fields, 0),
		ModelNumber:      fieldAt(fields, 1),
		SoftwareRevision: fieldAt(fields, 2),
	}, nil
}

func extractCA2(st *parseState, fields []string) (Record, error) {
	vi, ui, vr, ur, err := extractValueUnitPairs(st, fields)
	if err != nil {
		return nil, err
	}
	return CA2Record{ValueInitCents: vi, UnitsInit: ui, ValueResetCents: vr, UnitsReset: ur}, nil
}

func extractCA3(st *parseState, fields []string) (Record, error) {
	in, err := moneyCentsAt(st, fields, 0)
	if err != nil {
		return nil, err
	}
	box, err := moneyCentsAt(st, fields, 1)
	if err != nil {
		return nil, err
	}
	tubes, err := moneyCentsAt(st, fields, 2)
	if err != nil {
		return nil, err
	}
	init, err := moneyCentsAt(st, fields, 3)
	if err != nil {
		return nil, err
	}
	return CA3Record{
		CashInResetCents:    in,
		ToCashboxResetCents: box,
		ToTubesResetCents:   tubes,
		CashInInitCents:     init,
	}, nil
}

func extractCA4(st *parseState, fields []string) (Record, error) {
	disp, err := moneyCentsAt(st, fields, 0)
	if err != nil {
		return nil, err
	}
	man, err := moneyCentsAt(st, fields, 1)
	if err != nil {
		return nil, err
	}
	init, err := moneyCentsAt(st, fields, 2)
	if err != nil {
		return nil, err
	}
	return CA4Record{DispensedResetCents: disp, ManualResetCents: man, DispensedInitCents: init}, nil
}

// extractMoneyPair handles the reset/init two-value money shape shared by
// several cash and cashless counters.
func extractMoneyPair(st *parseState, fields []string) (reset, init int64, err error) {
	if reset, err = moneyCentsAt(st, fields, 0); err != nil {
		return
	}
	init, err = moneyCentsAt(st, fields, 1)
	return
}

func extractCA7(st *parseState, fields []string) (Record, error) {
	reset, init, err := extractMoneyPair(st, fields)
	if err != nil {
		return nil, err
	}
	return CA7Record{ValueResetCents: reset, ValueInitCents: init}, nil
}

func extractCA8(st *parseState, fields []string) (Record, error) {
	reset, init, err := extractMoneyPair(st, fields)
	if err != nil {
		return nil, err
	}
	return CA8Record{ValueResetCents: reset, ValueInitCents: init}, nil
}

func extractCA10(st *parseState, fields []string) (Record, error) {
	filled, disp, err := extractMoneyPair(st, fields)
	if err != nil {
		return nil, err
	}
	return CA10Record{FilledResetCents: filled, DispensedResetCents: disp}, nil
}

func extractCA15(st *parseState, fields []string) (Record, error) {
	v, err := moneyCentsAt(st, fields, 0)
	if err != nil {
		return nil, err
	}
	return CA15Record{TubeContentsCents: v}, nil
}

func extractCA17(st *parseState, fields []string) (Record, error) {
	value, err := moneyCentsAt(st, fields, 1)
	if err != nil {
		return nil, err
	}
	count, err := intAt(fields, 2)
	if err != nil {
		return nil, err
	}
	return CA17Record{
		CoinTypeNumber: fieldAt(fields, 0),
		CoinValueCents: value,
		CoinCount:      count,
	}, nil
}

// =============================================================================
// BILL AND CASHLESS EXTRACTORS
// =============================================================================

func extractBA1(_ *parseState, fields []string) (Record, error) {
	return BA1Record{
		SerialNumber:     fieldAt(fields, 0),
		ModelNumber:      fieldAt(fields, 1),
		SoftwareRevision: fieldAt(fields, 2),
	}, nil
}

func extractDA1(_ *parseState, fields []string) (Record, error) {
	return DA1Record{
		SerialNumber:     fieldAt(fields, 0),
		ModelNumber:      fieldAt(fields, 1),
		SoftwareRevision: fieldAt(fields, 2),
	}, nil
}

func extractDA2(st *parseState, fields []string) (Record, error) {
	vi, ui, vr, ur, err := extractValueUnitPairs(st, fields)
	if err != nil {
		return nil, err
	}
	return DA2Record{ValueInitCents: vi, UnitsInit: ui, ValueResetCents: vr, UnitsReset: ur}, nil
}

func extractDA4(st *parseState, fields []string) (Record, error) {
	reset, init, err := extractMoneyPair(st, fields)
	if err != nil {
		return nil, err
	}
	return DA4Record{ValueResetCents: reset, ValueInitCents: init}, nil
}

func extractDA5(st *parseState, fields []string) (Record, error) {
	reset, init, err := extractMoneyPair(st, fields)
	if err != nil {
		return nil, err
	}
	return DA5Record{ValueResetCents: reset, ValueInitCents: init}, nil
}

// =============================================================================
// EVENT AND MACHINE EXTRACTORS
// =============================================================================

func extractEA1(_ *parseState, fields []string) (Record, error) {
	if fieldAt(fields, 0) == "" {
		return nil, fmt.Errorf("missing event identifier")
	}
	return EA1Record{
		EventID: fieldAt(fields, 0),
		Date:    fieldAt(fields, 1),
		Time:    fieldAt(fields, 2),
	}, nil
}

func extractEA2(_ *parseState, fields []string) (Record, error) {
	reset, err := intAt(fields, 1)
	if err != nil {
		return nil, err
	}
	init, err := intAt(fields, 2)
	if err != nil {
		return nil, err
	}
	return EA2Record{EventID: fieldAt(fields, 0), CountReset: reset, CountInit: init}, nil
}

func extractEA3(_ *parseState, fields []string) (Record, error) {
	reset, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	init, err := intAt(fields, 3)
	if err != nil {
		return nil, err
	}
	return EA3Record{
		ReadsReset:   reset,
		DateLastRead: fieldAt(fields, 1),
		TimeLastRead: fieldAt(fields, 2),
		ReadsInit:    init,
	}, nil
}

// extractCountPair handles the reset/init two-counter shape shared by the
// EA tail records.
func extractCountPair(fields []string) (reset, init int64, err error) {
	if reset, err = intAt(fields, 0); err != nil {
		return
	}
	init, err = intAt(fields, 1)
	return
}

func extractEA4(_ *parseState, fields []string) (Record, error) {
	reset, init, err := extractCountPair(fields)
	if err != nil {
		return nil, err
	}
	return EA4Record{OutagesReset: reset, OutagesInit: init}, nil
}

func extractEA5(_ *parseState, fields []string) (Record, error) {
	reset, err := intAt(fields, 0)
	if err != nil {
		return nil, err
	}
	return EA5Record{
		OpensReset:   reset,
		DateLastOpen: fieldAt(fields, 1),
		TimeLastOpen: fieldAt(fields, 2),
	}, nil
}

func extractEA7(_ *parseState, fields []string) (Record, error) {
	reset, init, err := extractCountPair(fields)
	if err != nil {
		return nil, err
	}
	return EA7Record{MinutesReset: reset, MinutesInit: init}, nil
}

func extractEA9(_ *parseState, fields []string) (Record, error) {
	reset, init, err := extractCountPair(fields)
	if err != nil {
		return nil, err
	}
	return EA9Record{ChangesReset: reset, ChangesInit: init}, nil
}

func extractMA5(_ *parseState, fields []string) (Record, error) {
	if fieldAt(fields, 0) == "" {
		return nil, fmt.Errorf("missing status code")
	}
	values := make([]string, 0, len(fields)-1)
	for i := 1; i < len(fields); i++ {
		values = append(values, fieldAt(fields, i))
	}
	return MA5Record{StatusCode: fieldAt(fields, 0), Values: values}, nil
}

func extractTA2(st *parseState, fields []string) (Record, error) {
	vi, ui, vr, ur, err := extractValueUnitPairs(st, fields)
	if err != nil {
		return nil, err
	}
	return TA2Record{ValueInitCents: vi, UnitsInit: ui, ValueResetCents: vr, UnitsReset: ur}, nil
}
