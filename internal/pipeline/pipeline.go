// =============================================================================
// DEX Audit Converter - Processing Pipeline
// =============================================================================
//
// This module orchestrates the full per-file pipeline:
//   1. Read the DEX file (with a size cap against runaway transmissions)
//   2. Parse it into consolidated selection audits
//   3. Validate the audit numbers for internal consistency
//   4. Classify the selection grid and assign coordinates
//   5. Write the XLSX report
//   6. Archive the input file and the report
//
// Each file is independent: a failure in one never affects another, and a
// batch run processes files concurrently up to the configured limit.
//
// FAILURE SEMANTICS:
//   Parse-level problems (bad records, missing trailer) are not pipeline
//   errors; they travel inside the DexFileResult and end up in the report.
//   A pipeline error means the file could not be read or the report could
//   not be written, in which case the input file stays where it is.
//
// =============================================================================

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vendinsight/dex-audit-converter/internal/config"
	"github.com/vendinsight/dex-audit-converter/internal/dexparser"
	"github.com/vendinsight/dex-audit-converter/internal/gridpattern"
	"github.com/vendinsight/dex-audit-converter/internal/reportwriter"
	"github.com/vendinsight/dex-audit-converter/internal/types"
	"github.com/vendinsight/dex-audit-converter/internal/validation"
	"github.com/vendinsight/dex-audit-converter/pkg/utils"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Result is the outcome of processing one DEX file.
type Result struct {
	// FilePath is the input file processed.
	FilePath string

	// Success is true when the file parsed cleanly and the report was
	// written. A structurally failed parse still writes a report but
	// reports Success == false.
	Success bool

	// Error is set only for pipeline failures (unreadable file, report
	// write failure). Parse diagnostics live in Parsed.
	Error error

	// ReportFile is the generated report path, empty on dry runs.
	ReportFile string

	// ArchivePath is where the input file was moved, empty when it was
	// left in place.
	ArchivePath string

	// Parsed is the full parse result, nil when the file was unreadable.
	Parsed *types.DexFileResult

	// Validation summarizes the consistency checks, nil when parsing
	// never ran.
	Validation *validation.Result

	// Duration is the wall-clock processing time for this file.
	Duration time.Duration
}

// Stats aggregates a batch run.
type Stats struct {
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRecords    int
	TotalSelections int
	TotalSkipped    int
	TotalWarnings   int
	Results         []Result
	SummaryLog      string
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline processes DEX files end to end. Construct once per run; safe
// for concurrent ProcessFile calls.
type Pipeline struct {
	cfg       *config.MainConfig
	parser    *dexparser.Parser
	analyzer  *gridpattern.Analyzer
	validator *validation.Validator
	writer    *reportwriter.Writer
	files     *utils.FileManager
	log       *zap.SugaredLogger

	// dryRun skips report writing and archival.
	dryRun bool
}

// New wires a Pipeline from the loaded configuration.
//
// PARAMETERS:
//   - cfg: the validated main configuration.
//   - manufacturers: the merged manufacturer quirk table.
//   - log: the run logger. Must not be nil.
//   - dryRun: when true, parse and analyze only; write and move nothing.
func New(cfg *config.MainConfig, manufacturers map[string]*config.ManufacturerConfig, log *zap.SugaredLogger, dryRun bool) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		parser:    dexparser.New(manufacturers),
		analyzer:  gridpattern.New(cfg.GridConfidenceThreshold),
		validator: validation.New(cfg.RevenueTolerancePercent, cfg.RevenueToleranceCents),
		writer:    reportwriter.New(),
		files:     utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir),
		log:       log,
		dryRun:    dryRun,
	}
}

// =============================================================================
// SINGLE FILE PROCESSING
// =============================================================================

// ProcessFile runs the full pipeline on one DEX file.
func (p *Pipeline) ProcessFile(path string) Result {
	start := time.Now()
	result := Result{FilePath: path}

	content, err := p.readCapped(path)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		p.log.Errorw("file unreadable", "file", path, "error", err)
		return result
	}

	parsed := p.parser.Parse(content, filepath.Base(path))
	result.Parsed = parsed
	result.Validation = p.validator.Validate(parsed)
	grid := p.analyzer.AnalyzeResult(parsed)

	p.log.Infow("parsed",
		"file", parsed.Filename,
		"success", parsed.Success,
		"records", parsed.RecordCount,
		"selections", len(parsed.Selections),
		"skipped", len(parsed.Skipped),
		"pattern", string(grid.Pattern),
		"confidence", grid.Confidence,
	)
	for _, warning := range parsed.Warnings {
		p.log.Warnw("file warning", "file", parsed.Filename, "warning", warning)
	}

	if p.dryRun {
		result.Success = parsed.Success
		result.Duration = time.Since(start)
		return result
	}

	reportName := utils.GenerateReportFileName(p.cfg.ReportNameFormat, map[string]string{
		"machine":  machineLabel(parsed, path),
		"original": strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	})
	reportPath := filepath.Join(p.cfg.OutputDir, reportName)

	if err := p.writer.Write(parsed, reportPath); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		p.log.Errorw("report write failed", "file", path, "error", err)
		return result
	}
	result.ReportFile = reportPath

	if _, err := p.files.ArchiveOutputFile(reportPath); err != nil {
		p.log.Warnw("report archival failed", "report", reportPath, "error", err)
	}
	// The input file is archived even when the parse was imperfect;
	// only an unreadable or unwritable file stays behind for a retry.
	archivePath, err := p.files.ArchiveInputFile(path)
	if err != nil {
		p.log.Warnw("input archival failed", "file", path, "error", err)
	} else {
		result.ArchivePath = archivePath
	}

	result.Success = parsed.Success
	result.Duration = time.Since(start)
	return result
}

// readCapped reads a DEX file, refusing files over the configured size cap.
func (p *Pipeline) readCapped(path string) (string, error) {
	size, err := utils.GetFileSize(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if p.cfg.MaxFileBytes > 0 && size > p.cfg.MaxFileBytes {
		return "", fmt.Errorf("file %s is %d bytes, over the %d byte limit", path, size, p.cfg.MaxFileBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(content), nil
}

// machineLabel picks the identifier used in report names: the controller
// serial when the file carried one, otherwise the input file stem.
func machineLabel(parsed *types.DexFileResult, path string) string {
	if parsed.Machine.SerialNumber != "" {
		return parsed.Machine.SerialNumber
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// =============================================================================
// BATCH PROCESSING
// =============================================================================

// Run processes a batch of files concurrently, bounded by the configured
// concurrency limit, and writes a run summary log.
func (p *Pipeline) Run(files []string) Stats {
	startTime := time.Now()

	var wg sync.WaitGroup
	results := make(chan Result, len(files))
	limiter := make(chan struct{}, p.cfg.MaxConcurrency)

	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()
			results <- p.ProcessFile(path)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	stats := Stats{TotalFiles: len(files)}
	summary := utils.ProcessingSummary{StartTime: startTime, TotalFiles: len(files)}

	for result := range results {
		stats.Results = append(stats.Results, result)

		if result.Parsed != nil {
			stats.TotalRecords += result.Parsed.RecordCount
			stats.TotalSelections += len(result.Parsed.Selections)
			stats.TotalSkipped += len(result.Parsed.Skipped)
			stats.TotalWarnings += len(result.Parsed.Warnings)
		}

		if result.Error != nil || !result.Success {
			stats.FailedFiles++
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: failureMessage(result),
			})
			continue
		}

		stats.SuccessfulFiles++
		summary.SuccessfulFiles++
		info := utils.ProcessedFileInfo{
			InputFile:   result.FilePath,
			ReportFile:  result.ReportFile,
			ArchivePath: result.ArchivePath,
			Records:     result.Parsed.RecordCount,
			Selections:  len(result.Parsed.Selections),
			Skipped:     len(result.Parsed.Skipped),
			ProcessTime: result.Duration,
		}
		if result.Parsed.Grid != nil {
			info.GridPattern = string(result.Parsed.Grid.Pattern)
		}
		summary.ProcessedFiles = append(summary.ProcessedFiles, info)
	}

	summary.EndTime = time.Now()
	summary.TotalRecords = stats.TotalRecords
	summary.TotalSelections = stats.TotalSelections
	summary.TotalSkipped = stats.TotalSkipped
	summary.TotalWarnings = stats.TotalWarnings

	if !p.dryRun {
		logPath, err := utils.WriteSummaryLog(summary, p.cfg.OutputDir)
		if err != nil {
			p.log.Warnw("summary log write failed", "error", err)
		} else {
			stats.SummaryLog = logPath
		}
	}

	p.log.Infow("batch complete",
		"files", stats.TotalFiles,
		"successful", stats.SuccessfulFiles,
		"failed", stats.FailedFiles,
		"elapsed", time.Since(startTime).String(),
	)

	return stats
}

// failureMessage describes why a file counts as failed in the summary.
func failureMessage(result Result) string {
	if result.Error != nil {
		return result.Error.Error()
	}
	if result.Parsed != nil && len(result.Parsed.Warnings) > 0 {
		return "structural parse failure: " + strings.Join(result.Parsed.Warnings, "; ")
	}
	return "structural parse failure"
}
