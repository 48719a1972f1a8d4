// =============================================================================
// DEX Audit Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which is the main command for
// converting DEX audit files to XLSX reports. It orchestrates the whole run.
//
// COMMAND USAGE:
//   dexaudit process [flags]
//
// FLAGS:
//   --dry-run  : Parse and analyze without writing reports or moving files
//   --single   : Process only a single file (specify with --file)
//   --file     : Path to a specific file to process (used with --single)
//   --pattern  : Glob pattern for input discovery (default "*.dex")
//
// PROCESSING PIPELINE:
//   1. Load configuration and manufacturer quirk tables
//   2. Discover DEX files in the input directory
//   3. For each file (concurrently):
//      a. Parse the DEX records and consolidate selections
//      b. Validate the audit numbers
//      c. Classify the selection grid
//      d. Write the XLSX report
//   4. Archive processed files
//   5. Generate the run summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vendinsight/dex-audit-converter/internal/config"
	"github.com/vendinsight/dex-audit-converter/internal/pipeline"
	"github.com/vendinsight/dex-audit-converter/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun parses and analyzes without writing reports or moving files.
var dryRun bool

// singleFile indicates whether to process only a single file.
var singleFile bool

// filePath is the path to a specific file to process (used with --single).
var filePath string

// filePattern is the glob pattern for input discovery.
var filePattern string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process DEX audit files and generate XLSX reports",
	Long: `The process command scans the input directory for DEX audit files,
parses each one into consolidated per-selection sales data, classifies the
machine's selection grid, and writes an XLSX report per file.

Processing is concurrent and per-file independent: a malformed file is
reported and skipped without affecting the rest of the batch.

On successful processing:
  - The generated report is placed in the output directory
  - The original DEX file is moved to the input archive
  - A run summary is written to the output directory

On error:
  - The original DEX file remains in the input directory
  - Processing continues for other files`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the process command and its local flags.
func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Parse and analyze without writing reports or moving files",
	)

	processCmd.Flags().BoolVar(
		&singleFile,
		"single",
		false,
		"Process only a single file (use with --file)",
	)

	processCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Path to a specific file to process (used with --single)",
	)

	processCmd.Flags().StringVar(
		&filePattern,
		"pattern",
		"*.dex",
		"Glob pattern for input file discovery",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates one processing run.
func runProcess() error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	manufacturers, err := config.LoadManufacturerConfigs(mainConfig.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load manufacturer configs: %w", err)
	}

	log, err := newLogger(mainConfig.LogFile, mainConfig.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Infow("configuration loaded",
		"config", cfgFile,
		"manufacturers", len(manufacturers),
		"dry_run", dryRun,
	)

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	fm := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.OutputArchiveDir,
	)
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	var inputFiles []string
	if singleFile {
		if filePath == "" {
			return fmt.Errorf("--single requires --file")
		}
		if !utils.FileExists(filePath) {
			return fmt.Errorf("file not found: %s", filePath)
		}
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverInputFiles(filePattern)
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		log.Infow("no input files found", "dir", mainConfig.InputDir, "pattern", filePattern)
		return nil
	}
	log.Infow("input files discovered", "count", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS THE BATCH
	// =========================================================================

	p := pipeline.New(mainConfig, manufacturers, log, dryRun)
	stats := p.Run(inputFiles)

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:  %d\n", stats.TotalFiles)
	fmt.Printf("Successful:   %d\n", stats.SuccessfulFiles)
	fmt.Printf("Failed:       %d\n", stats.FailedFiles)
	fmt.Printf("Selections:   %d\n", stats.TotalSelections)
	fmt.Printf("Skipped:      %d\n", stats.TotalSkipped)

	for _, result := range stats.Results {
		name := filepath.Base(result.FilePath)
		switch {
		case result.Error != nil:
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
		case !result.Success:
			fmt.Printf("  ✗ %s: structural parse failure\n", name)
		case dryRun:
			fmt.Printf("  ✓ %s (dry run)\n", name)
		default:
			fmt.Printf("  ✓ %s -> %s\n", name, filepath.Base(result.ReportFile))
		}
	}

	if stats.SummaryLog != "" {
		fmt.Printf("\nRun summary: %s\n", stats.SummaryLog)
	}

	return nil
}
