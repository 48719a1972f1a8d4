// =============================================================================
// DEX Audit Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'process', 'version') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (dexaudit)
//   ├── processCmd (dexaudit process)
//   └── versionCmd (dexaudit version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Building the shared logger
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug-level logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "dexaudit",

	Short: "DEX Audit Converter - Turn raw vending machine DEX audits into XLSX reports",

	Long: `DEX Audit Converter is a CLI tool that parses raw DEX/UCS audit files
collected from vending machines, consolidates the per-selection sales data,
infers the machine's physical selection grid, and renders XLSX reports for
the operations team.

Key Features:
  - Tolerant DEX record parsing (unknown and malformed lines never abort a file)
  - Manufacturer-specific field order handling via YAML quirk configs
  - Automatic selection grid classification (rows and columns per selection)
  - Revenue consistency validation with configurable tolerances
  - Concurrent batch processing with automatic file archival

Example Usage:
  dexaudit process                      # Process all DEX files in the input directory
  dexaudit process --config ./my.yaml   # Use a custom configuration file
  dexaudit process --dry-run            # Parse and report to the log only`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the persistent flags shared by all subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug output",
	)
}

// =============================================================================
// LOGGING
// =============================================================================

// newLogger builds the run logger: console output always, plus the
// configured log file when one is set. --verbose lowers the level to debug
// regardless of the configured level.
func newLogger(logFile, configuredLevel string) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if configuredLevel != "" {
		if err := level.Set(configuredLevel); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", configuredLevel, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}
