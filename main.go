// =============================================================================
// DEX Audit Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the DEX Audit Converter CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   dexaudit process    - Process all DEX files in the input directory
//   dexaudit version    - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//   - configs/       : Contains manufacturer-specific YAML quirk configurations
//
// =============================================================================

package main

import (
	"github.com/vendinsight/dex-audit-converter/cmd"
)

// main simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
