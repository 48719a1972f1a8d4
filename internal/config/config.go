// =============================================================================
// DEX Audit Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and manufacturer-specific
// configurations.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Manufacturer Configs (configs/*.yaml): Firmware-specific field quirks
//
// ARCHITECTURE:
//   The configuration system is designed to be:
//   - Modular: Each manufacturer has its own configuration file
//   - Extensible: New firmware quirks can be added without code changes
//   - Self-sufficient: Built-in defaults cover Vendo, AMS and Crane, so the
//     tool runs with no configuration files present at all
//
//   Everything loaded here is read-only after startup. The parser receives
//   the manufacturer table as an explicit value, which keeps concurrent
//   per-file pipelines free of shared mutable state.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory where uploaded DEX files are placed.
	// The application will scan this directory for files to process.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where generated audit reports are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is the directory where processed DEX files are moved.
	// Files are only moved here after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir is the directory where generated reports are archived.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ConfigsDir is the directory containing manufacturer configurations.
	// Each YAML file in this directory describes one manufacturer's quirks.
	// Default: "./configs"
	ConfigsDir string `yaml:"configs_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file.
	// Empty means log to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ReportNameFormat defines the format for report file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {machine}   - Machine serial number (or "unknown")
	// Default: "{machine}_{timestamp}_{uuid}.xlsx"
	ReportNameFormat string `yaml:"report_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files to process concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError determines whether to continue processing other files
	// if one file fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// MaxFileBytes rejects input files larger than this size before any
	// parsing happens. The upstream upload cap is 50 MB.
	// Default: 52428800
	MaxFileBytes int64 `yaml:"max_file_bytes"`

	// =========================================================================
	// VALIDATION SETTINGS
	// =========================================================================

	// RevenueTolerancePercent is the allowed relative drift between
	// revenue_cents and price_cents * units_sold before a warning is
	// attached to the selection. Vendor rounding differs, so this is a
	// tolerance, not an equality check.
	// Default: 1.0
	RevenueTolerancePercent float64 `yaml:"revenue_tolerance_percent"`

	// RevenueToleranceCents is the absolute floor for the same check; the
	// larger of the two tolerances applies.
	// Default: 5
	RevenueToleranceCents int64 `yaml:"revenue_tolerance_cents"`

	// =========================================================================
	// GRID ANALYSIS SETTINGS
	// =========================================================================

	// GridConfidenceThreshold is the minimum matcher confidence required
	// to classify a layout. Below it the result is UNCLASSIFIED and no
	// coordinates are assigned. The 0.5 default is calibrated against
	// field samples.
	// Default: 0.5
	GridConfidenceThreshold float64 `yaml:"grid_confidence_threshold"`
}

// =============================================================================
// MANUFACTURER CONFIGURATION STRUCTURE
// =============================================================================

// ManufacturerConfig holds the firmware quirks for one machine manufacturer.
// The field order and optional-field presence for a given record-type code
// vary between manufacturers; each configuration lists the candidate field
// orders the parser should try for the ambiguous codes.
type ManufacturerConfig struct {
	// ManufacturerName is the human-readable name ("Vendo").
	ManufacturerName string `yaml:"manufacturer_name"`

	// ManufacturerCode is a short code used in logs and reports ("VEN").
	ManufacturerCode string `yaml:"manufacturer_code"`

	// SerialPrefixes are ID1 serial-number (or DXS transmitter) prefixes
	// that identify this manufacturer's controllers.
	SerialPrefixes []string `yaml:"serial_prefixes"`

	// FieldOrders maps a record-type code to the candidate field orders to
	// try, most common first. Field names must come from the schema
	// vocabulary of that record type (see dexparser). Codes not listed
	// here use the canonical DEX/UCS order.
	//
	// Example:
	//   field_orders:
	//     PA1:
	//       - [selection, price]
	//       - [selection, product_id, price]
	FieldOrders map[string][][]string `yaml:"field_orders"`

	// DecimalPrices indicates the firmware reports monetary fields as
	// decimal currency ("2.50") instead of integer cents.
	DecimalPrices bool `yaml:"decimal_prices"`
}

// OrdersFor returns the candidate field orders for a record-type code, or
// nil when this manufacturer has no quirk registered for it.
func (m *ManufacturerConfig) OrdersFor(code string) [][]string {
	if m == nil || m.FieldOrders == nil {
		return nil
	}
	return m.FieldOrders[code]
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error: the built-in defaults are returned so the
// tool can run from a bare checkout.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyMainConfigDefaults(&config)
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "./configs"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.ReportNameFormat == "" {
		config.ReportNameFormat = "{machine}_{timestamp}_{uuid}.xlsx"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.MaxFileBytes == 0 {
		config.MaxFileBytes = 50 * 1024 * 1024
	}
	if config.RevenueTolerancePercent == 0 {
		config.RevenueTolerancePercent = 1.0
	}
	if config.RevenueToleranceCents == 0 {
		config.RevenueToleranceCents = 5
	}
	if config.GridConfidenceThreshold == 0 {
		config.GridConfidenceThreshold = 0.5
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.GridConfidenceThreshold < 0 || config.GridConfidenceThreshold > 1 {
		return fmt.Errorf("grid_confidence_threshold must be in [0,1], got %g", config.GridConfidenceThreshold)
	}
	if config.MaxFileBytes < 0 {
		return fmt.Errorf("max_file_bytes must not be negative, got %d", config.MaxFileBytes)
	}
	return nil
}

// =============================================================================
// MANUFACTURER CONFIGURATION LOADING
// =============================================================================

// LoadManufacturerConfigs loads all manufacturer configurations from a
// directory and merges them over the built-in defaults.
//
// RETURNS:
//   - A map of configurations keyed by manufacturer code. A file with the
//     same code as a built-in replaces the built-in entirely.
//   - An error if a present file cannot be parsed. A missing directory is
//     fine: only the built-ins are returned.
func LoadManufacturerConfigs(configsDir string) (map[string]*ManufacturerConfig, error) {
	configs := make(map[string]*ManufacturerConfig)
	for _, m := range BuiltinManufacturers() {
		configs[m.ManufacturerCode] = m
	}

	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := loadManufacturerConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := config.ManufacturerCode
		if key == "" {
			key = filepath.Base(file)
		}
		configs[key] = config
	}

	return configs, nil
}

// loadManufacturerConfig loads a single manufacturer configuration file.
func loadManufacturerConfig(filePath string) (*ManufacturerConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config ManufacturerConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	return &config, nil
}

// =============================================================================
// BUILT-IN MANUFACTURER QUIRKS
// =============================================================================

// BuiltinManufacturers returns the quirk table for the manufacturers observed
// in the field. These are defaults; a YAML file with the same code overrides
// the built-in.
//
// Quirk notes:
//   - Vendo follows the canonical DEX/UCS field order throughout.
//   - AMS firmware inserts a product identifier between the selection number
//     and the price in PA1.
//   - Crane reports prices as decimal currency and appends capacity fields
//     to PA1.
func BuiltinManufacturers() []*ManufacturerConfig {
	return []*ManufacturerConfig{
		{
			ManufacturerName: "Vendo",
			ManufacturerCode: "VEN",
			SerialPrefixes:   []string{"VEN", "VDO", "VEC"},
		},
		{
			ManufacturerName: "AMS",
			ManufacturerCode: "AMS",
			SerialPrefixes:   []string{"AMS"},
			FieldOrders: map[string][][]string{
				"PA1": {
					{"selection", "product_id", "price"},
					{"selection", "price"},
				},
			},
		},
		{
			ManufacturerName: "Crane",
			ManufacturerCode: "CRN",
			SerialPrefixes:   []string{"CRN", "CRA", "NAT"},
			FieldOrders: map[string][][]string{
				"PA1": {
					{"selection", "price", "capacity", "standard_fill"},
					{"selection", "price"},
				},
			},
			DecimalPrices: true,
		},
	}
}

// FindManufacturer resolves a manufacturer configuration from an ID1 serial
// number (or DXS transmitter ID) by prefix match. Returns nil when no
// configured manufacturer matches.
func FindManufacturer(configs map[string]*ManufacturerConfig, serial string) *ManufacturerConfig {
	for _, m := range configs {
		for _, prefix := range m.SerialPrefixes {
			if len(serial) >= len(prefix) && equalFold(serial[:len(prefix)], prefix) {
				return m
			}
		}
	}
	return nil
}

// equalFold is an ASCII case-insensitive comparison for serial prefixes.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
