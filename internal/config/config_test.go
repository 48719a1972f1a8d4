package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not error: %v", err)
	}
	if cfg.InputDir != "./input" {
		t.Errorf("input_dir = %q, want default ./input", cfg.InputDir)
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("max_concurrency = %d, want default 4", cfg.MaxConcurrency)
	}
	if cfg.GridConfidenceThreshold != 0.5 {
		t.Errorf("grid_confidence_threshold = %g, want default 0.5", cfg.GridConfidenceThreshold)
	}
	if cfg.MaxFileBytes != 50*1024*1024 {
		t.Errorf("max_file_bytes = %d, want 50 MB default", cfg.MaxFileBytes)
	}
}

func TestLoadMainConfigOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("input_dir: /data/dex\nmax_concurrency: 8\nrevenue_tolerance_cents: 10\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}
	if cfg.InputDir != "/data/dex" {
		t.Errorf("input_dir = %q, want /data/dex", cfg.InputDir)
	}
	if cfg.MaxConcurrency != 8 {
		t.Errorf("max_concurrency = %d, want 8", cfg.MaxConcurrency)
	}
	if cfg.RevenueToleranceCents != 10 {
		t.Errorf("revenue_tolerance_cents = %d, want 10", cfg.RevenueToleranceCents)
	}
	// Unset keys keep their defaults.
	if cfg.OutputDir != "./output" {
		t.Errorf("output_dir = %q, want default ./output", cfg.OutputDir)
	}
}

func TestLoadMainConfigRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("grid_confidence_threshold: 2.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMainConfig(path); err == nil {
		t.Fatal("threshold 2.5 must be rejected")
	}
}

func TestLoadManufacturerConfigsBuiltinsOnly(t *testing.T) {
	configs, err := LoadManufacturerConfigs(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing configs dir must not error: %v", err)
	}
	for _, code := range []string{"VEN", "AMS", "CRN"} {
		if configs[code] == nil {
			t.Errorf("built-in %s missing", code)
		}
	}
	if !configs["CRN"].DecimalPrices {
		t.Error("Crane built-in must report decimal prices")
	}
	if len(configs["AMS"].OrdersFor("PA1")) == 0 {
		t.Error("AMS built-in must register PA1 field orders")
	}
}

func TestLoadManufacturerConfigsFileOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	content := []byte("manufacturer_name: Vendo Custom\nmanufacturer_code: VEN\nserial_prefixes: [VVV]\n")
	if err := os.WriteFile(filepath.Join(dir, "vendo.yaml"), content, 0644); err != nil {
		t.Fatal(err)
	}

	configs, err := LoadManufacturerConfigs(dir)
	if err != nil {
		t.Fatalf("LoadManufacturerConfigs: %v", err)
	}
	ven := configs["VEN"]
	if ven.ManufacturerName != "Vendo Custom" {
		t.Errorf("name = %q, want the file to replace the built-in", ven.ManufacturerName)
	}
	if len(ven.SerialPrefixes) != 1 || ven.SerialPrefixes[0] != "VVV" {
		t.Errorf("prefixes = %v, want [VVV]", ven.SerialPrefixes)
	}
}

func TestLoadManufacturerConfigsBadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("::::"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManufacturerConfigs(dir); err == nil {
		t.Fatal("unparseable quirk file must error")
	}
}

func TestFindManufacturer(t *testing.T) {
	table := make(map[string]*ManufacturerConfig)
	for _, m := range BuiltinManufacturers() {
		table[m.ManufacturerCode] = m
	}

	cases := []struct {
		serial string
		want   string
	}{
		{"VEN0012345", "Vendo"},
		{"ven0012345", "Vendo"},
		{"NAT7778881", "Crane"},
		{"AMS1", "AMS"},
		{"XYZ999", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := FindManufacturer(table, tc.serial)
		name := ""
		if got != nil {
			name = got.ManufacturerName
		}
		if name != tc.want {
			t.Errorf("FindManufacturer(%q) = %q, want %q", tc.serial, name, tc.want)
		}
	}
}

func TestOrdersForNilSafe(t *testing.T) {
	var m *ManufacturerConfig
	if m.OrdersFor("PA1") != nil {
		t.Error("nil config must return nil orders")
	}
}
