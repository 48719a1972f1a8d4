package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/vendinsight/dex-audit-converter/internal/config"
	"github.com/vendinsight/dex-audit-converter/pkg/utils"
)

const sampleDex = `DXS*VN123456789*VA*V1/1*1
ID1*VEN0012345*FSI-3039*1234
VA1*4500*22*4500*22
PA1*A1*250
PA2*12*3000*12*3000
PA1*A2*150
PA2*10*1500*10*1500
G85*04FC
DXE*1*1
`

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()
	cfg := &config.MainConfig{
		InputDir:                filepath.Join(root, "input"),
		OutputDir:               filepath.Join(root, "output"),
		InputArchiveDir:         filepath.Join(root, "input_archive"),
		OutputArchiveDir:        filepath.Join(root, "output_archive"),
		ReportNameFormat:        "{machine}_{uuid}.xlsx",
		MaxConcurrency:          2,
		MaxFileBytes:            1 << 20,
		RevenueTolerancePercent: 1.0,
		RevenueToleranceCents:   5,
		GridConfidenceThreshold: 0.5,
	}
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeDex(t *testing.T, cfg *config.MainConfig, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFileEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	path := writeDex(t, cfg, "machine.dex", sampleDex)

	p := New(cfg, nil, zap.NewNop().Sugar(), false)
	result := p.ProcessFile(path)

	if result.Error != nil {
		t.Fatalf("pipeline error: %v", result.Error)
	}
	if !result.Success {
		t.Fatalf("expected success, parse warnings: %v", result.Parsed.Warnings)
	}
	if result.ReportFile == "" || !utils.FileExists(result.ReportFile) {
		t.Fatalf("report %q missing", result.ReportFile)
	}
	if !strings.HasPrefix(filepath.Base(result.ReportFile), "VEN0012345_") {
		t.Errorf("report name %q, want machine serial prefix", filepath.Base(result.ReportFile))
	}
	if utils.FileExists(path) {
		t.Error("input file not archived")
	}
	if result.Parsed.Grid == nil || !result.Parsed.Grid.Classified() {
		t.Error("grid analysis missing from parse result")
	}
	if result.Parsed.Selections[0].Row != "A" {
		t.Errorf("grid coordinates not applied: %+v", result.Parsed.Selections[0])
	}
}

func TestProcessFileDryRun(t *testing.T) {
	cfg := testConfig(t)
	path := writeDex(t, cfg, "machine.dex", sampleDex)

	p := New(cfg, nil, zap.NewNop().Sugar(), true)
	result := p.ProcessFile(path)

	if result.Error != nil {
		t.Fatalf("pipeline error: %v", result.Error)
	}
	if result.ReportFile != "" {
		t.Errorf("dry run wrote a report: %s", result.ReportFile)
	}
	if !utils.FileExists(path) {
		t.Error("dry run moved the input file")
	}
	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run produced output files: %v", entries)
	}
}

func TestProcessFileOverSizeCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileBytes = 8
	path := writeDex(t, cfg, "big.dex", sampleDex)

	p := New(cfg, nil, zap.NewNop().Sugar(), false)
	result := p.ProcessFile(path)

	if result.Error == nil {
		t.Fatal("oversized file must be rejected")
	}
	if !utils.FileExists(path) {
		t.Error("rejected file must stay in the input directory")
	}
}

func TestRunBatchAggregates(t *testing.T) {
	cfg := testConfig(t)
	writeDex(t, cfg, "one.dex", sampleDex)
	writeDex(t, cfg, "two.dex", sampleDex)
	// Truncated file: parses but fails structurally.
	writeDex(t, cfg, "bad.dex", "DXS*VN1*VA*V1/1*1\nPA1*A1*100\n")

	p := New(cfg, nil, zap.NewNop().Sugar(), false)
	stats := p.Run([]string{
		filepath.Join(cfg.InputDir, "one.dex"),
		filepath.Join(cfg.InputDir, "two.dex"),
		filepath.Join(cfg.InputDir, "bad.dex"),
	})

	if stats.TotalFiles != 3 {
		t.Errorf("total = %d, want 3", stats.TotalFiles)
	}
	if stats.SuccessfulFiles != 2 || stats.FailedFiles != 1 {
		t.Errorf("success/failed = %d/%d, want 2/1", stats.SuccessfulFiles, stats.FailedFiles)
	}
	if stats.TotalSelections != 5 {
		t.Errorf("selections = %d, want 2+2+1", stats.TotalSelections)
	}
	if stats.SummaryLog == "" || !utils.FileExists(stats.SummaryLog) {
		t.Errorf("summary log %q missing", stats.SummaryLog)
	}
}
