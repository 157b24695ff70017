package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/lanecount/internal/counting"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultCountingConfig(t *testing.T) {
	cfg := DefaultCountingConfig()
	if cfg.LaneWidth == nil || *cfg.LaneWidth != 50 {
		t.Errorf("Expected LaneWidth 50, got %v", cfg.LaneWidth)
	}
	if cfg.MinPeakSeparation == nil || *cfg.MinPeakSeparation != 100 {
		t.Errorf("Expected MinPeakSeparation 100, got %v", cfg.MinPeakSeparation)
	}
	if got := cfg.Params(); got != counting.DefaultParams() {
		t.Errorf("Params() = %+v, want %+v", got, counting.DefaultParams())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestEmptyCountingConfigUsesDefaults(t *testing.T) {
	cfg := EmptyCountingConfig()
	if got := cfg.Params(); got != counting.DefaultParams() {
		t.Errorf("Params() = %+v, want %+v", got, counting.DefaultParams())
	}
	if cfg.GetDilateKernel() != 5 || cfg.GetMOGHistory() != 500 || cfg.GetMOGThreshold() != 16 || cfg.GetMaskThreshold() != 0 {
		t.Error("video defaults not applied")
	}
}

func TestLoadCountingConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"lane_width": 40, "min_frame_shift": 12, "mask_threshold": 127}`)

	cfg, err := LoadCountingConfig(path)
	if err != nil {
		t.Fatalf("LoadCountingConfig: %v", err)
	}
	p := cfg.Params()
	if p.LaneWidth != 40 || p.MinShift != 12 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.BandWidth != 100 || p.Spacing != 2 {
		t.Errorf("defaults lost: %+v", p)
	}
	if cfg.GetMaskThreshold() != 127 {
		t.Errorf("GetMaskThreshold() = %d, want 127", cfg.GetMaskThreshold())
	}
}

func TestLoadCountingConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "cfg.yaml", `{}`, ".json extension"},
		{"bad json", "cfg.json", `{"lane_width": }`, "parse config JSON"},
		{"negative spacing", "cfg.json", `{"peak_spacing": -1}`, "peak_spacing"},
		{"threshold out of range", "cfg.json", `{"confidence_threshold": 2}`, "confidence_threshold"},
		{"zero dilate kernel", "cfg.json", `{"dilate_kernel": 0}`, "dilate_kernel"},
		{"mask threshold too high", "cfg.json", `{"mask_threshold": 255}`, "mask_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCountingConfig(writeConfig(t, tt.file, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadCountingConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateWrapsInvalidConfig(t *testing.T) {
	cfg := EmptyCountingConfig()
	cfg.LaneWidth = ptrInt(0)
	if err := cfg.Validate(); !errors.Is(err, counting.ErrInvalidConfig) {
		t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadCountingConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("load %s: %v", DefaultConfigPath, err)
	}
	if got := cfg.Params(); got != counting.DefaultParams() {
		t.Errorf("defaults file drifted from DefaultParams: %+v", got)
	}
}
