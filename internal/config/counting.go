package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lanecount/internal/counting"
)

// DefaultConfigPath is the path to the canonical counting defaults file.
const DefaultConfigPath = "config/counting.defaults.json"

// CountingConfig is the root configuration for vehicle counting. Every field
// is optional; the Get* methods supply defaults for omitted fields.
type CountingConfig struct {
	// Band geometry
	LaneWidth        *int `json:"lane_width,omitempty"`
	BandWidth        *int `json:"band_width,omitempty"`
	BandBottomOffset *int `json:"band_bottom_offset,omitempty"`

	// Peak detection and deduplication
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	PeakSpacing         *int     `json:"peak_spacing,omitempty"`
	MinPeakSeparation   *int     `json:"min_peak_separation,omitempty"` // T_HDist
	MinFrameShift       *int     `json:"min_frame_shift,omitempty"`     // T_VDist

	// Foreground extraction (video input only)
	DilateKernel *int     `json:"dilate_kernel,omitempty"`
	MOGHistory   *int     `json:"mog_history,omitempty"`
	MOGThreshold *float64 `json:"mog_threshold,omitempty"`
	// MaskThreshold is the grayscale level above which a pixel of a replayed
	// mask image counts as motion.
	MaskThreshold *int `json:"mask_threshold,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// EmptyCountingConfig returns a CountingConfig with all fields set to nil.
func EmptyCountingConfig() *CountingConfig {
	return &CountingConfig{}
}

// DefaultCountingConfig returns a config with every field populated with its
// default value.
func DefaultCountingConfig() *CountingConfig {
	p := counting.DefaultParams()
	return &CountingConfig{
		LaneWidth:           ptrInt(p.LaneWidth),
		BandWidth:           ptrInt(p.BandWidth),
		BandBottomOffset:    ptrInt(p.BandBottomOffset),
		ConfidenceThreshold: ptrFloat64(p.Threshold),
		PeakSpacing:         ptrInt(p.Spacing),
		MinPeakSeparation:   ptrInt(p.MinSeparation),
		MinFrameShift:       ptrInt(p.MinShift),
		DilateKernel:        ptrInt(5),
		MOGHistory:          ptrInt(500),
		MOGThreshold:        ptrFloat64(16),
		MaskThreshold:       ptrInt(0),
	}
}

// LoadCountingConfig loads a CountingConfig from a JSON file.
// The file must have a .json extension and be at most 1MB. Fields omitted
// from the file keep their defaults.
func LoadCountingConfig(path string) (*CountingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyCountingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. Frame-size
// dependent checks happen when the counting session is created.
func (c *CountingConfig) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if v := c.GetDilateKernel(); v <= 0 {
		return fmt.Errorf("dilate_kernel must be positive, got %d", v)
	}
	if v := c.GetMOGHistory(); v <= 0 {
		return fmt.Errorf("mog_history must be positive, got %d", v)
	}
	if v := c.GetMOGThreshold(); v <= 0 {
		return fmt.Errorf("mog_threshold must be positive, got %f", v)
	}
	if v := c.GetMaskThreshold(); v < 0 || v > 254 {
		return fmt.Errorf("mask_threshold must be between 0 and 254, got %d", v)
	}
	return nil
}

// Params converts the configuration into counting parameters.
func (c *CountingConfig) Params() counting.Params {
	return counting.Params{
		LaneWidth:        c.GetLaneWidth(),
		BandWidth:        c.GetBandWidth(),
		BandBottomOffset: c.GetBandBottomOffset(),
		Threshold:        c.GetConfidenceThreshold(),
		Spacing:          c.GetPeakSpacing(),
		MinSeparation:    c.GetMinPeakSeparation(),
		MinShift:         c.GetMinFrameShift(),
	}
}

// GetLaneWidth returns the lane_width value or the default.
func (c *CountingConfig) GetLaneWidth() int {
	if c.LaneWidth == nil {
		return counting.DefaultParams().LaneWidth
	}
	return *c.LaneWidth
}

// GetBandWidth returns the band_width value or the default.
func (c *CountingConfig) GetBandWidth() int {
	if c.BandWidth == nil {
		return counting.DefaultParams().BandWidth
	}
	return *c.BandWidth
}

// GetBandBottomOffset returns the band_bottom_offset value or the default.
func (c *CountingConfig) GetBandBottomOffset() int {
	if c.BandBottomOffset == nil {
		return counting.DefaultParams().BandBottomOffset
	}
	return *c.BandBottomOffset
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *CountingConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return counting.DefaultParams().Threshold
	}
	return *c.ConfidenceThreshold
}

// GetPeakSpacing returns the peak_spacing value or the default.
func (c *CountingConfig) GetPeakSpacing() int {
	if c.PeakSpacing == nil {
		return counting.DefaultParams().Spacing
	}
	return *c.PeakSpacing
}

// GetMinPeakSeparation returns the min_peak_separation value or the default.
func (c *CountingConfig) GetMinPeakSeparation() int {
	if c.MinPeakSeparation == nil {
		return counting.DefaultParams().MinSeparation
	}
	return *c.MinPeakSeparation
}

// GetMinFrameShift returns the min_frame_shift value or the default.
func (c *CountingConfig) GetMinFrameShift() int {
	if c.MinFrameShift == nil {
		return counting.DefaultParams().MinShift
	}
	return *c.MinFrameShift
}

// GetDilateKernel returns the dilate_kernel value or the default.
func (c *CountingConfig) GetDilateKernel() int {
	if c.DilateKernel == nil {
		return 5
	}
	return *c.DilateKernel
}

// GetMOGHistory returns the mog_history value or the default.
func (c *CountingConfig) GetMOGHistory() int {
	if c.MOGHistory == nil {
		return 500
	}
	return *c.MOGHistory
}

// GetMOGThreshold returns the mog_threshold value or the default.
func (c *CountingConfig) GetMOGThreshold() float64 {
	if c.MOGThreshold == nil {
		return 16
	}
	return *c.MOGThreshold
}

// GetMaskThreshold returns the mask_threshold value or the default.
func (c *CountingConfig) GetMaskThreshold() int {
	if c.MaskThreshold == nil {
		return 0
	}
	return *c.MaskThreshold
}
