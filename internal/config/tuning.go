// Package config loads the overridable pipeline constants from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zduguid/sonar-ice-detect/internal/micron"
	"github.com/zduguid/sonar-ice-detect/internal/units"
)

// TuningConfig overrides the pipeline's named constants. All fields are
// optional pointers so partial config files are safe: an omitted field
// keeps its built-in default through the Get* accessors.
type TuningConfig struct {
	// Intensity scale
	IntensitySpanDB *float64 `json:"intensity_span_db,omitempty"` // dynamic range covered by one byte
	ByteCeiling     *int     `json:"byte_ceiling,omitempty"`      // largest raw intensity value

	// Geometry filter
	BlankingDistance *float64 `json:"blanking_distance,omitempty"` // metres
	ReflectionFactor *float64 `json:"reflection_factor,omitempty"`

	// Bearing handling
	StepCorrection *float64 `json:"step_correction,omitempty"` // firmware step-size factor

	// Peak analysis
	MedianWindow *int `json:"median_window,omitempty"` // FWHM smoothing window

	// Swath aggregation
	SwathMaxGap *string `json:"swath_max_gap,omitempty"` // duration string like "30s"

	// Tabular export
	ExportWidth *int `json:"export_width,omitempty"` // fixed bin column count K
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that have been set.
func (c *TuningConfig) Validate() error {
	if c.IntensitySpanDB != nil && *c.IntensitySpanDB <= 0 {
		return fmt.Errorf("intensity_span_db must be positive, got %f", *c.IntensitySpanDB)
	}
	if c.ByteCeiling != nil && (*c.ByteCeiling < 1 || *c.ByteCeiling > 255) {
		return fmt.Errorf("byte_ceiling must be in [1,255], got %d", *c.ByteCeiling)
	}
	if c.BlankingDistance != nil && *c.BlankingDistance < 0 {
		return fmt.Errorf("blanking_distance must be non-negative, got %f", *c.BlankingDistance)
	}
	if c.ReflectionFactor != nil && *c.ReflectionFactor < 1 {
		return fmt.Errorf("reflection_factor must be at least 1, got %f", *c.ReflectionFactor)
	}
	if c.StepCorrection != nil && *c.StepCorrection <= 0 {
		return fmt.Errorf("step_correction must be positive, got %f", *c.StepCorrection)
	}
	if c.MedianWindow != nil && *c.MedianWindow < 0 {
		return fmt.Errorf("median_window must be non-negative, got %d", *c.MedianWindow)
	}
	if c.SwathMaxGap != nil && *c.SwathMaxGap != "" {
		if _, err := time.ParseDuration(*c.SwathMaxGap); err != nil {
			return fmt.Errorf("invalid swath_max_gap '%s': %w", *c.SwathMaxGap, err)
		}
	}
	if c.ExportWidth != nil && *c.ExportWidth < 1 {
		return fmt.Errorf("export_width must be positive, got %d", *c.ExportWidth)
	}
	return nil
}

// GetIntensitySpanDB returns the dynamic range span or the default.
func (c *TuningConfig) GetIntensitySpanDB() float64 {
	if c.IntensitySpanDB == nil {
		return units.IntensitySpanDB
	}
	return *c.IntensitySpanDB
}

// GetByteCeiling returns the intensity byte ceiling or the default.
func (c *TuningConfig) GetByteCeiling() int {
	if c.ByteCeiling == nil {
		return int(units.IntensityByteMax)
	}
	return *c.ByteCeiling
}

// GetBlankingDistance returns the blanking distance or the default.
func (c *TuningConfig) GetBlankingDistance() float64 {
	if c.BlankingDistance == nil {
		return micron.DefaultBlankingDistance
	}
	return *c.BlankingDistance
}

// GetReflectionFactor returns the reflection factor or the default.
func (c *TuningConfig) GetReflectionFactor() float64 {
	if c.ReflectionFactor == nil {
		return micron.DefaultReflectionFactor
	}
	return *c.ReflectionFactor
}

// GetStepCorrection returns the step-size correction factor or the default.
func (c *TuningConfig) GetStepCorrection() float64 {
	if c.StepCorrection == nil {
		return micron.StepCorrectionFactor
	}
	return *c.StepCorrection
}

// GetMedianWindow returns the FWHM smoothing window or the default.
func (c *TuningConfig) GetMedianWindow() int {
	if c.MedianWindow == nil {
		return micron.DefaultMedianWindow
	}
	return *c.MedianWindow
}

// GetSwathMaxGap parses and returns the swath gap threshold.
func (c *TuningConfig) GetSwathMaxGap() time.Duration {
	if c.SwathMaxGap == nil || *c.SwathMaxGap == "" {
		return micron.DefaultSwathMaxGap
	}
	d, err := time.ParseDuration(*c.SwathMaxGap)
	if err != nil {
		return micron.DefaultSwathMaxGap
	}
	return d
}

// GetExportWidth returns the fixed export width K or the default.
func (c *TuningConfig) GetExportWidth() int {
	if c.ExportWidth == nil {
		return micron.DefaultExportWidth
	}
	return *c.ExportWidth
}

// PipelineConfig assembles the micron pipeline constants from this
// configuration.
func (c *TuningConfig) PipelineConfig() micron.PipelineConfig {
	return micron.PipelineConfig{
		BlankingDistance: c.GetBlankingDistance(),
		ReflectionFactor: c.GetReflectionFactor(),
		StepCorrection:   c.GetStepCorrection(),
		MedianWindow:     c.GetMedianWindow(),
	}
}
