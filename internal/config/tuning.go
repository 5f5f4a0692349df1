// Package config loads and validates capture tuning parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig is the root configuration for capture tuning. Fields are
// pointers so partial JSON configs are safe: omitted fields fall back to the
// defaults served by the Get* accessors.
type TuningConfig struct {
	// One-Euro filter params
	FilterMinCutoff *float64 `json:"filter_min_cutoff,omitempty"`
	FilterBeta      *float64 `json:"filter_beta,omitempty"`
	FilterDCutoff   *float64 `json:"filter_d_cutoff,omitempty"`

	// Smoother params
	ConfidenceGate *float64 `json:"confidence_gate,omitempty"`

	// Recorder params
	ChunkFrames *int `json:"chunk_frames,omitempty"`

	// Rig / export params
	WorldScale  *float64 `json:"world_scale,omitempty"`
	FallbackFPS *float64 `json:"fallback_fps,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
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

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FilterMinCutoff != nil && *c.FilterMinCutoff <= 0 {
		return fmt.Errorf("filter_min_cutoff must be positive, got %f", *c.FilterMinCutoff)
	}
	if c.FilterBeta != nil && *c.FilterBeta < 0 {
		return fmt.Errorf("filter_beta must be non-negative, got %f", *c.FilterBeta)
	}
	if c.FilterDCutoff != nil && *c.FilterDCutoff <= 0 {
		return fmt.Errorf("filter_d_cutoff must be positive, got %f", *c.FilterDCutoff)
	}
	if c.ConfidenceGate != nil {
		if *c.ConfidenceGate < 0 || *c.ConfidenceGate > 1 {
			return fmt.Errorf("confidence_gate must be between 0 and 1, got %f", *c.ConfidenceGate)
		}
	}
	if c.ChunkFrames != nil && *c.ChunkFrames <= 0 {
		return fmt.Errorf("chunk_frames must be positive, got %d", *c.ChunkFrames)
	}
	if c.WorldScale != nil && *c.WorldScale <= 0 {
		return fmt.Errorf("world_scale must be positive, got %f", *c.WorldScale)
	}
	if c.FallbackFPS != nil && *c.FallbackFPS <= 0 {
		return fmt.Errorf("fallback_fps must be positive, got %f", *c.FallbackFPS)
	}
	return nil
}

// GetFilterMinCutoff returns the filter minimum cutoff in Hz.
func (c *TuningConfig) GetFilterMinCutoff() float64 {
	if c.FilterMinCutoff == nil {
		return 1.0
	}
	return *c.FilterMinCutoff
}

// GetFilterBeta returns the filter speed coefficient.
func (c *TuningConfig) GetFilterBeta() float64 {
	if c.FilterBeta == nil {
		return 0.007
	}
	return *c.FilterBeta
}

// GetFilterDCutoff returns the derivative cutoff in Hz.
func (c *TuningConfig) GetFilterDCutoff() float64 {
	if c.FilterDCutoff == nil {
		return 1.0
	}
	return *c.FilterDCutoff
}

// GetConfidenceGate returns the minimum landmark confidence for smoothing.
func (c *TuningConfig) GetConfidenceGate() float64 {
	if c.ConfidenceGate == nil {
		return 0.5
	}
	return *c.ConfidenceGate
}

// GetChunkFrames returns the buffered frame count that triggers a flush.
func (c *TuningConfig) GetChunkFrames() int {
	if c.ChunkFrames == nil {
		return 30
	}
	return *c.ChunkFrames
}

// GetWorldScale returns the landmark-space to rig-space scale factor.
func (c *TuningConfig) GetWorldScale() float64 {
	if c.WorldScale == nil {
		return 100
	}
	return *c.WorldScale
}

// GetFallbackFPS returns the export frame rate used when none can be
// estimated.
func (c *TuningConfig) GetFallbackFPS() float64 {
	if c.FallbackFPS == nil {
		return 30
	}
	return *c.FallbackFPS
}
